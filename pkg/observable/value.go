// Package observable holds single values that notify subscribers on every
// publication.
//
// A Value starts unset. Next stores a value and calls every current
// subscriber synchronously, Clear publishes the null state. Subscribing does
// not replay the current value; read it with Get first when needed.
//
// Value never deduplicates. Callers that only want to publish on change use
// NextIfChanged (or the two-phase SetIfChanged).
package observable

import "sync"

// Subscriber receives a published value. ok is false when the value was
// cleared.
type Subscriber[T any] func(v T, ok bool)

// Notification delivers one stored value to the subscribers that were
// registered when it was stored. Calling a nil Notification is a no-op.
type Notification func()

// Deliver calls n when it is not nil.
func (n Notification) Deliver() {
	if n != nil {
		n()
	}
}

type subscription[T any] struct {
	id int
	fn Subscriber[T]
}

// Value is safe for concurrent use. Subscribers run outside the value's lock,
// so a subscriber may publish to any Value, including the one notifying it.
type Value[T any] struct {
	mu     sync.Mutex
	v      T
	ok     bool
	nextID int
	subs   []subscription[T]
}

// New returns an unset Value.
func New[T any]() *Value[T] {
	return &Value[T]{}
}

// Get returns the last published value. ok is false before the first
// publication and after Clear.
func (o *Value[T]) Get() (T, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.v, o.ok
}

// Present reports whether a non-null value is published.
func (o *Value[T]) Present() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ok
}

// Next stores v and notifies every subscriber before returning.
func (o *Value[T]) Next(v T) {
	o.Set(v).Deliver()
}

// Clear publishes the null state.
func (o *Value[T]) Clear() {
	o.Unset().Deliver()
}

// Set stores v and returns the notification for it without delivering.
func (o *Value[T]) Set(v T) Notification {
	o.mu.Lock()
	o.v, o.ok = v, true
	subs := o.snapshot()
	o.mu.Unlock()
	return notify(subs, v, true)
}

// Unset stores the null state and returns the notification for it without
// delivering.
func (o *Value[T]) Unset() Notification {
	var zero T
	o.mu.Lock()
	o.v, o.ok = zero, false
	subs := o.snapshot()
	o.mu.Unlock()
	return notify(subs, zero, false)
}

// Subscribe registers fn for every later publication and returns a function
// that removes it. Unsubscribing twice is harmless.
func (o *Value[T]) Subscribe(fn Subscriber[T]) (unsubscribe func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextID++
	id := o.nextID
	o.subs = append(o.subs, subscription[T]{id: id, fn: fn})
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		for i, s := range o.subs {
			if s.id == id {
				o.subs = append(o.subs[:i:i], o.subs[i+1:]...)
				return
			}
		}
	}
}

// must hold o.mu
func (o *Value[T]) snapshot() []Subscriber[T] {
	if len(o.subs) == 0 {
		return nil
	}
	fns := make([]Subscriber[T], len(o.subs))
	for i, s := range o.subs {
		fns[i] = s.fn
	}
	return fns
}

func notify[T any](subs []Subscriber[T], v T, ok bool) Notification {
	if len(subs) == 0 {
		return nil
	}
	return func() {
		for _, fn := range subs {
			fn(v, ok)
		}
	}
}
