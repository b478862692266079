package observable

// SetIfChanged stores v unless the value already holds an equal, non-null
// value. The comparison and the store happen under the value's lock.
func SetIfChanged[T comparable](o *Value[T], v T) (Notification, bool) {
	o.mu.Lock()
	if o.ok && o.v == v {
		o.mu.Unlock()
		return nil, false
	}
	o.v, o.ok = v, true
	subs := o.snapshot()
	o.mu.Unlock()
	return notify(subs, v, true), true
}

// NextIfChanged publishes v only when it differs from the current value.
func NextIfChanged[T comparable](o *Value[T], v T) bool {
	n, changed := SetIfChanged(o, v)
	n.Deliver()
	return changed
}

// UnsetIfPresent clears the value unless it is already null.
func UnsetIfPresent[T any](o *Value[T]) (Notification, bool) {
	o.mu.Lock()
	if !o.ok {
		o.mu.Unlock()
		return nil, false
	}
	var zero T
	o.v, o.ok = zero, false
	subs := o.snapshot()
	o.mu.Unlock()
	return notify(subs, zero, false), true
}

// ClearIfPresent publishes null only when a value is currently present.
func ClearIfPresent[T any](o *Value[T]) bool {
	n, changed := UnsetIfPresent(o)
	n.Deliver()
	return changed
}
