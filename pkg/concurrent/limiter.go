package concurrent

type Limiter interface {
	// Add enqueue one working credential, blocking while all are taken.
	Add()
	// TryAdd enqueues one working credential unless all are taken.
	TryAdd() bool
	// Done dequeue one working credential.
	Done()
	// Working reports how many credentials are taken.
	Working() int
}

type limiter struct {
	working chan struct{}
}

func NewLimiter(maxConcurrency int) Limiter {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &limiter{
		working: make(chan struct{}, maxConcurrency),
	}
}

func (in *limiter) Add() {
	in.working <- struct{}{}
}

func (in *limiter) TryAdd() bool {
	select {
	case in.working <- struct{}{}:
		return true
	default:
		return false
	}
}

func (in *limiter) Done() {
	<-in.working
}

func (in *limiter) Working() int {
	return len(in.working)
}
