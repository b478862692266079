package concurrent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter(t *testing.T) {
	l := NewLimiter(2)
	assert.True(t, l.TryAdd())
	l.Add()
	assert.False(t, l.TryAdd())
	assert.Equal(t, 2, l.Working())

	released := make(chan struct{})
	go func() {
		l.Add()
		close(released)
	}()
	select {
	case <-released:
		t.Fatal("Add must block while the limiter is full")
	case <-time.After(20 * time.Millisecond):
	}
	l.Done()
	<-released
	assert.Equal(t, 2, l.Working())
}

func TestLimiterMinimum(t *testing.T) {
	l := NewLimiter(0)
	assert.True(t, l.TryAdd())
	assert.False(t, l.TryAdd())
}
