package channel

import (
	"sync"
	"sync/atomic"

	"github.com/cellfield/bubbles/internal/queue"
)

// Unbounded is a channel whose Send never blocks. Values are held in a queue
// and forwarded in order to the receive side by a pump goroutine. After Close
// the pump delivers everything already sent, then closes the receive side.
type Unbounded[T any] struct {
	q      *queue.Queue[T]
	out    chan T
	done   chan struct{}
	closed atomic.Bool
	once   sync.Once
}

// NewUnbounded creates a new unbounded channel and starts its pump.
func NewUnbounded[T any]() *Unbounded[T] {
	u := &Unbounded[T]{
		q:    queue.New[T](),
		out:  make(chan T),
		done: make(chan struct{}),
	}
	go u.pump()
	return u
}

func (u *Unbounded[T]) pump() {
	defer close(u.out)
	for {
		u.flush()
		select {
		case <-u.q.Ready():
		case <-u.done:
			u.flush()
			return
		}
	}
}

func (u *Unbounded[T]) flush() {
	for {
		v, ok := u.q.TryPop()
		if !ok {
			return
		}
		u.out <- v
	}
}

// Send queues a value. Sending after Close panics.
func (u *Unbounded[T]) Send(v T) {
	if u.closed.Load() {
		panic("channel: send on closed unbounded channel")
	}
	u.q.Push(v)
}

// Receive returns the receive-only channel
func (u *Unbounded[T]) Receive() <-chan T {
	return u.out
}

// Len returns the number of values waiting to be forwarded
func (u *Unbounded[T]) Len() int {
	return u.q.Len()
}

// Close stops accepting values. Already sent values are still delivered.
func (u *Unbounded[T]) Close() {
	u.once.Do(func() {
		u.closed.Store(true)
		close(u.done)
	})
}
