package queue

import (
	"sync"
	"testing"
	"time"
)

func TestQueue_New(t *testing.T) {
	q := New[int]()
	if q == nil {
		t.Fatal("expected non-nil queue")
	}
	if !q.Empty() {
		t.Error("expected empty queue")
	}
	if q.Len() != 0 {
		t.Errorf("expected length 0, got %d", q.Len())
	}
}

func TestQueue_PushTryPop(t *testing.T) {
	q := New[int]()

	if _, ok := q.TryPop(); ok {
		t.Fatal("expected empty pop to report !ok")
	}

	q.Push(1)
	q.Push(2, 3)
	if q.Len() != 3 {
		t.Fatalf("expected length 3, got %d", q.Len())
	}

	for want := 1; want <= 3; want++ {
		got, ok := q.TryPop()
		if !ok || got != want {
			t.Errorf("expected (%d, true), got (%d, %v)", want, got, ok)
		}
	}
	if !q.Empty() {
		t.Error("expected empty queue after popping everything")
	}
}

func TestQueue_Ready(t *testing.T) {
	q := New[string]()

	select {
	case <-q.Ready():
		t.Fatal("ready fired before any push")
	default:
	}

	q.Push("a")
	q.Push("b")
	select {
	case <-q.Ready():
	case <-time.After(time.Second):
		t.Fatal("ready did not fire after push")
	}
}

func TestQueue_Drain(t *testing.T) {
	q := New[int]()
	q.Push(4, 5, 6)

	items := q.Drain()
	if len(items) != 3 || items[0] != 4 || items[2] != 6 {
		t.Errorf("unexpected drained items %v", items)
	}
	if !q.Empty() {
		t.Error("expected empty queue after drain")
	}
}

func TestQueue_ConcurrentPush(t *testing.T) {
	q := New[int]()
	var wg sync.WaitGroup

	for i := range 10 {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := range 100 {
				q.Push(base*100 + j)
			}
		}(i)
	}
	wg.Wait()

	if q.Len() != 1000 {
		t.Errorf("expected length 1000, got %d", q.Len())
	}
}
