package queue

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func beacon(path string) Beacon {
	return Beacon{Path: path, Body: []byte(`{}`)}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if err := q.Enqueue(beacon("/trail")); err != nil {
		t.Errorf("expected enqueue to succeed, got %v", err)
	}

	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	b := <-q.Dequeue()
	if b.Path != "/trail" {
		t.Errorf("expected /trail, got %v", b.Path)
	}
	if b.Enqueued.IsZero() {
		t.Error("expected enqueue time to be stamped")
	}

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))

	if err := q.Enqueue(beacon("/a")); err != nil {
		t.Errorf("expected enqueue to succeed, got %v", err)
	}
	if err := q.Enqueue(beacon("/b")); err != nil {
		t.Errorf("expected enqueue to succeed, got %v", err)
	}

	if err := q.Enqueue(beacon("/c")); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}

	if l := q.Len(); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_FIFO(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	for i := 0; i < 5; i++ {
		if err := q.Enqueue(beacon(fmt.Sprintf("/%d", i))); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	for i := 0; i < 5; i++ {
		if got := (<-q.Dequeue()).Path; got != fmt.Sprintf("/%d", i) {
			t.Errorf("position %d: got %s", i, got)
		}
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	_ = q.Enqueue(beacon("/pending"))

	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to report closed")
	}

	if err := q.Enqueue(beacon("/late")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	// Beacons accepted before Close are still delivered.
	var paths []string
	for b := range q.Dequeue() {
		paths = append(paths, b.Path)
	}
	if len(paths) != 1 || paths[0] != "/pending" {
		t.Errorf("expected pending beacon to drain, got %v", paths)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1000))
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if err := q.Enqueue(beacon(fmt.Sprintf("/%d/%d", id, j))); err != nil {
					t.Errorf("enqueue: %v", err)
				}
			}
		}(i)
	}
	wg.Wait()

	if l := q.Len(); l != 1000 {
		t.Errorf("expected length 1000, got %d", l)
	}
}

func TestInMemoryQueue_EnqueueDuringClose(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1000))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = q.Enqueue(beacon("/x"))
			}
		}()
	}
	_ = q.Close()
	wg.Wait() // must not panic with send on closed channel
}
