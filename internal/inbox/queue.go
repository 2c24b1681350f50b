package inbox

import (
	"context"
	"sync"
)

// keyedQueue serializes work per key in the order acquire was called.
// Different keys never wait on each other.
type keyedQueue struct {
	mu    sync.Mutex
	tails map[string]chan struct{}
}

func newKeyedQueue() *keyedQueue {
	return &keyedQueue{tails: make(map[string]chan struct{})}
}

// acquire waits until every earlier holder of key has released it. The
// returned release must be called exactly once. If ctx ends while waiting,
// the slot is handed on as soon as the predecessor finishes and ctx.Err()
// is returned; release must not be called in that case.
func (q *keyedQueue) acquire(ctx context.Context, key string) (func(), error) {
	done := make(chan struct{})

	q.mu.Lock()
	prev := q.tails[key]
	q.tails[key] = done
	q.mu.Unlock()

	release := func() {
		q.mu.Lock()
		if q.tails[key] == done {
			delete(q.tails, key)
		}
		q.mu.Unlock()
		close(done)
	}

	if prev == nil {
		return release, nil
	}

	select {
	case <-prev:
		return release, nil
	case <-ctx.Done():
		go func() {
			<-prev
			release()
		}()
		return nil, ctx.Err()
	}
}

// busy reports whether any work for key is queued or running.
func (q *keyedQueue) busy(key string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.tails[key]
	return ok
}
