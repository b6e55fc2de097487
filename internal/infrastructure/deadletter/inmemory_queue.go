package deadletter

import (
	"context"
	"sync"
)

// InMemoryQueue is a process-local Queue. Contents are lost on restart.
type InMemoryQueue struct {
	mu      sync.Mutex
	letters []DeadLetter
}

// NewInMemoryQueue creates an empty queue
func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{}
}

// Push appends a dead letter
func (q *InMemoryQueue) Push(_ context.Context, letter DeadLetter) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.letters = append(q.letters, letter)
	return nil
}

// Pop removes and returns up to n of the oldest dead letters
func (q *InMemoryQueue) Pop(_ context.Context, n int) ([]DeadLetter, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n <= 0 || len(q.letters) == 0 {
		return nil, nil
	}
	if n > len(q.letters) {
		n = len(q.letters)
	}
	out := make([]DeadLetter, n)
	copy(out, q.letters[:n])
	q.letters = append(q.letters[:0:0], q.letters[n:]...)
	return out, nil
}

// Len returns the number of queued dead letters
func (q *InMemoryQueue) Len(_ context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.letters)), nil
}

// Close is a no-op
func (q *InMemoryQueue) Close() error {
	return nil
}

var _ Queue = (*InMemoryQueue)(nil)
