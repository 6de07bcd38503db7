package bridge

import (
	"errors"
	"sync"
	"time"
)

// ErrQueueClosed is returned by Push once the queue has been closed.
var ErrQueueClosed = errors.New("bridge: operation queue closed")

// Operation is a named unit of work submitted for execution on the host thread.
type Operation struct {
	Name          string
	Args          Args
	CorrelationID string
	CreatedAt     time.Time
}

// OperationQueue is an unbounded FIFO with many producers and a single consumer.
type OperationQueue struct {
	mu     sync.Mutex
	items  []Operation
	head   int
	closed bool
}

// NewOperationQueue creates an empty queue.
func NewOperationQueue() *OperationQueue {
	return &OperationQueue{items: make([]Operation, 0, 64)}
}

// Push appends op to the tail. It never blocks on the consumer.
func (q *OperationQueue) Push(op Operation) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.items = append(q.items, op)
	return nil
}

// Pop removes the head of the queue, if any.
func (q *OperationQueue) Pop() (Operation, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head >= len(q.items) {
		return Operation{}, false
	}
	op := q.items[q.head]
	q.items[q.head] = Operation{}
	q.head++
	// Reclaim the consumed prefix once the queue empties or it dominates the slice.
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > 1024 && q.head*2 > len(q.items) {
		q.items = append(q.items[:0:0], q.items[q.head:]...)
		q.head = 0
	}
	return op, true
}

// Len returns the number of queued operations.
func (q *OperationQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Close rejects further pushes. Already queued operations can still be popped.
func (q *OperationQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}
