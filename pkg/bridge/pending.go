package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrDuplicateCorrelation is returned by Create for an id that already has an entry.
var ErrDuplicateCorrelation = errors.New("bridge: duplicate correlation id")

type pendingEntry struct {
	done      chan struct{}
	outcome   Outcome
	completed bool
}

// PendingTable pairs each outstanding correlation id with a completion signal
// and an outcome slot. Entries are written once by the dispatcher and removed
// by their single waiter.
type PendingTable struct {
	mu      sync.Mutex
	entries map[string]*pendingEntry
}

// NewPendingTable creates an empty PendingTable.
func NewPendingTable() *PendingTable {
	return &PendingTable{entries: make(map[string]*pendingEntry)}
}

// Create allocates the entry for correlationID.
func (t *PendingTable) Create(correlationID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[correlationID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCorrelation, correlationID)
	}
	t.entries[correlationID] = &pendingEntry{done: make(chan struct{})}
	return nil
}

// Complete stores outcome and wakes the waiter. It reports false, and changes
// nothing, when the id is unknown (the waiter already gave up) or was already
// completed.
func (t *PendingTable) Complete(correlationID string, outcome Outcome) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[correlationID]
	if !ok || e.completed {
		return false
	}
	e.outcome = outcome
	e.completed = true
	close(e.done)
	return true
}

// WaitAndReclaim blocks until the entry is completed, timeout elapses or ctx
// is done, then removes the entry. Expiry yields a TIMEOUT outcome unless the
// result landed before the entry could be removed.
func (t *PendingTable) WaitAndReclaim(ctx context.Context, correlationID, name string, timeout time.Duration) Outcome {
	t.mu.Lock()
	e, ok := t.entries[correlationID]
	t.mu.Unlock()
	if !ok {
		return Internal(fmt.Sprintf("no pending entry for correlation id %s", correlationID))
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-e.done:
	case <-timer.C:
	case <-ctx.Done():
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, correlationID)
	if e.completed {
		return e.outcome
	}
	return TimedOut(name, timeout)
}

// Remove drops the entry for correlationID without waiting.
func (t *PendingTable) Remove(correlationID string) {
	t.mu.Lock()
	delete(t.entries, correlationID)
	t.mu.Unlock()
}

// Len returns the number of outstanding entries.
func (t *PendingTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
