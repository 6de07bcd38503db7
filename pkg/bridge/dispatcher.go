package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
)

const logPrefix = "bridge:dispatcher"

// HandlerFunc executes one operation on the host thread. It must not call
// Bridge.IssueAndWait: the host thread is the only drainer.
type HandlerFunc func(ctx context.Context, args Args) (interface{}, error)

type dispatchKey struct{}

// onHostThread reports whether ctx was handed out by the dispatcher.
func onHostThread(ctx context.Context) bool {
	v, _ := ctx.Value(dispatchKey{}).(bool)
	return v
}

// Dispatcher drains the operation queue on the host thread and completes the
// pending table entries.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc

	queue   *OperationQueue
	table   *PendingTable
	metrics *Metrics
}

// NewDispatcher creates a Dispatcher draining queue into table.
func NewDispatcher(queue *OperationQueue, table *PendingTable, metrics *Metrics) *Dispatcher {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		queue:    queue,
		table:    table,
		metrics:  metrics,
	}
}

// RegisterHandler binds name to fn, replacing any previous binding.
func (d *Dispatcher) RegisterHandler(name string, fn HandlerFunc) error {
	if name == "" {
		return errors.New("bridge: handler name is required")
	}
	if fn == nil {
		return fmt.Errorf("bridge: nil handler for %s", name)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.handlers == nil {
		d.handlers = make(map[string]HandlerFunc)
	}
	d.handlers[name] = fn
	return nil
}

// UnregisterHandler removes the binding for name and reports whether one existed.
func (d *Dispatcher) UnregisterHandler(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.handlers[name]; !ok {
		return false
	}
	delete(d.handlers, name)
	return true
}

// Handlers returns the registered operation names, sorted.
func (d *Dispatcher) Handlers() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset drops every handler binding.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	d.handlers = nil
	d.mu.Unlock()
}

func (d *Dispatcher) lookup(name string) (HandlerFunc, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fn, ok := d.handlers[name]
	return fn, ok
}

// Drain runs every queued operation in FIFO order, including operations queued
// while draining, and returns how many it executed. It must only be called on
// the host thread.
func (d *Dispatcher) Drain() int {
	d.metrics.drains.Inc()
	ctx := context.WithValue(context.Background(), dispatchKey{}, true)

	n := 0
	for {
		op, ok := d.queue.Pop()
		if !ok {
			break
		}
		n++
		outcome := d.execute(ctx, op)
		d.metrics.observe(op, outcome)
		if !d.table.Complete(op.CorrelationID, outcome) {
			d.metrics.lateResults.Inc()
			slog.Warn(fmt.Sprintf("%s - discarding late result for %s (correlation %s)", logPrefix, op.Name, op.CorrelationID))
		}
	}
	d.metrics.queueDepth.Set(float64(d.queue.Len()))
	if n > 0 {
		slog.Debug(fmt.Sprintf("%s - drained %d operations", logPrefix, n))
	}
	return n
}

// execute runs a single operation, converting errors and panics into outcomes.
func (d *Dispatcher) execute(ctx context.Context, op Operation) (outcome Outcome) {
	fn, ok := d.lookup(op.Name)
	if !ok {
		slog.Debug(fmt.Sprintf("%s - no handler for %s", logPrefix, op.Name))
		return UnknownOperation(op.Name)
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error(fmt.Sprintf("%s - handler %s panicked: %v\n%s", logPrefix, op.Name, r, debug.Stack()))
			outcome = HandlerFailure(fmt.Sprintf("handler %s panicked: %v", op.Name, r), FailurePanic)
		}
	}()

	args := op.Args
	if args == nil {
		args = Args{}
	}
	result, err := fn(ctx, args)
	if err != nil {
		slog.Debug(fmt.Sprintf("%s - handler %s failed: %v", logPrefix, op.Name, err))
		return outcomeFromError(err)
	}
	return Succeeded(result)
}
