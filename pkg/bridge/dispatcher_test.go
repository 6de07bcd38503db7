package bridge

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestDispatcher() (*Dispatcher, *OperationQueue, *PendingTable) {
	q := NewOperationQueue()
	table := NewPendingTable()
	return NewDispatcher(q, table, NewMetrics(nil)), q, table
}

func submit(t *testing.T, q *OperationQueue, table *PendingTable, id, name string, args Args) {
	t.Helper()
	if err := table.Create(id); err != nil {
		t.Fatalf("bridge:dispatcher_test - Create failed: %v", err)
	}
	if err := q.Push(Operation{Name: name, Args: args, CorrelationID: id, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("bridge:dispatcher_test - Push failed: %v", err)
	}
}

func reclaim(table *PendingTable, id string) Outcome {
	return table.WaitAndReclaim(context.Background(), id, "op", time.Second)
}

func TestDispatcher_RegisterHandler(t *testing.T) {
	d, _, _ := newTestDispatcher()
	noop := func(context.Context, Args) (interface{}, error) { return nil, nil }

	if err := d.RegisterHandler("", noop); err == nil {
		t.Error("bridge:dispatcher_test - empty name should be rejected")
	}
	if err := d.RegisterHandler("x", nil); err == nil {
		t.Error("bridge:dispatcher_test - nil handler should be rejected")
	}
	_ = d.RegisterHandler("b", noop)
	_ = d.RegisterHandler("a", noop)
	if got := fmt.Sprint(d.Handlers()); got != "[a b]" {
		t.Errorf("bridge:dispatcher_test - Handlers() = %s, want [a b]", got)
	}
	if !d.UnregisterHandler("a") || d.UnregisterHandler("a") {
		t.Error("bridge:dispatcher_test - UnregisterHandler should succeed exactly once")
	}
	d.Reset()
	if len(d.Handlers()) != 0 {
		t.Error("bridge:dispatcher_test - Reset should drop every handler")
	}
	if err := d.RegisterHandler("c", noop); err != nil {
		t.Errorf("bridge:dispatcher_test - RegisterHandler after Reset: %v", err)
	}
}

func TestDispatcher_DrainOutcomes(t *testing.T) {
	d, q, table := newTestDispatcher()
	_ = d.RegisterHandler("ok", func(_ context.Context, args Args) (interface{}, error) {
		return args["v"], nil
	})
	_ = d.RegisterHandler("fail", func(context.Context, Args) (interface{}, error) {
		return nil, errors.New("nope")
	})
	_ = d.RegisterHandler("typed", func(context.Context, Args) (interface{}, error) {
		return nil, NewHandlerError(FailureMissing, "body %q not found", "Body9")
	})
	_ = d.RegisterHandler("panic", func(context.Context, Args) (interface{}, error) {
		panic("kaboom")
	})

	submit(t, q, table, "1", "ok", Args{"v": "hello"})
	submit(t, q, table, "2", "fail", nil)
	submit(t, q, table, "3", "typed", nil)
	submit(t, q, table, "4", "panic", nil)
	submit(t, q, table, "5", "missing", nil)
	submit(t, q, table, "6", "ok", Args{"v": "after panic"})

	if n := d.Drain(); n != 6 {
		t.Fatalf("bridge:dispatcher_test - Drain() = %d, want 6", n)
	}

	if got := reclaim(table, "1"); !got.Success || got.Result != "hello" {
		t.Errorf("bridge:dispatcher_test - ok outcome = %+v", got)
	}
	if got := reclaim(table, "2"); got.Kind != KindHandlerFailure || got.FailureKind != FailureError || got.Error != "nope" {
		t.Errorf("bridge:dispatcher_test - fail outcome = %+v", got)
	}
	if got := reclaim(table, "3"); got.FailureKind != FailureMissing {
		t.Errorf("bridge:dispatcher_test - typed outcome = %+v", got)
	}
	if got := reclaim(table, "4"); got.Kind != KindHandlerFailure || got.FailureKind != FailurePanic {
		t.Errorf("bridge:dispatcher_test - panic outcome = %+v", got)
	}
	if got := reclaim(table, "5"); got.Kind != KindUnknownOperation || got.Error != "Unknown operation: missing" {
		t.Errorf("bridge:dispatcher_test - unknown outcome = %+v", got)
	}
	if got := reclaim(table, "6"); !got.Success || got.Result != "after panic" {
		t.Errorf("bridge:dispatcher_test - handler after panic = %+v", got)
	}
}

func TestDispatcher_NilArgsBecomeEmpty(t *testing.T) {
	d, q, table := newTestDispatcher()
	_ = d.RegisterHandler("count", func(_ context.Context, args Args) (interface{}, error) {
		if args == nil {
			return nil, errors.New("nil args")
		}
		return len(args), nil
	})
	submit(t, q, table, "1", "count", nil)
	d.Drain()
	if got := reclaim(table, "1"); !got.Success || got.Result != 0 {
		t.Errorf("bridge:dispatcher_test - outcome = %+v", got)
	}
}

func TestDispatcher_DrainPicksUpOperationsQueuedDuringDrain(t *testing.T) {
	d, q, table := newTestDispatcher()
	_ = d.RegisterHandler("spawn", func(context.Context, Args) (interface{}, error) {
		submit(t, q, table, "child", "leaf", nil)
		return "spawned", nil
	})
	_ = d.RegisterHandler("leaf", func(context.Context, Args) (interface{}, error) {
		return "leaf", nil
	})

	submit(t, q, table, "parent", "spawn", nil)
	if n := d.Drain(); n != 2 {
		t.Fatalf("bridge:dispatcher_test - Drain() = %d, want 2", n)
	}
	if got := reclaim(table, "child"); got.Result != "leaf" {
		t.Errorf("bridge:dispatcher_test - child outcome = %+v", got)
	}
}

func TestDispatcher_LateResultDiscarded(t *testing.T) {
	d, q, table := newTestDispatcher()
	_ = d.RegisterHandler("ok", func(context.Context, Args) (interface{}, error) { return 1, nil })

	submit(t, q, table, "gone", "ok", nil)
	// The waiter gave up before the drain.
	table.Remove("gone")

	if n := d.Drain(); n != 1 {
		t.Fatalf("bridge:dispatcher_test - Drain() = %d, want 1", n)
	}
	if table.Len() != 0 {
		t.Errorf("bridge:dispatcher_test - late result resurrected an entry")
	}
	if got := testutil.ToFloat64(d.metrics.lateResults); got != 1 {
		t.Errorf("bridge:dispatcher_test - late results = %v, want 1", got)
	}
	if got := testutil.ToFloat64(d.metrics.operations.WithLabelValues("ok", "success")); got != 1 {
		t.Errorf("bridge:dispatcher_test - operations{ok,success} = %v, want 1", got)
	}
}

func TestDispatcher_HandlerContextIsMarked(t *testing.T) {
	d, q, table := newTestDispatcher()
	_ = d.RegisterHandler("where", func(ctx context.Context, _ Args) (interface{}, error) {
		return onHostThread(ctx), nil
	})
	submit(t, q, table, "1", "where", nil)
	d.Drain()
	if got := reclaim(table, "1"); got.Result != true {
		t.Errorf("bridge:dispatcher_test - handler context not marked as host thread")
	}
	if onHostThread(context.Background()) {
		t.Error("bridge:dispatcher_test - background context reported as host thread")
	}
}
