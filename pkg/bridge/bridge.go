package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/morezero/cad-bridge/pkg/host"
)

const bridgeLogPrefix = "bridge:bridge"

// DefaultSignalName is the host signal the bridge registers for its drain callback.
const DefaultSignalName = "cad-bridge.drain"

// DefaultTimeout applies to IssueAndWait calls that pass no timeout.
const DefaultTimeout = 30 * time.Second

var (
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("bridge: already started")

	// ErrNotRunning is reported when operations are issued outside Start/Stop.
	ErrNotRunning = errors.New("bridge: not running")
)

// Config holds bridge configuration.
type Config struct {
	SignalName     string
	WakeInterval   time.Duration
	DefaultTimeout time.Duration
}

// DefaultConfig returns the default bridge configuration.
func DefaultConfig() Config {
	return Config{
		SignalName:     DefaultSignalName,
		WakeInterval:   DefaultWakeInterval,
		DefaultTimeout: DefaultTimeout,
	}
}

// NewBridgeParams holds parameters for NewBridge.
type NewBridgeParams struct {
	Host    host.Signaler
	Config  Config
	Metrics *Metrics
}

// Bridge owns the pending table, the operation queue and the dispatcher, and
// exposes them as a synchronous IssueAndWait.
type Bridge struct {
	host    host.Signaler
	config  Config
	metrics *Metrics

	table      *PendingTable
	queue      *OperationQueue
	dispatcher *Dispatcher
	waker      *Waker

	mu      sync.Mutex
	running bool
	stopped bool
}

// NewBridge creates a Bridge. Handlers may be registered before Start.
func NewBridge(params NewBridgeParams) *Bridge {
	cfg := params.Config
	if cfg.SignalName == "" {
		cfg.SignalName = DefaultSignalName
	}
	if cfg.WakeInterval <= 0 {
		cfg.WakeInterval = DefaultWakeInterval
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = DefaultTimeout
	}
	metrics := params.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	table := NewPendingTable()
	queue := NewOperationQueue()
	b := &Bridge{
		host:       params.Host,
		config:     cfg,
		metrics:    metrics,
		table:      table,
		queue:      queue,
		dispatcher: NewDispatcher(queue, table, metrics),
	}
	b.waker = NewWaker(cfg.WakeInterval, func() error {
		return b.host.FireSignal(b.config.SignalName)
	})
	return b
}

// Start registers the drain callback with the host and starts the waker.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running || b.stopped {
		return ErrAlreadyStarted
	}
	if b.host == nil {
		return fmt.Errorf("%s - no host signaler configured", bridgeLogPrefix)
	}
	if err := b.host.RegisterSignal(b.config.SignalName, func() { b.dispatcher.Drain() }); err != nil {
		return fmt.Errorf("%s - failed to register signal %s: %w", bridgeLogPrefix, b.config.SignalName, err)
	}
	b.waker.Start()
	b.running = true
	slog.Info(fmt.Sprintf("%s - Started (signal=%s wake=%s)", bridgeLogPrefix, b.config.SignalName, b.config.WakeInterval))
	return nil
}

// Stop halts the waker, unregisters the host signal and releases the handler
// map. Waiters still blocked return by their own timeout.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if !b.running {
		b.stopped = true
		b.mu.Unlock()
		return
	}
	b.running = false
	b.stopped = true
	b.mu.Unlock()

	b.waker.Stop()
	if err := b.host.UnregisterSignal(b.config.SignalName); err != nil {
		slog.Debug(fmt.Sprintf("%s - unregister signal: %v", bridgeLogPrefix, err))
	}
	b.queue.Close()
	b.dispatcher.Reset()
	slog.Info(fmt.Sprintf("%s - Stopped", bridgeLogPrefix))
}

// Running reports whether Start has succeeded and Stop has not been called.
func (b *Bridge) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// RegisterHandler binds an operation name to fn.
func (b *Bridge) RegisterHandler(name string, fn HandlerFunc) error {
	return b.dispatcher.RegisterHandler(name, fn)
}

// UnregisterHandler removes the binding for name.
func (b *Bridge) UnregisterHandler(name string) bool {
	return b.dispatcher.UnregisterHandler(name)
}

// Handlers lists the registered operation names.
func (b *Bridge) Handlers() []string {
	return b.dispatcher.Handlers()
}

// IssueAndWait submits the named operation and blocks until its outcome is
// available, timeout elapses or ctx is done. A timeout of zero or less uses
// the configured default. It never calls into the host.
func (b *Bridge) IssueAndWait(ctx context.Context, name string, args Args, timeout time.Duration) Outcome {
	if onHostThread(ctx) {
		return Internal(fmt.Sprintf("operation %s issued from the host thread would deadlock", name))
	}
	if !b.Running() {
		return Internal(fmt.Sprintf("operation %s rejected: %v", name, ErrNotRunning))
	}
	if timeout <= 0 {
		timeout = b.config.DefaultTimeout
	}

	id, err := b.issue(name, args)
	if err != nil {
		return Internal(err.Error())
	}

	b.metrics.pending.Inc()
	defer b.metrics.pending.Dec()
	outcome := b.table.WaitAndReclaim(ctx, id, name, timeout)
	if !outcome.Success && outcome.Kind == KindTimeout {
		slog.Warn(fmt.Sprintf("%s - %s (correlation %s) timed out after %s", bridgeLogPrefix, name, id, timeout))
	}
	return outcome
}

// issue creates the table entry and enqueues the operation.
func (b *Bridge) issue(name string, args Args) (string, error) {
	id := uuid.NewString()
	if err := b.table.Create(id); err != nil {
		return "", err
	}
	op := Operation{
		Name:          name,
		Args:          args,
		CorrelationID: id,
		CreatedAt:     time.Now(),
	}
	if err := b.queue.Push(op); err != nil {
		b.table.Remove(id)
		return "", fmt.Errorf("%s - submit %s: %w", bridgeLogPrefix, name, err)
	}
	b.metrics.queueDepth.Set(float64(b.queue.Len()))
	slog.Debug(fmt.Sprintf("%s - queued %s (correlation %s)", bridgeLogPrefix, name, id))
	return id, nil
}
