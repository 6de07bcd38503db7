package host

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
)

const logPrefix = "host:mainloop"

type loopState int

const (
	stateIdle loopState = iota
	stateRunning
	stateStopped
)

// MainLoop is the host's designated thread. Signal callbacks registered on it
// only ever execute on the goroutine running Run, which is locked to its OS
// thread for the lifetime of the loop.
type MainLoop struct {
	mu      sync.Mutex
	state   loopState
	signals map[string]func()
	fired   map[string]bool
	order   []string

	wake     chan struct{}
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewMainLoop creates a loop that is not yet running.
func NewMainLoop() *MainLoop {
	return &MainLoop{
		signals: make(map[string]func()),
		fired:   make(map[string]bool),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// RegisterSignal binds name to fn, replacing any previous binding.
func (l *MainLoop) RegisterSignal(name string, fn func()) error {
	if fn == nil {
		return fmt.Errorf("%s - nil callback for signal %s", logPrefix, name)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == stateStopped {
		return ErrHostStopped
	}
	l.signals[name] = fn
	return nil
}

// UnregisterSignal removes the binding for name and drops any pending fire.
func (l *MainLoop) UnregisterSignal(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.signals[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSignal, name)
	}
	delete(l.signals, name)
	delete(l.fired, name)
	return nil
}

// FireSignal schedules name's callback on the loop. It is safe from any
// goroutine and never blocks; fires of a signal that has not run yet coalesce.
func (l *MainLoop) FireSignal(name string) error {
	l.mu.Lock()
	if l.state == stateStopped {
		l.mu.Unlock()
		return ErrHostStopped
	}
	if _, ok := l.signals[name]; !ok {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownSignal, name)
	}
	if !l.fired[name] {
		l.fired[name] = true
		l.order = append(l.order, name)
	}
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Run executes fired callbacks until ctx is done or Shutdown is called.
func (l *MainLoop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.state != stateIdle {
		l.mu.Unlock()
		return fmt.Errorf("%s - loop already started", logPrefix)
	}
	l.state = stateRunning
	l.mu.Unlock()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(l.done)
	defer l.markStopped()

	slog.Info(fmt.Sprintf("%s - Host main loop running", logPrefix))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.stop:
			return nil
		case <-l.wake:
			l.runFired()
		}
	}
}

func (l *MainLoop) runFired() {
	l.mu.Lock()
	names := l.order
	l.order = nil
	callbacks := make([]func(), 0, len(names))
	for _, name := range names {
		if !l.fired[name] {
			continue
		}
		delete(l.fired, name)
		if fn, ok := l.signals[name]; ok {
			callbacks = append(callbacks, fn)
		}
	}
	l.mu.Unlock()

	for _, fn := range callbacks {
		l.invoke(fn)
	}
}

func (l *MainLoop) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error(fmt.Sprintf("%s - signal callback panicked: %v\n%s", logPrefix, r, debug.Stack()))
		}
	}()
	fn()
}

func (l *MainLoop) markStopped() {
	l.mu.Lock()
	l.state = stateStopped
	l.signals = make(map[string]func())
	l.fired = make(map[string]bool)
	l.order = nil
	l.mu.Unlock()
	slog.Info(fmt.Sprintf("%s - Host main loop stopped", logPrefix))
}

// Shutdown stops the loop and waits for the running callback, if any, to
// return. A loop that was never run is simply marked stopped.
func (l *MainLoop) Shutdown() {
	l.stopOnce.Do(func() { close(l.stop) })

	l.mu.Lock()
	state := l.state
	if state == stateIdle {
		l.state = stateStopped
		close(l.done)
	}
	l.mu.Unlock()

	if state == stateRunning {
		<-l.done
	}
}

// Done is closed when Run returns.
func (l *MainLoop) Done() <-chan struct{} {
	return l.done
}
