package bridge

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const wakerLogPrefix = "bridge:waker"

// DefaultWakeInterval is how often the waker asks the host to drain.
const DefaultWakeInterval = 100 * time.Millisecond

// Waker is the single background goroutine that periodically asks the host to
// run the dispatcher on its own thread.
type Waker struct {
	interval time.Duration
	fire     func() error

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewWaker creates a Waker calling fire every interval.
func NewWaker(interval time.Duration, fire func() error) *Waker {
	if interval <= 0 {
		interval = DefaultWakeInterval
	}
	return &Waker{
		interval: interval,
		fire:     fire,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the goroutine. Subsequent calls do nothing.
func (w *Waker) Start() {
	w.startOnce.Do(func() {
		go w.run()
	})
}

func (w *Waker) run() {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			if err := w.fire(); err != nil {
				// The host is going away; stop without taking anything down with us.
				slog.Warn(fmt.Sprintf("%s - host unreachable, stopping: %v", wakerLogPrefix, err))
				return
			}
		}
	}
}

// Stop ends the goroutine and waits for it to exit. Safe to call repeatedly,
// and before Start.
func (w *Waker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
	})
	started := true
	w.startOnce.Do(func() { started = false })
	if started {
		<-w.done
	}
}

// Done is closed once the goroutine has exited.
func (w *Waker) Done() <-chan struct{} {
	return w.done
}
