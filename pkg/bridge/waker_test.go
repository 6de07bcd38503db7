package bridge

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestWaker_FiresPeriodically(t *testing.T) {
	var fires atomic.Int32
	w := NewWaker(5*time.Millisecond, func() error {
		fires.Add(1)
		return nil
	})
	w.Start()
	w.Start()

	deadline := time.Now().Add(2 * time.Second)
	for fires.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	w.Stop()
	if fires.Load() < 3 {
		t.Fatalf("bridge:waker_test - fired %d times, want at least 3", fires.Load())
	}

	after := fires.Load()
	time.Sleep(30 * time.Millisecond)
	if fires.Load() != after {
		t.Error("bridge:waker_test - waker kept firing after Stop")
	}
	w.Stop()
}

func TestWaker_StopsQuietlyWhenHostGone(t *testing.T) {
	w := NewWaker(5*time.Millisecond, func() error {
		return errors.New("host stopped")
	})
	w.Start()

	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("bridge:waker_test - waker did not exit after a fire error")
	}
	w.Stop()
}

func TestWaker_StopBeforeStart(t *testing.T) {
	w := NewWaker(0, func() error { return nil })
	if w.interval != DefaultWakeInterval {
		t.Errorf("bridge:waker_test - interval = %s, want default", w.interval)
	}
	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("bridge:waker_test - Stop before Start blocked")
	}
}
