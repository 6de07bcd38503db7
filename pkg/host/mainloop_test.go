package host

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func runLoop(t *testing.T) *MainLoop {
	t.Helper()
	l := NewMainLoop()
	go func() { _ = l.Run(context.Background()) }()
	t.Cleanup(l.Shutdown)
	return l
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("host:mainloop_test - condition not met in time")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestMainLoop_FireRunsCallback(t *testing.T) {
	l := runLoop(t)
	var calls atomic.Int32
	if err := l.RegisterSignal("drain", func() { calls.Add(1) }); err != nil {
		t.Fatalf("host:mainloop_test - RegisterSignal failed: %v", err)
	}
	if err := l.FireSignal("drain"); err != nil {
		t.Fatalf("host:mainloop_test - FireSignal failed: %v", err)
	}
	waitFor(t, func() bool { return calls.Load() == 1 })
}

func TestMainLoop_CallbacksShareOneThread(t *testing.T) {
	l := runLoop(t)
	var mu sync.Mutex
	var active, maxActive int
	var calls atomic.Int32
	_ = l.RegisterSignal("work", func() {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		time.Sleep(time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
		calls.Add(1)
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = l.FireSignal("work")
				time.Sleep(time.Millisecond)
			}
		}()
	}
	wg.Wait()
	_ = l.FireSignal("work")
	waitFor(t, func() bool { return calls.Load() > 0 })

	mu.Lock()
	defer mu.Unlock()
	if maxActive != 1 {
		t.Errorf("host:mainloop_test - %d callbacks overlapped", maxActive)
	}
}

func TestMainLoop_FiresCoalesce(t *testing.T) {
	l := NewMainLoop()
	var calls atomic.Int32
	_ = l.RegisterSignal("drain", func() { calls.Add(1) })

	// Fired before the loop runs: the three fires collapse into one run.
	for i := 0; i < 3; i++ {
		if err := l.FireSignal("drain"); err != nil {
			t.Fatalf("host:mainloop_test - FireSignal failed: %v", err)
		}
	}
	go func() { _ = l.Run(context.Background()) }()
	defer l.Shutdown()

	waitFor(t, func() bool { return calls.Load() >= 1 })
	time.Sleep(20 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("host:mainloop_test - callback ran %d times, want 1", got)
	}
}

func TestMainLoop_PanickingCallbackDoesNotKillLoop(t *testing.T) {
	l := runLoop(t)
	var ok atomic.Bool
	_ = l.RegisterSignal("bad", func() { panic("boom") })
	_ = l.RegisterSignal("good", func() { ok.Store(true) })

	_ = l.FireSignal("bad")
	_ = l.FireSignal("good")
	waitFor(t, ok.Load)
}

func TestMainLoop_UnknownSignal(t *testing.T) {
	l := NewMainLoop()
	defer l.Shutdown()
	if err := l.FireSignal("nope"); !errors.Is(err, ErrUnknownSignal) {
		t.Errorf("host:mainloop_test - FireSignal err = %v, want ErrUnknownSignal", err)
	}
	if err := l.UnregisterSignal("nope"); !errors.Is(err, ErrUnknownSignal) {
		t.Errorf("host:mainloop_test - UnregisterSignal err = %v, want ErrUnknownSignal", err)
	}
	if err := l.RegisterSignal("nil", nil); err == nil {
		t.Error("host:mainloop_test - nil callback should be rejected")
	}
}

func TestMainLoop_UnregisterDropsPendingFire(t *testing.T) {
	l := NewMainLoop()
	var calls atomic.Int32
	_ = l.RegisterSignal("drain", func() { calls.Add(1) })
	_ = l.FireSignal("drain")
	if err := l.UnregisterSignal("drain"); err != nil {
		t.Fatalf("host:mainloop_test - UnregisterSignal failed: %v", err)
	}

	go func() { _ = l.Run(context.Background()) }()
	time.Sleep(20 * time.Millisecond)
	l.Shutdown()
	if calls.Load() != 0 {
		t.Error("host:mainloop_test - callback ran after its signal was removed")
	}
}

func TestMainLoop_Shutdown(t *testing.T) {
	l := NewMainLoop()
	_ = l.RegisterSignal("drain", func() {})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()
	waitFor(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return l.state == stateRunning
	})

	l.Shutdown()
	l.Shutdown()
	select {
	case <-l.Done():
	default:
		t.Fatal("host:mainloop_test - Done not closed after Shutdown")
	}
	if err := <-errc; err != nil {
		t.Errorf("host:mainloop_test - Run returned %v", err)
	}
	if err := l.FireSignal("drain"); !errors.Is(err, ErrHostStopped) {
		t.Errorf("host:mainloop_test - FireSignal after Shutdown err = %v, want ErrHostStopped", err)
	}
	if err := l.RegisterSignal("late", func() {}); !errors.Is(err, ErrHostStopped) {
		t.Errorf("host:mainloop_test - RegisterSignal after Shutdown err = %v", err)
	}
	if err := l.Run(context.Background()); err == nil {
		t.Error("host:mainloop_test - second Run should fail")
	}
}

func TestMainLoop_ShutdownBeforeRun(t *testing.T) {
	l := NewMainLoop()
	l.Shutdown()
	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("host:mainloop_test - Done not closed for a loop that never ran")
	}
	if err := l.Run(context.Background()); err == nil {
		t.Error("host:mainloop_test - Run after Shutdown should fail")
	}
}

func TestMainLoop_ContextCancel(t *testing.T) {
	l := NewMainLoop()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()
	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("host:mainloop_test - Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("host:mainloop_test - Run ignored context cancellation")
	}
	l.Shutdown()
}
