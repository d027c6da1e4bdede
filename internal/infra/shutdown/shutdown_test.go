package shutdown

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"testing"
	"time"
)

func recordHooks(h *Handler, n int) func() []int {
	var mu sync.Mutex
	var order []int
	for i := 1; i <= n; i++ {
		h.OnShutdown("hook", func(context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})
	}
	return func() []int {
		mu.Lock()
		defer mu.Unlock()
		return append([]int(nil), order...)
	}
}

func waitAsync(h *Handler, ctx context.Context) <-chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait(ctx) }()
	return errCh
}

func awaitResult(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not complete in time")
		return nil
	}
}

func TestHandler_Trigger(t *testing.T) {
	h := NewHandler(time.Second)
	order := recordHooks(h, 3)

	errCh := waitAsync(h, context.Background())
	h.Trigger()
	h.Trigger()

	if err := awaitResult(t, errCh); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
	got := order()
	if len(got) != 3 || got[0] != 3 || got[1] != 2 || got[2] != 1 {
		t.Errorf("hooks ran in order %v, want [3 2 1]", got)
	}

	select {
	case <-h.Done():
	default:
		t.Error("Done channel should be closed after Wait completes")
	}
}

func TestHandler_Signal(t *testing.T) {
	h := NewHandler(time.Second, WithSignals(syscall.SIGUSR1))
	order := recordHooks(h, 1)

	errCh := waitAsync(h, context.Background())
	time.Sleep(50 * time.Millisecond)
	syscall.Kill(syscall.Getpid(), syscall.SIGUSR1)

	if err := awaitResult(t, errCh); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
	if len(order()) != 1 {
		t.Error("hook did not run after signal")
	}
}

func TestHandler_ContextDone(t *testing.T) {
	h := NewHandler(time.Second)
	order := recordHooks(h, 2)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := waitAsync(h, ctx)
	cancel()

	if err := awaitResult(t, errCh); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
	if len(order()) != 2 {
		t.Error("hooks did not run after context end")
	}
}

func TestHandler_HookErrors(t *testing.T) {
	h := NewHandler(time.Second)
	errA := errors.New("a failed")
	errB := errors.New("b failed")

	var ran bool
	h.OnShutdown("first", func(context.Context) error { ran = true; return nil })
	h.OnShutdown("a", func(context.Context) error { return errA })
	h.OnShutdown("b", func(context.Context) error { return errB })

	errCh := waitAsync(h, context.Background())
	h.Trigger()

	err := awaitResult(t, errCh)
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Wait() error = %v, want both hook errors", err)
	}
	if !ran {
		t.Error("a failing hook must not stop later hooks")
	}
}

func TestHandler_HookTimeout(t *testing.T) {
	h := NewHandler(20 * time.Millisecond)
	h.OnShutdown("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	errCh := waitAsync(h, context.Background())
	h.Trigger()

	if err := awaitResult(t, errCh); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want deadline exceeded", err)
	}
}

func TestHandler_ConcurrentOnShutdown(t *testing.T) {
	h := NewHandler(time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.OnShutdown("noop", func(context.Context) error { return nil })
		}()
	}
	wg.Wait()

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.hooks) != 10 {
		t.Errorf("expected 10 hooks, got %d", len(h.hooks))
	}
}
