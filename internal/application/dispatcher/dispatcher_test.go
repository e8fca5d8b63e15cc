package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/garyjia/expense-approval/internal/domain/event"
)

type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockLogger) ErrorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

func TestPublishAsync(t *testing.T) {
	t.Run("only matching event type is delivered", func(t *testing.T) {
		d := NewDispatcher()
		var approved, rejected atomic.Int32
		d.Subscribe(event.TypeClaimApproved, "approved", func(ctx context.Context, evt *event.Event) error {
			approved.Add(1)
			return nil
		})
		d.Subscribe(event.TypeClaimRejected, "rejected", func(ctx context.Context, evt *event.Event) error {
			rejected.Add(1)
			return nil
		})

		d.PublishAsync(context.Background(), event.NewEvent(event.TypeClaimRejected, 1, nil))
		_ = d.Close()

		if approved.Load() != 0 || rejected.Load() != 1 {
			t.Errorf("expected only the rejected handler, got approved=%d rejected=%d", approved.Load(), rejected.Load())
		}
	})

	t.Run("panicking handler is logged and does not stop others", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))
		var ran atomic.Bool
		d.Subscribe(event.TypeClaimStalled, "panics", func(ctx context.Context, evt *event.Event) error {
			panic("bad handler")
		})
		d.Subscribe(event.TypeClaimStalled, "fine", func(ctx context.Context, evt *event.Event) error {
			ran.Store(true)
			return nil
		})

		d.PublishAsync(context.Background(), event.NewEvent(event.TypeClaimStalled, 1, nil))
		_ = d.Close()

		if !ran.Load() {
			t.Error("second handler did not run")
		}
		if logger.ErrorCount() != 1 {
			t.Errorf("expected 1 error log, got %d", logger.ErrorCount())
		}
	})

	t.Run("events after close are dropped", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))
		var called atomic.Bool
		d.Subscribe(event.TypeClaimSubmitted, "late", func(ctx context.Context, evt *event.Event) error {
			called.Store(true)
			return nil
		})

		if err := d.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		d.PublishAsync(context.Background(), event.NewEvent(event.TypeClaimSubmitted, 1, nil))

		if called.Load() {
			t.Error("handler ran after close")
		}
		if logger.ErrorCount() != 1 {
			t.Errorf("expected a dropped-event log, got %d", logger.ErrorCount())
		}
	})

	t.Run("close waits for running handlers", func(t *testing.T) {
		d := NewDispatcher()
		var done atomic.Int32

		for i := 0; i < 3; i++ {
			d.Subscribe(event.TypeClaimApproved, "", func(ctx context.Context, evt *event.Event) error {
				time.Sleep(20 * time.Millisecond)
				done.Add(1)
				return nil
			})
		}

		d.PublishAsync(context.Background(), event.NewEvent(event.TypeClaimApproved, 7, nil))
		if err := d.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		if got := done.Load(); got != 3 {
			t.Errorf("expected 3 completed handlers, got %d", got)
		}
	})

	t.Run("handlers outlive a cancelled caller context", func(t *testing.T) {
		d := NewDispatcher()
		var ctxErr atomic.Value

		d.Subscribe(event.TypeStepActivated, "check", func(ctx context.Context, evt *event.Event) error {
			time.Sleep(10 * time.Millisecond)
			if ctx.Err() != nil {
				ctxErr.Store(ctx.Err())
			}
			return nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		d.PublishAsync(ctx, event.NewEvent(event.TypeStepActivated, 1, nil))
		cancel()
		_ = d.Close()

		if v := ctxErr.Load(); v != nil {
			t.Errorf("handler saw cancelled context: %v", v)
		}
	})

	t.Run("errors are logged", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))
		d.Subscribe(event.TypeClaimRejected, "failing", func(ctx context.Context, evt *event.Event) error {
			return errors.New("delivery failed")
		})

		d.PublishAsync(context.Background(), event.NewEvent(event.TypeClaimRejected, 1, nil))
		_ = d.Close()

		if logger.ErrorCount() != 1 {
			t.Errorf("expected 1 error log, got %d", logger.ErrorCount())
		}
	})
}

func TestClose_ConcurrentPublish(t *testing.T) {
	for round := 0; round < 50; round++ {
		d := NewDispatcher()
		var started, finished atomic.Int32
		d.Subscribe(event.TypeStepDecided, "slow", func(ctx context.Context, evt *event.Event) error {
			started.Add(1)
			time.Sleep(time.Millisecond)
			finished.Add(1)
			return nil
		})

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				d.PublishAsync(context.Background(), event.NewEvent(event.TypeStepDecided, id, nil))
			}(int64(i))
		}

		if err := d.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		// Close must not return while an accepted handler is still running
		if s, f := started.Load(), finished.Load(); s != f {
			t.Fatalf("round %d: %d handlers started but only %d finished before Close returned", round, s, f)
		}
		wg.Wait()
		if s, f := started.Load(), finished.Load(); s != f {
			t.Fatalf("round %d: handler started after Close returned (%d started, %d finished)", round, s, f)
		}
	}
}

func TestSubscribers(t *testing.T) {
	d := NewDispatcher()
	d.Subscribe(event.TypeClaimSubmitted, "notify", func(ctx context.Context, evt *event.Event) error { return nil })
	d.Subscribe(event.TypeClaimSubmitted, "", func(ctx context.Context, evt *event.Event) error { return nil })

	names := d.Subscribers(event.TypeClaimSubmitted)
	if len(names) != 2 {
		t.Fatalf("expected 2 subscribers, got %d", len(names))
	}
	if names[0] != "notify" || names[1] != "claim.submitted#1" {
		t.Errorf("unexpected names: %v", names)
	}

	if err := d.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := d.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second close should return ErrClosed, got %v", err)
	}
}
