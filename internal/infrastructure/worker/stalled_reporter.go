package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/garyjia/expense-approval/internal/domain/entity"
	"go.uber.org/zap"
)

// StalledClaimLister is the read side the reporter needs
type StalledClaimLister interface {
	ListStalled(ctx context.Context) ([]*entity.Claim, error)
}

// StalledClaimReporter periodically logs PENDING claims that have no approver
// so an admin can assign one. It never modifies claims.
type StalledClaimReporter struct {
	claims   StalledClaimLister
	interval time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
	lastSeen int
}

// NewStalledClaimReporter creates a reporter. A non-positive interval defaults to one hour.
func NewStalledClaimReporter(claims StalledClaimLister, interval time.Duration, logger *zap.Logger) *StalledClaimReporter {
	if interval <= 0 {
		interval = time.Hour
	}
	return &StalledClaimReporter{
		claims:   claims,
		interval: interval,
		logger:   logger,
	}
}

// Name returns the worker name for identification
func (r *StalledClaimReporter) Name() string {
	return "StalledClaimReporter"
}

// Start runs one report immediately and then one per interval
func (r *StalledClaimReporter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("stalled claim reporter already running")
	}

	var loopCtx context.Context
	loopCtx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	r.running = true

	go r.loop(loopCtx, r.done)

	r.logger.Info("StalledClaimReporter started", zap.Duration("interval", r.interval))
	return nil
}

// Stop terminates the loop and waits for an in-flight report
func (r *StalledClaimReporter) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.cancel()
	done := r.done
	r.mu.Unlock()

	<-done
	return nil
}

func (r *StalledClaimReporter) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.Report(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Report(ctx)
		}
	}
}

// Report logs a summary of stalled claims and returns how many there are
func (r *StalledClaimReporter) Report(ctx context.Context) int {
	stalled, err := r.claims.ListStalled(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Error("Failed to list stalled claims", zap.Error(err))
		}
		return 0
	}

	r.mu.Lock()
	r.lastSeen = len(stalled)
	r.mu.Unlock()

	if len(stalled) == 0 {
		r.logger.Debug("No stalled claims")
		return 0
	}

	ids := make([]int64, 0, len(stalled))
	oldest := stalled[0].CreatedAt
	for _, c := range stalled {
		ids = append(ids, c.ID)
		if c.CreatedAt.Before(oldest) {
			oldest = c.CreatedAt
		}
	}

	r.logger.Warn("Claims waiting for manual approver assignment",
		zap.Int("count", len(stalled)),
		zap.Int64s("claim_ids", ids),
		zap.Time("oldest_submitted_at", oldest))

	return len(stalled)
}

// LastSeen returns the count found by the most recent report
func (r *StalledClaimReporter) LastSeen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSeen
}
