package revision

import (
	"context"
	"sync"
	"time"

	"github.com/alchemorsel/recipediff/internal/ports/inbound"
	"go.uber.org/zap"
)

// RetentionScheduler periodically deletes revisions that have been
// archived for longer than the retention period
type RetentionScheduler struct {
	service   inbound.RevisionService
	interval  time.Duration
	olderThan time.Duration
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	lastRun RetentionRun
}

// RetentionRun describes the outcome of the latest prune
type RetentionRun struct {
	At      time.Time
	Deleted int64
	Err     error
}

// NewRetentionScheduler creates a scheduler running every interval
func NewRetentionScheduler(service inbound.RevisionService, interval, olderThan time.Duration, logger *zap.Logger) *RetentionScheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &RetentionScheduler{
		service:   service,
		interval:  interval,
		olderThan: olderThan,
		logger:    logger.Named("retention"),
	}
}

// Start runs the scheduler in the background until Stop is called. A
// first run happens right away.
func (r *RetentionScheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.RunOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.RunOnce(ctx)
			}
		}
	}()

	r.logger.Info("Retention scheduler started",
		zap.Duration("interval", r.interval),
		zap.Duration("older_than", r.olderThan),
	)
}

// RunOnce prunes archived revisions once
func (r *RetentionScheduler) RunOnce(ctx context.Context) {
	n, err := r.service.PruneArchived(ctx, r.olderThan)
	if err != nil && ctx.Err() != nil {
		return
	}
	if err != nil {
		r.logger.Error("Failed to prune archived revisions", zap.Error(err))
	}

	r.mu.Lock()
	r.lastRun = RetentionRun{At: time.Now().UTC(), Deleted: n, Err: err}
	r.mu.Unlock()
}

// LastRun returns the outcome of the latest prune. The zero value means
// no prune has completed yet.
func (r *RetentionScheduler) LastRun() RetentionRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRun
}

// Stop stops the scheduler and waits for a running prune to finish
func (r *RetentionScheduler) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	r.wg.Wait()
	r.logger.Info("Retention scheduler stopped")
}
