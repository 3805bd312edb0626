package service

import (
	"context"
	"time"

	"github.com/Payphone-Digital/socialhub/internal/repository"
	ctxutil "github.com/Payphone-Digital/socialhub/pkg/context"
	"github.com/Payphone-Digital/socialhub/pkg/logger"
)

// PendingJanitor deletes pending registrations older than its retention.
// Retention must outlast the confirmation window so a stale link still
// reports Expired rather than NotFound.
type PendingJanitor struct {
	pending   *repository.UnconfirmedUserRepository
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

func NewPendingJanitor(pending *repository.UnconfirmedUserRepository, retention, interval time.Duration, now func() time.Time) *PendingJanitor {
	if now == nil {
		now = time.Now
	}
	return &PendingJanitor{pending: pending, retention: retention, interval: interval, now: now}
}

// Run sweeps once immediately and then every interval until ctx is done
func (j *PendingJanitor) Run(ctx context.Context) {
	ctx = ctxutil.WithFunction(ctx, moduleName, "PendingJanitor")

	if j.interval <= 0 {
		logger.InfoWithContext(ctx, "Pending janitor disabled").Log()
		return
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		if _, err := j.Sweep(ctx); err != nil && ctx.Err() == nil {
			logger.ErrorWithContext(ctx, "Pending sweep failed").Err(err).Log()
		}

		select {
		case <-ctx.Done():
			logger.InfoWithContext(ctx, "Pending janitor stopped").Log()
			return
		case <-ticker.C:
		}
	}
}

// Sweep deletes every pending row older than the retention
func (j *PendingJanitor) Sweep(ctx context.Context) (int64, error) {
	cutoff := j.now().UTC().Add(-j.retention)

	n, err := j.pending.DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if n > 0 {
		logger.InfoWithContext(ctx, "Stale pending registrations purged").
			Int64("deleted", n).
			Log()
	}
	return n, nil
}
