// Package lifecycle re-drives graph writes that were deferred while the graph
// store was unavailable.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/gamegraph/gamegraph/internal/catalog"
	"github.com/gamegraph/gamegraph/internal/metrics"
	"github.com/gamegraph/gamegraph/internal/models"
)

// Report summarizes the results of a reconcile run.
type Report struct {
	Reconciled int `json:"reconciled"`
	Failed     int `json:"failed"`
	Remaining  int `json:"remaining"`
}

// Outbox is the catalog side of the pending-mirror queue.
type Outbox interface {
	ListPendingMirrors(ctx context.Context, limit int) ([]catalog.PendingMirror, error)
	RemovePendingMirror(ctx context.Context, userID int64) error
	AddPendingMirror(ctx context.Context, user models.UserRef, cause string) error
}

// UserWriter writes a User node; *maintainer.Maintainer satisfies it.
type UserWriter interface {
	EnsureUser(ctx context.Context, userID int64, username string) error
}

// Options tunes a Manager.
type Options struct {
	// BatchSize caps the rows taken from the outbox per run. 0 means all.
	BatchSize int

	// RatePerSecond paces graph writes. 0 disables pacing.
	RatePerSecond float64
}

// Manager handles pending-mirror reconciliation.
type Manager struct {
	outbox  Outbox
	writer  UserWriter
	limiter *rate.Limiter
	opts    Options
	logger  *slog.Logger
}

// NewManager creates a new lifecycle manager.
func NewManager(outbox Outbox, writer UserWriter, opts Options, logger *slog.Logger) *Manager {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}
	return &Manager{
		outbox:  outbox,
		writer:  writer,
		limiter: limiter,
		opts:    opts,
		logger:  logger.With("component", "lifecycle"),
	}
}

// Run mirrors every pending user into the graph, removing outbox rows that
// succeed. Failures stay queued with their attempt count bumped. A run stops
// early once the graph reports itself unavailable.
func (m *Manager) Run(ctx context.Context, dryRun bool) (*Report, error) {
	pending, err := m.outbox.ListPendingMirrors(ctx, m.opts.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("listing pending mirrors: %w", err)
	}

	report := &Report{}
	for i, p := range pending {
		if dryRun {
			m.logger.Info("would reconcile user", "user_id", p.User.ID, "username", p.User.Username, "attempts", p.Attempts)
			report.Remaining++
			continue
		}
		if err := m.limiter.Wait(ctx); err != nil {
			report.Remaining += len(pending) - i
			return report, fmt.Errorf("waiting for rate limiter: %w", err)
		}

		if err := m.writer.EnsureUser(ctx, p.User.ID, p.User.Username); err != nil {
			m.logger.Warn("reconcile failed", "user_id", p.User.ID, "attempts", p.Attempts, "error", err)
			report.Failed++
			if qerr := m.outbox.AddPendingMirror(ctx, p.User, err.Error()); qerr != nil {
				m.logger.Error("re-queueing pending mirror", "user_id", p.User.ID, "error", qerr)
			}
			if isUnavailable(err) {
				report.Remaining += len(pending) - i - 1
				break
			}
			continue
		}

		if err := m.outbox.RemovePendingMirror(ctx, p.User.ID); err != nil {
			// The user is mirrored; a leftover row is replayed harmlessly next run.
			m.logger.Error("removing pending mirror", "user_id", p.User.ID, "error", err)
		}
		metrics.Inc(metrics.MirrorReconciled)
		m.logger.Info("user reconciled", "user_id", p.User.ID, "username", p.User.Username)
		report.Reconciled++
	}
	report.Remaining += report.Failed

	return report, nil
}

// RunEvery calls Run on every tick until ctx is cancelled.
func (m *Manager) RunEvery(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := m.Run(ctx, false)
			if err != nil {
				m.logger.Error("reconcile run failed", "error", err)
				continue
			}
			if report.Reconciled > 0 || report.Failed > 0 {
				m.logger.Info("reconcile run complete", "reconciled", report.Reconciled, "failed", report.Failed, "remaining", report.Remaining)
			}
		}
	}
}

func isUnavailable(err error) bool {
	return err != nil && errors.Is(err, models.ErrStoreUnavailable)
}
