package maintainer

import (
	"context"
	"log/slog"

	"github.com/gamegraph/gamegraph/internal/metrics"
	"github.com/gamegraph/gamegraph/internal/models"
)

// Outbox records users whose graph node still has to be written.
type Outbox interface {
	AddPendingMirror(ctx context.Context, user models.UserRef, cause string) error
}

// Mirror copies newly registered users into the graph without ever failing
// the registration itself. Users that could not be mirrored are queued in
// the outbox for lifecycle.Reconciler.
type Mirror struct {
	maintainer *Maintainer
	outbox     Outbox
	logger     *slog.Logger
}

// NewMirror creates a Mirror.
func NewMirror(m *Maintainer, outbox Outbox, logger *slog.Logger) *Mirror {
	return &Mirror{
		maintainer: m,
		outbox:     outbox,
		logger:     logger.With("component", "mirror"),
	}
}

// UserRegistered mirrors user into the graph. It reports whether the write
// happened now (false means it was queued).
func (mi *Mirror) UserRegistered(ctx context.Context, user models.UserRef) bool {
	err := mi.maintainer.EnsureUser(ctx, user.ID, user.Username)
	if err == nil {
		return true
	}

	mi.logger.Warn("graph mirror deferred", "user_id", user.ID, "username", user.Username, "error", err)
	metrics.Inc(metrics.MirrorDeferred)
	if qerr := mi.outbox.AddPendingMirror(ctx, user, err.Error()); qerr != nil {
		mi.logger.Error("queueing graph mirror", "user_id", user.ID, "error", qerr)
	}
	return false
}
