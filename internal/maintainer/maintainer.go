// Package maintainer applies the three write operations of the relationship
// graph: mirroring a user, adding a friendship and recording a play. It
// resolves names and titles through the catalog and never writes a graph
// edge whose endpoint does not exist there.
package maintainer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gamegraph/gamegraph/internal/graph"
	"github.com/gamegraph/gamegraph/internal/metrics"
	"github.com/gamegraph/gamegraph/internal/models"
)

// Catalog is the subset of the catalog store the maintainer uses.
type Catalog interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetItem(ctx context.Context, id int64) (*models.Item, error)
	RemovePendingMirror(ctx context.Context, userID int64) error
}

// Options tunes Maintainer behaviour.
type Options struct {
	// MutualFriendship also writes the reverse KNOWS edge in AddFriend.
	MutualFriendship bool

	// Clock stamps PLAYS edges. Defaults to time.Now.
	Clock func() time.Time
}

// Maintainer keeps the graph in step with user actions.
type Maintainer struct {
	graph   graph.Graph
	catalog Catalog
	opts    Options
	logger  *slog.Logger
}

// New creates a Maintainer.
func New(g graph.Graph, c Catalog, opts Options, logger *slog.Logger) *Maintainer {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Maintainer{
		graph:   g,
		catalog: c,
		opts:    opts,
		logger:  logger.With("component", "maintainer"),
	}
}

// EnsureUser guarantees a User node exists for userID and refreshes its username.
func (m *Maintainer) EnsureUser(ctx context.Context, userID int64, username string) error {
	if userID <= 0 || username == "" {
		return fmt.Errorf("ensure user %d %q: %w", userID, username, models.ErrInvalidOperation)
	}
	if err := m.graph.UpsertUser(ctx, userID, username); err != nil {
		return fmt.Errorf("ensure user %d: %w", userID, err)
	}
	metrics.Inc(metrics.UsersMirrored)
	return nil
}

// AddFriend records that the caller KNOWS the user named toUsername.
func (m *Maintainer) AddFriend(ctx context.Context, fromID int64, fromUsername, toUsername string) error {
	if fromUsername == toUsername {
		return fmt.Errorf("user %q cannot befriend themselves: %w", fromUsername, models.ErrInvalidOperation)
	}

	target, err := m.catalog.GetUserByUsername(ctx, toUsername)
	if err != nil {
		return fmt.Errorf("looking up %q: %w", toUsername, err)
	}
	if target.ID == fromID {
		return fmt.Errorf("user %d cannot befriend themselves: %w", fromID, models.ErrInvalidOperation)
	}

	from := models.UserRef{ID: fromID, Username: fromUsername}
	to := target.Ref()
	if err := m.graph.UpsertKnows(ctx, from, to); err != nil {
		return fmt.Errorf("adding friend %q: %w", toUsername, err)
	}
	if m.opts.MutualFriendship {
		if err := m.graph.UpsertKnows(ctx, to, from); err != nil {
			return fmt.Errorf("adding reverse friendship for %q: %w", toUsername, err)
		}
	}

	metrics.Inc(metrics.FriendsAdded)
	m.logger.Info("friend added", "user_id", fromID, "friend_id", to.ID, "mutual", m.opts.MutualFriendship)
	return nil
}

// RecordActivity upserts the caller's PLAYS edge to itemID and returns the
// game title. A nil rating means "not rated".
func (m *Maintainer) RecordActivity(ctx context.Context, userID, itemID int64, status models.PlayStatus, rating *int) (string, error) {
	item, err := m.catalog.GetItem(ctx, itemID)
	if err != nil {
		return "", fmt.Errorf("looking up game %d: %w", itemID, err)
	}
	if !models.ValidRating(rating) {
		return "", fmt.Errorf("rating %d outside %d..%d: %w", *rating, models.MinRating, models.MaxRating, models.ErrInvalidOperation)
	}
	if !status.IsKnown() {
		m.logger.Debug("storing unrecognised play status", "status", string(status), "item_id", itemID)
	}

	play := models.Play{Status: status, Rating: rating, PlayedAt: m.opts.Clock().UTC()}
	err = m.graph.UpsertPlay(ctx, userID, *item, item.Genres(), play)
	if errors.Is(err, models.ErrNotFound) {
		// The item exists in the catalog, so only the User node can be missing.
		if err = m.mirrorCaller(ctx, userID); err != nil {
			return "", fmt.Errorf("recording play of game %d: %w", itemID, err)
		}
		err = m.graph.UpsertPlay(ctx, userID, *item, item.Genres(), play)
	}
	if err != nil {
		return "", fmt.Errorf("recording play of game %d: %w", itemID, err)
	}

	metrics.Inc(metrics.PlaysRecorded)
	m.logger.Info("activity recorded", "user_id", userID, "item_id", itemID, "status", string(status))
	return item.Title, nil
}

// mirrorCaller writes the User node for a caller whose registration mirror
// is still pending, then drops the outbox row.
func (m *Maintainer) mirrorCaller(ctx context.Context, userID int64) error {
	user, err := m.catalog.GetUserByID(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("user %d: %w", userID, models.ErrUnknownUser)
	}
	if err != nil {
		return fmt.Errorf("looking up user %d: %w", userID, err)
	}
	if err := m.EnsureUser(ctx, user.ID, user.Username); err != nil {
		return err
	}
	if err := m.catalog.RemovePendingMirror(ctx, userID); err != nil {
		// The reconciler will retry the row; EnsureUser is idempotent.
		m.logger.Warn("clearing pending mirror", "user_id", userID, "error", err)
	}
	m.logger.Info("mirrored pending user on first play", "user_id", userID)
	return nil
}
