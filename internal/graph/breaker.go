package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/gamegraph/gamegraph/internal/metrics"
	"github.com/gamegraph/gamegraph/internal/models"
)

// BreakerConfig configures the circuit breaker in front of a Graph.
type BreakerConfig struct {
	// MaxRequests is the number of trial calls allowed while half-open.
	MaxRequests uint32

	// Interval is the cyclic period after which closed-state counts reset.
	Interval time.Duration

	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration

	// FailureThreshold is the number of consecutive unavailable errors that opens the breaker.
	FailureThreshold uint32
}

// DefaultBreakerConfig returns production defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}

// BreakerGraph fails fast with models.ErrStoreUnavailable once the wrapped
// Graph has been unreachable FailureThreshold times in a row. Only
// unavailability counts as a failure; not-found and query errors pass through.
type BreakerGraph struct {
	inner Graph
	cb    *gobreaker.CircuitBreaker[any]
}

// NewBreakerGraph wraps inner with a circuit breaker.
func NewBreakerGraph(inner Graph, cfg BreakerConfig, logger *slog.Logger) *BreakerGraph {
	settings := gobreaker.Settings{
		Name:        "graph",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, models.ErrStoreUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("graph circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &BreakerGraph{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[any](settings),
	}
}

// State reports the breaker state, for health output.
func (b *BreakerGraph) State() string {
	return b.cb.State().String()
}

func guard[T any](b *BreakerGraph, fn func() (T, error)) (T, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if errors.Is(err, models.ErrStoreUnavailable) {
			metrics.Inc(metrics.GraphUnavailable)
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.Inc(metrics.GraphUnavailable)
			return zero, fmt.Errorf("graph circuit %s: %w", b.cb.State().String(), models.ErrStoreUnavailable)
		}
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}

func guardErr(b *BreakerGraph, fn func() error) error {
	_, err := guard(b, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// EnsureSchema implements Graph.
func (b *BreakerGraph) EnsureSchema(ctx context.Context) error {
	return guardErr(b, func() error { return b.inner.EnsureSchema(ctx) })
}

// UpsertUser implements Graph.
func (b *BreakerGraph) UpsertUser(ctx context.Context, userID int64, username string) error {
	return guardErr(b, func() error { return b.inner.UpsertUser(ctx, userID, username) })
}

// UpsertItem implements Graph.
func (b *BreakerGraph) UpsertItem(ctx context.Context, item models.Item, genres []string) error {
	return guardErr(b, func() error { return b.inner.UpsertItem(ctx, item, genres) })
}

// UpsertKnows implements Graph.
func (b *BreakerGraph) UpsertKnows(ctx context.Context, from, to models.UserRef) error {
	return guardErr(b, func() error { return b.inner.UpsertKnows(ctx, from, to) })
}

// UpsertPlay implements Graph.
func (b *BreakerGraph) UpsertPlay(ctx context.Context, userID int64, item models.Item, genres []string, play models.Play) error {
	return guardErr(b, func() error { return b.inner.UpsertPlay(ctx, userID, item, genres, play) })
}

// FriendsActivity implements Graph.
func (b *BreakerGraph) FriendsActivity(ctx context.Context, userID int64, limit int) ([]models.FriendActivity, error) {
	return guard(b, func() ([]models.FriendActivity, error) { return b.inner.FriendsActivity(ctx, userID, limit) })
}

// GenreCandidates implements Graph.
func (b *BreakerGraph) GenreCandidates(ctx context.Context, userID int64, topGenres, limit int) ([]models.GenreRecommendation, error) {
	return guard(b, func() ([]models.GenreRecommendation, error) {
		return b.inner.GenreCandidates(ctx, userID, topGenres, limit)
	})
}

// FriendCandidates implements Graph.
func (b *BreakerGraph) FriendCandidates(ctx context.Context, userID int64, limit int) ([]models.FriendSuggestion, error) {
	return guard(b, func() ([]models.FriendSuggestion, error) { return b.inner.FriendCandidates(ctx, userID, limit) })
}

// Stats implements Graph.
func (b *BreakerGraph) Stats(ctx context.Context) (*models.GraphStats, error) {
	return guard(b, func() (*models.GraphStats, error) { return b.inner.Stats(ctx) })
}

// Ping bypasses the breaker so health checks always reach the store.
func (b *BreakerGraph) Ping(ctx context.Context) error {
	return b.inner.Ping(ctx)
}

// Close implements Graph.
func (b *BreakerGraph) Close(ctx context.Context) error {
	return b.inner.Close(ctx)
}
