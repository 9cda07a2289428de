// Package recommend ranks games and people for a user from the relationship
// graph. Every ranking is read-only, deterministic for a fixed graph and
// bounded to ranking.MaxResults entries.
package recommend

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/gamegraph/gamegraph/internal/graph"
	"github.com/gamegraph/gamegraph/internal/metrics"
	"github.com/gamegraph/gamegraph/internal/models"
	"github.com/gamegraph/gamegraph/internal/ranking"
)

// NoGenreRecommendationsMessage accompanies an empty by-genre ranking.
const NoGenreRecommendationsMessage = "no genre recommendations yet: play more games"

// Engine answers the three recommendation queries.
type Engine struct {
	graph  graph.Graph
	logger *slog.Logger
}

// NewEngine creates an Engine over g.
func NewEngine(g graph.Graph, logger *slog.Logger) *Engine {
	return &Engine{
		graph:  g,
		logger: logger.With("component", "recommend"),
	}
}

// RecommendByFriendsActivity returns games the caller's friends played and
// the caller has not, most recently played first.
func (e *Engine) RecommendByFriendsActivity(ctx context.Context, userID int64) ([]models.FriendActivity, error) {
	recs, err := e.graph.FriendsActivity(ctx, userID, ranking.MaxResults)
	if err != nil {
		return nil, fmt.Errorf("friends activity for user %d: %w", userID, err)
	}
	if recs == nil {
		recs = []models.FriendActivity{}
	}
	ranking.SortFriendActivity(recs)
	metrics.Inc(metrics.RecommendationsMade)
	e.logger.Debug("friends activity ranked", "user_id", userID, "count", len(recs))
	return ranking.Limit(recs, ranking.MaxResults), nil
}

// RecommendByGenre returns unplayed games sharing the caller's most played
// genres. An empty ranking carries NoGenreRecommendationsMessage.
func (e *Engine) RecommendByGenre(ctx context.Context, userID int64) (*models.GenreRecommendations, error) {
	recs, err := e.graph.GenreCandidates(ctx, userID, ranking.TopGenres, ranking.MaxResults)
	if err != nil {
		return nil, fmt.Errorf("genre recommendations for user %d: %w", userID, err)
	}
	if recs == nil {
		recs = []models.GenreRecommendation{}
	}
	ranking.SortGenreRecommendations(recs)
	metrics.Inc(metrics.RecommendationsMade)

	out := &models.GenreRecommendations{Items: ranking.Limit(recs, ranking.MaxResults)}
	if len(out.Items) == 0 {
		out.Message = NoGenreRecommendationsMessage
	}
	e.logger.Debug("genre recommendations ranked", "user_id", userID, "count", len(out.Items))
	return out, nil
}

// SuggestFriends returns friends-of-friends and users with shared genres the
// caller does not already know.
func (e *Engine) SuggestFriends(ctx context.Context, userID int64) ([]models.FriendSuggestion, error) {
	recs, err := e.graph.FriendCandidates(ctx, userID, ranking.MaxResults)
	if err != nil {
		return nil, fmt.Errorf("friend suggestions for user %d: %w", userID, err)
	}
	if recs == nil {
		recs = []models.FriendSuggestion{}
	}
	for i := range recs {
		if recs[i].CommonGenres == nil {
			recs[i].CommonGenres = []string{}
		}
	}
	ranking.SortFriendSuggestions(recs)
	metrics.Inc(metrics.RecommendationsMade)
	e.logger.Debug("friend suggestions ranked", "user_id", userID, "count", len(recs))
	return ranking.Limit(recs, ranking.MaxResults), nil
}

// Dashboard runs the three rankings concurrently. Any failure fails the whole
// dashboard.
func (e *Engine) Dashboard(ctx context.Context, userID int64) (*models.Dashboard, error) {
	var d models.Dashboard
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		recs, err := e.RecommendByFriendsActivity(gctx, userID)
		d.FriendsActivity = recs
		return err
	})
	g.Go(func() error {
		recs, err := e.RecommendByGenre(gctx, userID)
		if recs != nil {
			d.ByGenre = *recs
		}
		return err
	})
	g.Go(func() error {
		recs, err := e.SuggestFriends(gctx, userID)
		d.FriendSuggestions = recs
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &d, nil
}
