// Package graph stores the User/Item/Genre property graph and answers the
// bounded traversals the recommendation engine needs.
package graph

import (
	"context"

	"github.com/gamegraph/gamegraph/internal/models"
)

// Graph is the relationship store. Every mutation is an idempotent upsert and
// safe to call concurrently or retry. When the backing store cannot be
// reached, methods return an error wrapping models.ErrStoreUnavailable.
type Graph interface {
	// EnsureSchema creates uniqueness constraints on the node keys.
	EnsureSchema(ctx context.Context) error

	// UpsertUser merges a User node keyed by userID and refreshes its username.
	UpsertUser(ctx context.Context, userID int64, username string) error

	// UpsertItem merges an Item node, refreshes its title and merges one
	// HAS_GENRE edge per genre. Existing HAS_GENRE edges are never removed.
	UpsertItem(ctx context.Context, item models.Item, genres []string) error

	// UpsertKnows merges both User nodes and then the KNOWS edge from -> to.
	UpsertKnows(ctx context.Context, from, to models.UserRef) error

	// UpsertPlay merges the Item node and its genres, then the single PLAYS
	// edge from the user to the item, overwriting its payload. It returns
	// models.ErrNotFound if the User node does not exist.
	UpsertPlay(ctx context.Context, userID int64, item models.Item, genres []string, play models.Play) error

	// FriendsActivity returns games played by users the caller KNOWS and not
	// played by the caller, aggregated per game.
	FriendsActivity(ctx context.Context, userID int64, limit int) ([]models.FriendActivity, error)

	// GenreCandidates picks the caller's topGenres most played genres and
	// returns unplayed games carrying any of them.
	GenreCandidates(ctx context.Context, userID int64, topGenres, limit int) ([]models.GenreRecommendation, error)

	// FriendCandidates returns friends-of-friends and users sharing played
	// genres, excluding the caller and users the caller already KNOWS.
	FriendCandidates(ctx context.Context, userID int64, limit int) ([]models.FriendSuggestion, error)

	// Stats counts nodes and relationships by type.
	Stats(ctx context.Context) (*models.GraphStats, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connections.
	Close(ctx context.Context) error
}

var (
	_ Graph = (*MemoryGraph)(nil)
	_ Graph = (*Neo4jGraph)(nil)
	_ Graph = (*BreakerGraph)(nil)
)
