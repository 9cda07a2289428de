package graph

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamegraph/gamegraph/internal/models"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func ref(id int64) models.UserRef {
	return models.UserRef{ID: id, Username: fmt.Sprintf("joueur%d", id)}
}

func item(id int64, tags string) models.Item {
	return models.Item{ID: id, Title: fmt.Sprintf("Game %d", id), GenreTags: tags}
}

func rating(r int) *int { return &r }

func play(t *testing.T, g *MemoryGraph, userID int64, it models.Item, at time.Time) {
	t.Helper()
	require.NoError(t, g.UpsertPlay(context.Background(), userID, it, it.Genres(), models.Play{
		Status:   models.StatusFinished,
		Rating:   rating(4),
		PlayedAt: at,
	}))
}

func newUsers(t *testing.T, g *MemoryGraph, ids ...int64) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, g.UpsertUser(context.Background(), id, ref(id).Username))
	}
}

func TestMemoryGraph_UpsertsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGraph()
	newUsers(t, g, 1, 2)

	it := item(1, "RPG,OpenWorld")
	for i := 0; i < 3; i++ {
		require.NoError(t, g.UpsertUser(ctx, 1, "joueur1"))
		require.NoError(t, g.UpsertKnows(ctx, ref(1), ref(2)))
		play(t, g, 1, it, baseTime)
	}

	stats, err := g.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &models.GraphStats{
		Users: 2, Items: 1, Genres: 2, Knows: 1, Plays: 1, HasGenre: 2,
	}, stats)
}

func TestMemoryGraph_PlayPayloadLastWriteWins(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGraph()
	newUsers(t, g, 1)
	it := item(7, "RPG")

	require.NoError(t, g.UpsertPlay(ctx, 1, it, it.Genres(), models.Play{Status: models.StatusPlaying, PlayedAt: baseTime}))
	require.NoError(t, g.UpsertPlay(ctx, 1, it, it.Genres(), models.Play{
		Status: models.StatusFinished, Rating: rating(5), PlayedAt: baseTime.Add(time.Hour),
	}))

	p, ok := g.Play(1, 7)
	require.True(t, ok)
	assert.Equal(t, models.StatusFinished, p.Status)
	require.NotNil(t, p.Rating)
	assert.Equal(t, 5, *p.Rating)
	assert.Equal(t, baseTime.Add(time.Hour), p.PlayedAt)

	stats, err := g.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Plays)
}

func TestMemoryGraph_HasGenreIsAppendOnly(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGraph()
	newUsers(t, g, 1)

	play(t, g, 1, item(3, "RPG,Fantasy"), baseTime)
	play(t, g, 1, item(3, "Shooter"), baseTime)

	stats, err := g.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.HasGenre)
	assert.EqualValues(t, 3, stats.Genres)
}

func TestMemoryGraph_UpsertPlayUnknownUser(t *testing.T) {
	g := NewMemoryGraph()
	it := item(1, "RPG")
	err := g.UpsertPlay(context.Background(), 42, it, it.Genres(), models.Play{Status: "playing", PlayedAt: baseTime})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	stats, err := g.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Items)
}

func TestMemoryGraph_FriendsActivity(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGraph()
	newUsers(t, g, 1, 2, 3, 4)
	for _, to := range []int64{2, 3, 4} {
		require.NoError(t, g.UpsertKnows(ctx, ref(1), ref(to)))
	}

	play(t, g, 1, item(1, "RPG"), baseTime)
	play(t, g, 2, item(1, "RPG"), baseTime.Add(5*time.Hour))
	play(t, g, 2, item(5, "Action"), baseTime.Add(3*time.Hour))
	play(t, g, 3, item(6, "Action"), baseTime.Add(time.Hour))
	play(t, g, 4, item(6, "Action"), baseTime.Add(2*time.Hour))

	recs, err := g.FriendsActivity(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, int64(5), recs[0].ItemID)
	assert.Equal(t, []string{"joueur2"}, recs[0].PlayedByFriends)
	assert.Equal(t, baseTime.Add(3*time.Hour), recs[0].LastPlayed)

	assert.Equal(t, int64(6), recs[1].ItemID)
	assert.Equal(t, []string{"joueur3", "joueur4"}, recs[1].PlayedByFriends)
	assert.Equal(t, baseTime.Add(2*time.Hour), recs[1].LastPlayed)
}

func TestMemoryGraph_FriendsActivityNoFriends(t *testing.T) {
	g := NewMemoryGraph()
	newUsers(t, g, 1)
	recs, err := g.FriendsActivity(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestMemoryGraph_GenreCandidates(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGraph()
	newUsers(t, g, 1, 2)

	play(t, g, 1, item(1, "RPG"), baseTime)
	play(t, g, 1, item(2, "RPG"), baseTime)
	play(t, g, 1, item(3, "Shooter"), baseTime)
	play(t, g, 2, item(10, "RPG,Fantasy"), baseTime)
	play(t, g, 2, item(11, "Shooter"), baseTime)
	play(t, g, 2, item(12, "MOBA"), baseTime)

	recs, err := g.GenreCandidates(ctx, 1, 1, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1, "only the top genre RPG is considered")
	assert.Equal(t, int64(10), recs[0].ItemID)
	assert.Equal(t, []string{"RPG"}, recs[0].CommonGenres)

	recs, err = g.GenreCandidates(ctx, 1, 5, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(10), recs[0].ItemID)
	assert.Equal(t, int64(11), recs[1].ItemID)
}

func TestMemoryGraph_FriendCandidates(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGraph()
	newUsers(t, g, 8, 9, 10, 11, 12)
	require.NoError(t, g.UpsertKnows(ctx, ref(8), ref(9)))
	require.NoError(t, g.UpsertKnows(ctx, ref(9), ref(10)))
	require.NoError(t, g.UpsertKnows(ctx, ref(9), ref(8)))

	play(t, g, 8, item(1, "RPG,Fantasy"), baseTime)
	play(t, g, 9, item(1, "RPG,Fantasy"), baseTime)
	play(t, g, 11, item(2, "RPG,Fantasy,Indie"), baseTime)
	play(t, g, 12, item(3, "Shooter"), baseTime)

	recs, err := g.FriendCandidates(ctx, 8, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, models.FriendSuggestion{
		UserID: 10, Username: "joueur10", CommonGenres: []string{}, Score: 0, IsFOF: true,
	}, recs[0])
	assert.Equal(t, models.FriendSuggestion{
		UserID: 11, Username: "joueur11", CommonGenres: []string{"Fantasy", "RPG"}, Score: 2, IsFOF: false,
	}, recs[1])
}

func TestMemoryGraph_Unavailable(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGraph()
	g.SetUnavailable(true)

	assert.ErrorIs(t, g.UpsertUser(ctx, 1, "joueur1"), models.ErrStoreUnavailable)
	_, err := g.FriendsActivity(ctx, 1, 10)
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	assert.ErrorIs(t, g.Ping(ctx), models.ErrStoreUnavailable)

	g.SetUnavailable(false)
	assert.NoError(t, g.Ping(ctx))
}
