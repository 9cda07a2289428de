package recommend

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamegraph/gamegraph/internal/graph"
	"github.com/gamegraph/gamegraph/internal/models"
	"github.com/gamegraph/gamegraph/internal/ranking"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ref(id int64) models.UserRef {
	return models.UserRef{ID: id, Username: fmt.Sprintf("joueur%d", id)}
}

func game(id int64, tags string) models.Item {
	return models.Item{ID: id, Title: fmt.Sprintf("Game %d", id), GenreTags: tags}
}

type world struct {
	t *testing.T
	g *graph.MemoryGraph
}

func newWorld(t *testing.T, users int) *world {
	t.Helper()
	g := graph.NewMemoryGraph()
	for i := int64(1); i <= int64(users); i++ {
		require.NoError(t, g.UpsertUser(context.Background(), i, ref(i).Username))
	}
	return &world{t: t, g: g}
}

func (w *world) knows(from, to int64) {
	w.t.Helper()
	require.NoError(w.t, w.g.UpsertKnows(context.Background(), ref(from), ref(to)))
}

func (w *world) plays(userID int64, it models.Item, at time.Time) {
	w.t.Helper()
	r := 4
	require.NoError(w.t, w.g.UpsertPlay(context.Background(), userID, it, it.Genres(), models.Play{
		Status: models.StatusFinished, Rating: &r, PlayedAt: at,
	}))
}

func (w *world) engine() *Engine {
	return NewEngine(w.g, quietLogger())
}

func TestRecommendByFriendsActivity_ScenarioA(t *testing.T) {
	w := newWorld(t, 10)
	for _, f := range []int64{2, 3, 4} {
		w.knows(1, f)
	}
	w.plays(1, game(1, "RPG"), baseTime)
	w.plays(3, game(1, "RPG"), baseTime.Add(time.Hour))
	w.plays(3, game(2, "Action"), baseTime.Add(time.Minute))
	w.plays(4, game(2, "Action"), baseTime.Add(2*time.Minute))
	w.plays(2, game(5, "Strategy"), baseTime.Add(3*time.Hour))

	recs, err := w.engine().RecommendByFriendsActivity(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, int64(5), recs[0].ItemID)
	assert.Contains(t, recs[0].PlayedByFriends, "joueur2")
	assert.True(t, baseTime.Add(3*time.Hour).Equal(recs[0].LastPlayed))

	assert.Equal(t, int64(2), recs[1].ItemID)
	assert.Equal(t, []string{"joueur3", "joueur4"}, recs[1].PlayedByFriends)
	assert.True(t, baseTime.Add(2*time.Minute).Equal(recs[1].LastPlayed))

	for _, r := range recs {
		assert.NotEqual(t, int64(1), r.ItemID, "items the caller played are excluded")
	}
}

func TestRecommendByFriendsActivity_TieBreaks(t *testing.T) {
	w := newWorld(t, 4)
	w.knows(1, 2)
	w.knows(1, 3)
	w.plays(2, game(7, "A"), baseTime)
	w.plays(2, game(6, "A"), baseTime)
	w.plays(3, game(6, "A"), baseTime)
	w.plays(2, game(8, "A"), baseTime)

	recs, err := w.engine().RecommendByFriendsActivity(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, int64(6), recs[0].ItemID, "more friends wins a timestamp tie")
	assert.Equal(t, int64(7), recs[1].ItemID)
	assert.Equal(t, int64(8), recs[2].ItemID)
}

func TestRecommendByFriendsActivity_NoFriends(t *testing.T) {
	w := newWorld(t, 2)
	w.plays(2, game(1, "RPG"), baseTime)

	recs, err := w.engine().RecommendByFriendsActivity(context.Background(), 1)
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)

	recs, err = w.engine().RecommendByFriendsActivity(context.Background(), 404)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRecommendByGenre_ScenarioB(t *testing.T) {
	w := newWorld(t, 2)
	w.plays(1, game(1, "RPG"), baseTime)
	w.plays(1, game(2, "RPG"), baseTime)
	w.plays(1, game(3, "Shooter"), baseTime)

	// Unplayed candidates only become visible once some play links them in.
	w.plays(2, game(10, "Shooter"), baseTime)
	w.plays(2, game(9, "RPG,Fantasy"), baseTime)

	res, err := w.engine().RecommendByGenre(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, res.Message)
	require.Len(t, res.Items, 2)
	assert.Equal(t, int64(9), res.Items[0].ItemID)
	assert.Equal(t, []string{"RPG"}, res.Items[0].CommonGenres)
	assert.Equal(t, int64(10), res.Items[1].ItemID)
	assert.Equal(t, []string{"Shooter"}, res.Items[1].CommonGenres)
}

func TestRecommendByGenre_MoreSharedGenresFirst(t *testing.T) {
	w := newWorld(t, 2)
	w.plays(1, game(1, "RPG,Fantasy"), baseTime)
	w.plays(1, game(2, "RPG"), baseTime)
	w.plays(2, game(3, "RPG"), baseTime)
	w.plays(2, game(4, "Fantasy,RPG,Puzzle"), baseTime)

	res, err := w.engine().RecommendByGenre(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, int64(4), res.Items[0].ItemID)
	assert.Equal(t, []string{"Fantasy", "RPG"}, res.Items[0].CommonGenres)
}

func TestRecommendByGenre_TopFiveGenresOnly(t *testing.T) {
	w := newWorld(t, 2)
	// Genres A..E are played twice, F once: F is outside the top five.
	var id int64
	for _, g := range []string{"A", "B", "C", "D", "E"} {
		for i := 0; i < 2; i++ {
			id++
			w.plays(1, game(id, g), baseTime)
		}
	}
	w.plays(1, game(100, "F"), baseTime)
	w.plays(2, game(200, "F"), baseTime)
	w.plays(2, game(201, "A"), baseTime)

	res, err := w.engine().RecommendByGenre(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, int64(201), res.Items[0].ItemID)
}

func TestRecommendByGenre_Empty(t *testing.T) {
	w := newWorld(t, 1)
	res, err := w.engine().RecommendByGenre(context.Background(), 1)
	require.NoError(t, err)
	assert.NotNil(t, res.Items)
	assert.Empty(t, res.Items)
	assert.Equal(t, NoGenreRecommendationsMessage, res.Message)
}

func TestSuggestFriends_ScenarioC(t *testing.T) {
	w := newWorld(t, 10)
	w.knows(8, 9)
	w.knows(9, 10)

	recs, err := w.engine().SuggestFriends(context.Background(), 8)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, int64(10), recs[0].UserID)
	assert.Equal(t, "joueur10", recs[0].Username)
	assert.True(t, recs[0].IsFOF)
	assert.Zero(t, recs[0].Score)
	assert.Equal(t, []string{}, recs[0].CommonGenres)
}

func TestSuggestFriends_OrderingAndExclusion(t *testing.T) {
	w := newWorld(t, 6)
	w.knows(1, 2)
	w.knows(2, 3)
	w.knows(2, 1) // FOF path back to the caller
	w.plays(1, game(1, "RPG,Action"), baseTime)
	w.plays(2, game(1, "RPG,Action"), baseTime) // direct friend, excluded
	w.plays(4, game(2, "RPG,Action"), baseTime)
	w.plays(5, game(3, "Action"), baseTime)
	w.plays(6, game(4, "Puzzle"), baseTime)

	recs, err := w.engine().SuggestFriends(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, int64(3), recs[0].UserID)
	assert.True(t, recs[0].IsFOF)

	assert.Equal(t, int64(4), recs[1].UserID)
	assert.Equal(t, 2, recs[1].Score)
	assert.Equal(t, []string{"Action", "RPG"}, recs[1].CommonGenres)
	assert.False(t, recs[1].IsFOF)

	assert.Equal(t, int64(5), recs[2].UserID)
	assert.Equal(t, 1, recs[2].Score)

	for _, r := range recs {
		assert.NotEqual(t, int64(1), r.UserID)
		assert.NotEqual(t, int64(2), r.UserID)
	}
}

func TestRankings_Bounded(t *testing.T) {
	const n = 25
	w := newWorld(t, n+1)
	for i := int64(2); i <= n+1; i++ {
		w.knows(1, i)
		w.knows(i, i+100)
		w.plays(i, game(i, "RPG"), baseTime.Add(time.Duration(i)*time.Minute))
		w.plays(i+100, game(i+100, "Action"), baseTime)
	}
	w.plays(1, game(1000, "RPG,Action"), baseTime)
	e := w.engine()
	ctx := context.Background()

	acts, err := e.RecommendByFriendsActivity(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, acts, ranking.MaxResults)
	assert.Equal(t, int64(n+1), acts[0].ItemID)

	genre, err := e.RecommendByGenre(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, genre.Items, ranking.MaxResults)

	people, err := e.SuggestFriends(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, people, ranking.MaxResults)
}

func TestRankings_Deterministic(t *testing.T) {
	w := newWorld(t, 8)
	for i := int64(2); i <= 8; i++ {
		w.knows(1, i)
		for j := int64(1); j <= 6; j++ {
			w.plays(i, game(j*10+i%3, "RPG,Action,Indie"), baseTime)
		}
	}
	w.plays(1, game(999, "RPG,Indie"), baseTime)
	e := w.engine()
	ctx := context.Background()

	first, err := e.Dashboard(ctx, 1)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := e.Dashboard(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestDashboard(t *testing.T) {
	w := newWorld(t, 3)
	w.knows(1, 2)
	w.knows(2, 3)
	w.plays(1, game(1, "RPG"), baseTime)
	w.plays(2, game(2, "RPG"), baseTime)

	d, err := w.engine().Dashboard(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, d.FriendsActivity, 1)
	assert.Equal(t, int64(2), d.FriendsActivity[0].ItemID)
	require.Len(t, d.ByGenre.Items, 1)
	assert.Equal(t, int64(2), d.ByGenre.Items[0].ItemID)
	require.Len(t, d.FriendSuggestions, 1)
	assert.Equal(t, int64(3), d.FriendSuggestions[0].UserID)
}

func TestEngine_Unavailable(t *testing.T) {
	w := newWorld(t, 1)
	w.g.SetUnavailable(true)
	e := w.engine()
	ctx := context.Background()

	_, err := e.RecommendByFriendsActivity(ctx, 1)
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	_, err = e.RecommendByGenre(ctx, 1)
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	_, err = e.SuggestFriends(ctx, 1)
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	_, err = e.Dashboard(ctx, 1)
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
}
