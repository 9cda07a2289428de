package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamegraph/gamegraph/internal/catalog"
	"github.com/gamegraph/gamegraph/internal/graph"
	"github.com/gamegraph/gamegraph/internal/maintainer"
	"github.com/gamegraph/gamegraph/internal/models"
	"github.com/gamegraph/gamegraph/internal/recommend"
)

func newMCPServer(t *testing.T) (*Server, *graph.MemoryGraph) {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	g := graph.NewMemoryGraph()
	c := catalog.NewMemoryCatalog()
	for _, name := range []string{"joueur1", "joueur2", "joueur3"} {
		u, err := c.CreateUser(ctx, models.User{Username: name, Email: name + "@tsn.com", PasswordHash: "x"})
		require.NoError(t, err)
		require.NoError(t, g.UpsertUser(ctx, u.ID, u.Username))
	}
	require.NoError(t, c.UpsertItem(ctx, models.Item{ID: 1, Title: "Hades", GenreTags: "Action,Roguelike,Indie"}))
	require.NoError(t, c.UpsertItem(ctx, models.Item{ID: 2, Title: "Stardew Valley", GenreTags: "Simulation,Indie,PixelArt"}))

	m := maintainer.New(g, c, maintainer.Options{}, logger)
	return NewServer(g, m, recommend.NewEngine(g, logger), "test", logger), g
}

// makeReq builds a CallToolRequest with the given arguments.
func makeReq(toolName string, args map[string]any) mcpgo.CallToolRequest {
	req := mcpgo.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = args
	return req
}

// textContent extracts the first TextContent string from a CallToolResult.
func textContent(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content, "expected at least one content item")
	tc, ok := result.Content[0].(mcpgo.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text
}

func TestAddFriend(t *testing.T) {
	srv, g := newMCPServer(t)
	ctx := context.Background()

	res, err := srv.HandleAddFriend(ctx, makeReq("add_friend", map[string]any{
		"user_id": float64(1), "username": "joueur1", "friend": "joueur2",
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError, textContent(t, res))
	assert.True(t, g.Knows(1, 2))

	res, err = srv.HandleAddFriend(ctx, makeReq("add_friend", map[string]any{
		"user_id": float64(1), "username": "joueur1", "friend": "joueur1",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textContent(t, res), "invalid operation")

	res, err = srv.HandleAddFriend(ctx, makeReq("add_friend", map[string]any{
		"user_id": float64(1), "username": "joueur1", "friend": "ghost",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textContent(t, res), "not found")

	res, err = srv.HandleAddFriend(ctx, makeReq("add_friend", map[string]any{"username": "joueur1", "friend": "joueur2"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textContent(t, res), "user_id")
}

func TestRecordActivity(t *testing.T) {
	srv, g := newMCPServer(t)
	ctx := context.Background()

	res, err := srv.HandleRecordActivity(ctx, makeReq("record_activity", map[string]any{
		"user_id": float64(2), "game_id": float64(1), "status": "terminé", "rating": float64(5),
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, textContent(t, res))

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(textContent(t, res)), &out))
	assert.Equal(t, "Hades", out["title"])

	p, ok := g.Play(2, 1)
	require.True(t, ok)
	require.NotNil(t, p.Rating)
	assert.Equal(t, 5, *p.Rating)

	res, err = srv.HandleRecordActivity(ctx, makeReq("record_activity", map[string]any{
		"user_id": float64(2), "game_id": float64(2),
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	p, ok = g.Play(2, 2)
	require.True(t, ok)
	assert.Nil(t, p.Rating)
	assert.Equal(t, models.StatusPlaying, p.Status)

	res, err = srv.HandleRecordActivity(ctx, makeReq("record_activity", map[string]any{
		"user_id": float64(2), "game_id": float64(999),
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textContent(t, res), "not found")

	res, err = srv.HandleRecordActivity(ctx, makeReq("record_activity", map[string]any{
		"user_id": float64(2), "game_id": float64(1), "rating": float64(8),
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	res, err = srv.HandleRecordActivity(ctx, makeReq("record_activity", map[string]any{
		"user_id": float64(404), "game_id": float64(1),
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.True(t, strings.HasPrefix(textContent(t, res), "unknown user:"), textContent(t, res))
}

func TestRecommendationTools(t *testing.T) {
	srv, _ := newMCPServer(t)
	ctx := context.Background()

	_, err := srv.HandleAddFriend(ctx, makeReq("add_friend", map[string]any{"user_id": float64(1), "username": "joueur1", "friend": "joueur2"}))
	require.NoError(t, err)
	_, err = srv.HandleAddFriend(ctx, makeReq("add_friend", map[string]any{"user_id": float64(2), "username": "joueur2", "friend": "joueur3"}))
	require.NoError(t, err)
	_, err = srv.HandleRecordActivity(ctx, makeReq("record_activity", map[string]any{"user_id": float64(1), "game_id": float64(2)}))
	require.NoError(t, err)
	_, err = srv.HandleRecordActivity(ctx, makeReq("record_activity", map[string]any{"user_id": float64(2), "game_id": float64(1)}))
	require.NoError(t, err)

	res, err := srv.HandleFriendsActivity(ctx, makeReq("recommend_friends_activity", map[string]any{"user_id": float64(1)}))
	require.NoError(t, err)
	var acts struct {
		Results []models.FriendActivity `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(textContent(t, res)), &acts))
	require.Len(t, acts.Results, 1)
	assert.Equal(t, "Hades", acts.Results[0].Title)

	res, err = srv.HandleByGenre(ctx, makeReq("recommend_by_genre", map[string]any{"user_id": float64(1)}))
	require.NoError(t, err)
	var genre models.GenreRecommendations
	require.NoError(t, json.Unmarshal([]byte(textContent(t, res)), &genre))
	require.Len(t, genre.Items, 1)
	assert.Equal(t, []string{"Indie"}, genre.Items[0].CommonGenres)

	res, err = srv.HandleSuggestFriends(ctx, makeReq("suggest_friends", map[string]any{"user_id": float64(1)}))
	require.NoError(t, err)
	var people struct {
		Results []models.FriendSuggestion `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(textContent(t, res)), &people))
	require.Len(t, people.Results, 1)
	assert.Equal(t, "joueur3", people.Results[0].Username)

	res, err = srv.HandleStats(ctx, makeReq("graph_stats", nil))
	require.NoError(t, err)
	var stats models.GraphStats
	require.NoError(t, json.Unmarshal([]byte(textContent(t, res)), &stats))
	assert.Equal(t, int64(2), stats.Knows)
	assert.Equal(t, int64(2), stats.Plays)
}

func TestTools_GraphUnavailable(t *testing.T) {
	srv, g := newMCPServer(t)
	g.SetUnavailable(true)

	res, err := srv.HandleSuggestFriends(context.Background(), makeReq("suggest_friends", map[string]any{"user_id": float64(1)}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textContent(t, res), "unavailable")
}

func TestTools_NilDependencies(t *testing.T) {
	srv := NewServer(nil, nil, nil, "test", slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()
	args := map[string]any{"user_id": float64(1)}

	for name, h := range map[string]func(context.Context, mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error){
		"add_friend":                 srv.HandleAddFriend,
		"record_activity":            srv.HandleRecordActivity,
		"recommend_friends_activity": srv.HandleFriendsActivity,
		"recommend_by_genre":         srv.HandleByGenre,
		"suggest_friends":            srv.HandleSuggestFriends,
		"graph_stats":                srv.HandleStats,
	} {
		res, err := h(ctx, makeReq(name, args))
		require.NoError(t, err, name)
		assert.True(t, res.IsError, name)
	}
	assert.NotNil(t, srv.MCPServer())
}
