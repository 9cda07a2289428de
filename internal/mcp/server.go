// Package mcp implements the Model Context Protocol server for gamegraph.
// The transport is local stdio, so the caller identity is passed as tool
// arguments rather than a bearer token.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/gamegraph/gamegraph/internal/graph"
	"github.com/gamegraph/gamegraph/internal/maintainer"
	"github.com/gamegraph/gamegraph/internal/models"
	"github.com/gamegraph/gamegraph/internal/recommend"
)

// Server wraps an MCPServer with gamegraph dependencies.
type Server struct {
	mcp        *mcpserver.MCPServer
	graph      graph.Graph
	maintainer *maintainer.Maintainer
	engine     *recommend.Engine
	logger     *slog.Logger
}

// NewServer creates a new MCP server. If a dependency is nil, the tools that
// need it return an error result instead of panicking.
func NewServer(g graph.Graph, m *maintainer.Maintainer, e *recommend.Engine, version string, logger *slog.Logger) *Server {
	s := &Server{
		graph:      g,
		maintainer: m,
		engine:     e,
		logger:     logger.With("component", "mcp"),
	}

	mcpSrv := mcpserver.NewMCPServer(
		"gamegraph",
		version,
		mcpserver.WithToolCapabilities(true),
	)

	mcpSrv.AddTool(buildAddFriendTool(), s.handleAddFriend)
	mcpSrv.AddTool(buildRecordActivityTool(), s.handleRecordActivity)
	mcpSrv.AddTool(buildFriendsActivityTool(), s.handleFriendsActivity)
	mcpSrv.AddTool(buildByGenreTool(), s.handleByGenre)
	mcpSrv.AddTool(buildSuggestFriendsTool(), s.handleSuggestFriends)
	mcpSrv.AddTool(buildStatsTool(), s.handleStats)

	s.mcp = mcpSrv
	return s
}

// MCPServer returns the underlying mcp-go MCPServer for use with ServeStdio.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

// HandleAddFriend is the exported handler for the "add_friend" tool.
// It is exposed for direct testing without the mcp-go transport layer.
func (s *Server) HandleAddFriend(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleAddFriend(ctx, req)
}

// HandleRecordActivity is the exported handler for the "record_activity" tool.
func (s *Server) HandleRecordActivity(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleRecordActivity(ctx, req)
}

// HandleFriendsActivity is the exported handler for the "recommend_friends_activity" tool.
func (s *Server) HandleFriendsActivity(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleFriendsActivity(ctx, req)
}

// HandleByGenre is the exported handler for the "recommend_by_genre" tool.
func (s *Server) HandleByGenre(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleByGenre(ctx, req)
}

// HandleSuggestFriends is the exported handler for the "suggest_friends" tool.
func (s *Server) HandleSuggestFriends(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleSuggestFriends(ctx, req)
}

// HandleStats is the exported handler for the "graph_stats" tool.
func (s *Server) HandleStats(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleStats(ctx, req)
}

// --- helpers ---

// toolResultJSON marshals v to JSON and returns it as a tool text result.
func toolResultJSON(v any) (*mcpgo.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshaling result: %w", err)
	}
	return mcpgo.NewToolResultText(string(b)), nil
}

// toolResultStoreError turns a domain error into an error result whose
// prefix names its category.
func toolResultStoreError(op string, err error) *mcpgo.CallToolResult {
	switch {
	case errors.Is(err, models.ErrInvalidOperation):
		return mcpgo.NewToolResultErrorf("invalid operation: %s: %s", op, err.Error())
	case errors.Is(err, models.ErrUnknownUser):
		return mcpgo.NewToolResultErrorf("unknown user: %s: %s", op, err.Error())
	case errors.Is(err, models.ErrNotFound):
		return mcpgo.NewToolResultErrorf("not found: %s: %s", op, err.Error())
	case errors.Is(err, models.ErrStoreUnavailable):
		return mcpgo.NewToolResultErrorf("unavailable: %s: %s", op, err.Error())
	default:
		return mcpgo.NewToolResultErrorf("%s failed: %s", op, err.Error())
	}
}

// userID reads the required positive user_id argument.
func userID(req mcpgo.CallToolRequest) (int64, *mcpgo.CallToolResult) {
	id := req.GetInt("user_id", 0)
	if id <= 0 {
		return 0, mcpgo.NewToolResultError("user_id is required and must be a positive integer")
	}
	return int64(id), nil
}

func withUserID() mcpgo.ToolOption {
	return mcpgo.WithNumber("user_id",
		mcpgo.Required(),
		mcpgo.Description("Numeric id of the calling user"),
	)
}

// --- tool definitions ---

func buildAddFriendTool() mcpgo.Tool {
	return mcpgo.NewTool("add_friend",
		mcpgo.WithDescription("Record that the calling user knows another user (directed KNOWS edge)."),
		withUserID(),
		mcpgo.WithString("username",
			mcpgo.Required(),
			mcpgo.Description("Username of the calling user"),
		),
		mcpgo.WithString("friend",
			mcpgo.Required(),
			mcpgo.Description("Username of the user to add as a friend"),
		),
	)
}

func buildRecordActivityTool() mcpgo.Tool {
	return mcpgo.NewTool("record_activity",
		mcpgo.WithDescription("Record that the calling user played a game. Overwrites any previous status and rating for that game."),
		withUserID(),
		mcpgo.WithNumber("game_id",
			mcpgo.Required(),
			mcpgo.Description("Catalog id of the game"),
		),
		mcpgo.WithString("status",
			mcpgo.Description("Play status, e.g. terminé, playing, wishlist, abandoned (default: playing)"),
		),
		mcpgo.WithNumber("rating",
			mcpgo.Description("Rating 0-5; omit for no rating"),
		),
	)
}

func buildFriendsActivityTool() mcpgo.Tool {
	return mcpgo.NewTool("recommend_friends_activity",
		mcpgo.WithDescription("Games the user's friends played that the user has not, most recent first (max 10)."),
		withUserID(),
	)
}

func buildByGenreTool() mcpgo.Tool {
	return mcpgo.NewTool("recommend_by_genre",
		mcpgo.WithDescription("Unplayed games sharing the user's five most played genres (max 10)."),
		withUserID(),
	)
}

func buildSuggestFriendsTool() mcpgo.Tool {
	return mcpgo.NewTool("suggest_friends",
		mcpgo.WithDescription("Friends of friends and players with shared genres the user does not know yet (max 10)."),
		withUserID(),
	)
}

func buildStatsTool() mcpgo.Tool {
	return mcpgo.NewTool("graph_stats",
		mcpgo.WithDescription("Count users, games, genres and relationships in the graph."),
	)
}

// --- tool handlers ---

func (s *Server) handleAddFriend(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.maintainer == nil {
		return mcpgo.NewToolResultError("maintainer is unavailable"), nil
	}
	id, errResult := userID(req)
	if errResult != nil {
		return errResult, nil
	}
	username := strings.TrimSpace(req.GetString("username", ""))
	friend := strings.TrimSpace(req.GetString("friend", ""))
	if username == "" || friend == "" {
		return mcpgo.NewToolResultError("username and friend are required and must not be empty"), nil
	}

	if err := s.maintainer.AddFriend(ctx, id, username, friend); err != nil {
		return toolResultStoreError("add_friend", err), nil
	}

	s.logger.Info("mcp: friend added", "user_id", id, "friend", friend)
	return toolResultJSON(map[string]any{"added": true, "friend": friend})
}

func (s *Server) handleRecordActivity(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.maintainer == nil {
		return mcpgo.NewToolResultError("maintainer is unavailable"), nil
	}
	id, errResult := userID(req)
	if errResult != nil {
		return errResult, nil
	}
	gameID := req.GetInt("game_id", 0)
	if gameID <= 0 {
		return mcpgo.NewToolResultError("game_id is required and must be a positive integer"), nil
	}
	status := models.PlayStatus(req.GetString("status", string(models.StatusPlaying)))
	if status == "" {
		status = models.StatusPlaying
	}

	var rating *int
	if _, ok := req.GetArguments()["rating"]; ok {
		r := req.GetInt("rating", 0)
		rating = &r
	}

	title, err := s.maintainer.RecordActivity(ctx, id, int64(gameID), status, rating)
	if err != nil {
		return toolResultStoreError("record_activity", err), nil
	}

	return toolResultJSON(map[string]any{
		"recorded": true,
		"gameId":   gameID,
		"title":    title,
		"status":   status,
	})
}

func (s *Server) handleFriendsActivity(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.engine == nil {
		return mcpgo.NewToolResultError("recommendation engine is unavailable"), nil
	}
	id, errResult := userID(req)
	if errResult != nil {
		return errResult, nil
	}
	recs, err := s.engine.RecommendByFriendsActivity(ctx, id)
	if err != nil {
		return toolResultStoreError("recommend_friends_activity", err), nil
	}
	return toolResultJSON(map[string]any{"results": recs})
}

func (s *Server) handleByGenre(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.engine == nil {
		return mcpgo.NewToolResultError("recommendation engine is unavailable"), nil
	}
	id, errResult := userID(req)
	if errResult != nil {
		return errResult, nil
	}
	recs, err := s.engine.RecommendByGenre(ctx, id)
	if err != nil {
		return toolResultStoreError("recommend_by_genre", err), nil
	}
	return toolResultJSON(recs)
}

func (s *Server) handleSuggestFriends(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.engine == nil {
		return mcpgo.NewToolResultError("recommendation engine is unavailable"), nil
	}
	id, errResult := userID(req)
	if errResult != nil {
		return errResult, nil
	}
	recs, err := s.engine.SuggestFriends(ctx, id)
	if err != nil {
		return toolResultStoreError("suggest_friends", err), nil
	}
	return toolResultJSON(map[string]any{"results": recs})
}

func (s *Server) handleStats(ctx context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.graph == nil {
		return mcpgo.NewToolResultError("graph is unavailable"), nil
	}
	stats, err := s.graph.Stats(ctx)
	if err != nil {
		return toolResultStoreError("graph_stats", err), nil
	}
	return toolResultJSON(stats)
}
