package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/gamegraph/gamegraph/internal/models"
)

// Neo4jOptions configures the driver pool and per-operation budgets.
type Neo4jOptions struct {
	URI      string
	Username string
	Password string
	Database string

	MaxPoolSize       int
	AcquireTimeout    time.Duration
	ConnectTimeout    time.Duration
	MaxConnectionLife time.Duration

	Timeouts Timeouts
}

// Neo4jGraph implements Graph on a Neo4j database. The driver is a pooled,
// goroutine-safe handle shared by every request.
type Neo4jGraph struct {
	driver   neo4j.DriverWithContext
	database string
	timeouts Timeouts
	logger   *slog.Logger
}

// NewNeo4jGraph creates the driver and verifies connectivity.
func NewNeo4jGraph(ctx context.Context, opts Neo4jOptions, logger *slog.Logger) (*Neo4jGraph, error) {
	if opts.URI == "" || opts.Username == "" {
		return nil, fmt.Errorf("neo4j credentials missing: uri=%q, user=%q", opts.URI, opts.Username)
	}
	if opts.Timeouts.Read <= 0 || opts.Timeouts.Write <= 0 {
		opts.Timeouts = DefaultTimeouts()
	}

	driver, err := neo4j.NewDriverWithContext(opts.URI,
		neo4j.BasicAuth(opts.Username, opts.Password, ""),
		func(c *neo4j.Config) {
			if opts.MaxPoolSize > 0 {
				c.MaxConnectionPoolSize = opts.MaxPoolSize
			}
			if opts.AcquireTimeout > 0 {
				c.ConnectionAcquisitionTimeout = opts.AcquireTimeout
			}
			if opts.ConnectTimeout > 0 {
				c.SocketConnectTimeout = opts.ConnectTimeout
			}
			if opts.MaxConnectionLife > 0 {
				c.MaxConnectionLifetime = opts.MaxConnectionLife
			}
			c.SocketKeepalive = true
		})
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, classify("connecting to neo4j at "+opts.URI, err)
	}

	logger = logger.With("component", "neo4j")
	logger.Info("connected to neo4j", "uri", opts.URI, "database", opts.Database)

	return &Neo4jGraph{
		driver:   driver,
		database: opts.Database,
		timeouts: opts.Timeouts,
		logger:   logger,
	}, nil
}

// write runs fn in a managed write transaction with retries on transient errors.
func (n *Neo4jGraph) write(ctx context.Context, op string, fn neo4j.ManagedTransactionWork) error {
	session := n.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: n.database,
	})
	defer func() { _ = session.Close(ctx) }()

	_, err := session.ExecuteWrite(ctx, fn, n.timeouts.forOperation(op).txOptions()...)
	return classify(op, err)
}

// read runs a single read query routed to readers and bounded by the read timeout.
func (n *Neo4jGraph) read(ctx context.Context, op, cypher string, params map[string]any) (*neo4j.EagerResult, error) {
	tc := n.timeouts.forOperation(op)
	queryCtx, cancel := context.WithTimeout(ctx, tc.Timeout)
	defer cancel()

	result, err := neo4j.ExecuteQuery(queryCtx, n.driver, cypher, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(n.database),
		neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		return nil, classify(op, err)
	}
	return result, nil
}

func runDiscard(ctx context.Context, tx neo4j.ManagedTransaction, cypher string, params map[string]any) error {
	res, err := tx.Run(ctx, cypher, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}

// EnsureSchema creates uniqueness constraints for User, Item and Genre keys.
func (n *Neo4jGraph) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{cypherConstraintUser, cypherConstraintItem, cypherConstraintGenre} {
		err := n.write(ctx, opSchema, func(tx neo4j.ManagedTransaction) (any, error) {
			return nil, runDiscard(ctx, tx, stmt, nil)
		})
		if err != nil {
			return err
		}
	}
	n.logger.Info("graph schema ensured")
	return nil
}

// UpsertUser merges a User node.
func (n *Neo4jGraph) UpsertUser(ctx context.Context, userID int64, username string) error {
	return n.write(ctx, opEnsureUser, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, runDiscard(ctx, tx, cypherUpsertUser, map[string]any{
			"userId":   userID,
			"username": username,
		})
	})
}

// UpsertItem merges an Item node and its HAS_GENRE edges.
func (n *Neo4jGraph) UpsertItem(ctx context.Context, item models.Item, genres []string) error {
	return n.write(ctx, opUpsertItem, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, runDiscard(ctx, tx, cypherUpsertItem, itemParams(item, genres))
	})
}

// UpsertKnows merges both users and the KNOWS edge in one transaction.
func (n *Neo4jGraph) UpsertKnows(ctx context.Context, from, to models.UserRef) error {
	return n.write(ctx, opAddFriend, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, runDiscard(ctx, tx, cypherUpsertKnows, map[string]any{
			"fromId":       from.ID,
			"fromUsername": from.Username,
			"toId":         to.ID,
			"toUsername":   to.Username,
		})
	})
}

// UpsertPlay checks the user exists, merges the item and genres, then the PLAYS edge.
func (n *Neo4jGraph) UpsertPlay(ctx context.Context, userID int64, item models.Item, genres []string, play models.Play) error {
	return n.write(ctx, opRecordActivity, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypherUserExists, map[string]any{"userId": userID})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, fmt.Errorf("user %d: %w", userID, models.ErrNotFound)
		}

		if err := runDiscard(ctx, tx, cypherUpsertItem, itemParams(item, genres)); err != nil {
			return nil, err
		}

		var rating any
		if play.Rating != nil {
			rating = int64(*play.Rating)
		}
		return nil, runDiscard(ctx, tx, cypherUpsertPlay, map[string]any{
			"userId":   userID,
			"itemId":   item.ID,
			"status":   string(play.Status),
			"rating":   rating,
			"playedAt": play.PlayedAt.UnixMilli(),
		})
	})
}

func itemParams(item models.Item, genres []string) map[string]any {
	list := make([]any, len(genres))
	for i := range genres {
		list[i] = genres[i]
	}
	return map[string]any{
		"itemId": item.ID,
		"title":  item.Title,
		"genres": list,
	}
}

// FriendsActivity runs the friends'-activity traversal.
func (n *Neo4jGraph) FriendsActivity(ctx context.Context, userID int64, limit int) ([]models.FriendActivity, error) {
	result, err := n.read(ctx, opRecommend, cypherFriendsActivity, map[string]any{
		"userId": userID,
		"limit":  int64(limit),
	})
	if err != nil {
		return nil, err
	}

	out := make([]models.FriendActivity, 0, len(result.Records))
	for _, rec := range result.Records {
		m := rec.AsMap()
		out = append(out, models.FriendActivity{
			ItemID:          asInt64(m["itemId"]),
			Title:           asString(m["title"]),
			PlayedByFriends: asStrings(m["friends"]),
			LastPlayed:      time.UnixMilli(asInt64(m["lastPlayed"])).UTC(),
		})
	}
	n.logger.Debug("friends activity", "user_id", userID, "results", len(out))
	return out, nil
}

// GenreCandidates runs the top-genre traversal.
func (n *Neo4jGraph) GenreCandidates(ctx context.Context, userID int64, topGenres, limit int) ([]models.GenreRecommendation, error) {
	result, err := n.read(ctx, opRecommend, cypherGenreCandidates, map[string]any{
		"userId":    userID,
		"topGenres": int64(topGenres),
		"limit":     int64(limit),
	})
	if err != nil {
		return nil, err
	}

	out := make([]models.GenreRecommendation, 0, len(result.Records))
	for _, rec := range result.Records {
		m := rec.AsMap()
		out = append(out, models.GenreRecommendation{
			ItemID:       asInt64(m["itemId"]),
			Title:        asString(m["title"]),
			CommonGenres: asStrings(m["common"]),
			Affinity:     int(asInt64(m["affinity"])),
		})
	}
	n.logger.Debug("genre candidates", "user_id", userID, "results", len(out))
	return out, nil
}

// FriendCandidates runs the friend-suggestion traversal.
func (n *Neo4jGraph) FriendCandidates(ctx context.Context, userID int64, limit int) ([]models.FriendSuggestion, error) {
	result, err := n.read(ctx, opRecommend, cypherFriendCandidates, map[string]any{
		"userId": userID,
		"limit":  int64(limit),
	})
	if err != nil {
		return nil, err
	}

	out := make([]models.FriendSuggestion, 0, len(result.Records))
	for _, rec := range result.Records {
		m := rec.AsMap()
		isFOF, _ := m["isFOF"].(bool)
		out = append(out, models.FriendSuggestion{
			UserID:       asInt64(m["userId"]),
			Username:     asString(m["username"]),
			CommonGenres: asStrings(m["common"]),
			Score:        int(asInt64(m["score"])),
			IsFOF:        isFOF,
		})
	}
	n.logger.Debug("friend candidates", "user_id", userID, "results", len(out))
	return out, nil
}

// Stats counts nodes and relationships.
func (n *Neo4jGraph) Stats(ctx context.Context) (*models.GraphStats, error) {
	result, err := n.read(ctx, opStats, cypherStats, nil)
	if err != nil {
		return nil, err
	}
	if len(result.Records) == 0 {
		return &models.GraphStats{}, nil
	}
	m := result.Records[0].AsMap()
	return &models.GraphStats{
		Users:    asInt64(m["users"]),
		Items:    asInt64(m["items"]),
		Genres:   asInt64(m["genres"]),
		Knows:    asInt64(m["knows"]),
		Plays:    asInt64(m["plays"]),
		HasGenre: asInt64(m["hasGenre"]),
	}, nil
}

// Ping verifies connectivity.
func (n *Neo4jGraph) Ping(ctx context.Context) error {
	return classify("neo4j ping", n.driver.VerifyConnectivity(ctx))
}

// Close closes the driver.
func (n *Neo4jGraph) Close(ctx context.Context) error {
	if err := n.driver.Close(ctx); err != nil {
		return fmt.Errorf("closing neo4j driver: %w", err)
	}
	n.logger.Info("neo4j driver closed")
	return nil
}

// --- record helpers ---

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asStrings(v any) []string {
	list, _ := v.([]any)
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
