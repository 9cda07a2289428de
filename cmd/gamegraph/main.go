package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gamegraph/gamegraph/internal/catalog"
	"github.com/gamegraph/gamegraph/internal/config"
	"github.com/gamegraph/gamegraph/internal/graph"
	"github.com/gamegraph/gamegraph/internal/maintainer"
	"github.com/gamegraph/gamegraph/internal/recommend"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	cfg          *config.Config
	graphBackend string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:     "gamegraph",
		Short:   "gamegraph: graph-backed game recommendations",
		Long:    "gamegraph keeps a User/Game/Genre relationship graph in step with player activity and ranks games and people from it.",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if graphBackend != "" {
				cfg.Graph.Backend = graphBackend
				if err := cfg.Validate(); err != nil {
					return fmt.Errorf("loading config: %w", err)
				}
			}
			return nil
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&graphBackend, "graph", "", "graph backend override (neo4j|memory)")

	rootCmd.AddCommand(
		serveCmd(),
		mcpCmd(),
		seedCmd(),
		migrateCmd(),
		reconcileCmd(),
		healthCmd(),
		registerCmd(),
		friendCmd(),
		playCmd(),
		recommendCmd(),
		statsCmd(),
	)

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil {
		switch cfg.Logging.Level {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg != nil && cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// newGraph connects the configured graph backend and wraps it in a circuit
// breaker.
func newGraph(ctx context.Context, logger *slog.Logger) (graph.Graph, error) {
	var inner graph.Graph
	switch cfg.Graph.Backend {
	case config.BackendMemory:
		logger.Warn("using in-memory graph; data is lost on exit")
		inner = graph.NewMemoryGraph()
	default:
		g, err := graph.NewNeo4jGraph(ctx, graph.Neo4jOptions{
			URI:               cfg.Neo4j.URI,
			Username:          cfg.Neo4j.Username,
			Password:          cfg.Neo4j.Password,
			Database:          cfg.Neo4j.Database,
			MaxPoolSize:       cfg.Neo4j.MaxPoolSize,
			AcquireTimeout:    cfg.Neo4j.AcquireTimeout,
			ConnectTimeout:    cfg.Neo4j.ConnectTimeout,
			MaxConnectionLife: cfg.Neo4j.MaxConnectionLife,
			Timeouts:          graph.Timeouts{Read: cfg.Neo4j.ReadTimeout, Write: cfg.Neo4j.WriteTimeout},
		}, logger)
		if err != nil {
			return nil, err
		}
		inner = g
	}

	bc := graph.DefaultBreakerConfig()
	if cfg.Graph.BreakerFailures > 0 {
		bc.FailureThreshold = cfg.Graph.BreakerFailures
	}
	if cfg.Graph.BreakerTimeout > 0 {
		bc.Timeout = cfg.Graph.BreakerTimeout
	}
	return graph.NewBreakerGraph(inner, bc, logger), nil
}

func newCatalog(ctx context.Context) (*catalog.SQLiteCatalog, error) {
	if dir := dirOf(cfg.Catalog.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating catalog directory: %w", err)
		}
	}
	c, err := catalog.NewSQLiteCatalog(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	if err := c.EnsureSchema(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// app bundles the stores and services most commands need.
type app struct {
	graph      graph.Graph
	catalog    *catalog.SQLiteCatalog
	maintainer *maintainer.Maintainer
	mirror     *maintainer.Mirror
	engine     *recommend.Engine
	logger     *slog.Logger
}

func openApp(ctx context.Context, logger *slog.Logger) (*app, error) {
	c, err := newCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	g, err := newGraph(ctx, logger)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("connecting to graph: %w", err)
	}

	// MERGE is only race-free once the uniqueness constraints exist.
	if err := g.EnsureSchema(ctx); err != nil {
		logger.Warn("graph schema not ensured", "error", err)
	}

	m := maintainer.New(g, c, maintainer.Options{MutualFriendship: cfg.Graph.MutualFriendship}, logger)
	return &app{
		graph:      g,
		catalog:    c,
		maintainer: m,
		mirror:     maintainer.NewMirror(m, c, logger),
		engine:     recommend.NewEngine(g, logger),
		logger:     logger,
	}, nil
}

func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer cancel()
	if err := a.graph.Close(ctx); err != nil {
		a.logger.Warn("closing graph", "error", err)
	}
	if err := a.catalog.Close(); err != nil {
		a.logger.Warn("closing catalog", "error", err)
	}
}

func dirOf(path string) string {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return ""
	}
	if dir := filepath.Dir(path); dir != "." {
		return dir
	}
	return ""
}
