package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/gamegraph/gamegraph/internal/config"
	ggmcp "github.com/gamegraph/gamegraph/internal/mcp"
)

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP (Model Context Protocol) server over stdio",
		Long: `Starts an MCP JSON-RPC 2.0 server that reads from stdin and writes to stdout.
All diagnostic logs go to stderr so that stdout remains exclusively MCP protocol traffic.

Tools exposed:
  add_friend                 record a KNOWS edge
  record_activity            record a PLAYS edge
  recommend_friends_activity games friends played
  recommend_by_genre         games in the caller's top genres
  suggest_friends            people the caller may know
  graph_stats                node and relationship counts

If the stores are unavailable at startup the server still starts;
individual tool calls return MCP error results on failure.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			srv := ggmcp.NewServer(nil, nil, nil, version, logger)
			a, err := openApp(ctx, logger)
			if err != nil {
				// Tool calls will return per-call errors rather than crashing.
				logger.Error("mcp: failed to open stores; tool calls will fail", "error", err)
			} else {
				defer a.Close()
				if cfg.Graph.Backend == config.BackendMemory {
					if _, seedErr := runSeed(ctx, a); seedErr != nil {
						logger.Error("mcp: seeding failed", "error", seedErr)
					}
				}
				srv = ggmcp.NewServer(a.graph, a.maintainer, a.engine, version, logger)
			}

			errLogger := log.New(os.Stderr, "mcp: ", log.LstdFlags)

			logger.Info("mcp: gamegraph MCP server starting", "transport", "stdio")

			return mcpserver.ServeStdio(
				srv.MCPServer(),
				mcpserver.WithErrorLogger(errLogger),
			)
		},
	}

	return cmd
}
