// ABOUTME: MCP server assembly: gate, session lifecycle, middleware
// ABOUTME: Tool handlers live in tools.go

package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/2389/discord-mcp/internal/config"
	"github.com/2389/discord-mcp/internal/discord"
)

// Server wires the Discord gateway into an MCP stdio server.
type Server struct {
	mcp    *server.MCPServer
	client *discord.Client
	cfg    *config.Config
	logger *slog.Logger

	// gate serializes tool execution; token is the bearer cached across
	// invocations, guarded by gate.
	gate  sync.Mutex
	token string
}

// New assembles the MCP server with all tools registered. The
// configured token, if any, seeds the invocation cache.
func New(client *discord.Client, cfg *config.Config, logger *slog.Logger, version string) *Server {
	s := &Server{
		client: client,
		cfg:    cfg,
		logger: logger,
		token:  cfg.Discord.Token,
	}

	s.mcp = server.NewMCPServer(
		"discord-mcp",
		version,
		server.WithRecovery(),
		server.WithToolHandlerMiddleware(s.loggingMiddleware),
	)
	s.registerTools()
	return s
}

// ServeStdio runs the server over stdin/stdout until the client
// disconnects or ctx is cancelled (the serve loop watches it, so a
// SIGINT-cancelled context shuts the process down). Nothing else may
// write to stdout while it runs.
func (s *Server) ServeStdio(ctx context.Context) error {
	s.logger.Info("serving MCP over stdio")
	return s.serve(ctx, os.Stdin, os.Stdout)
}

func (s *Server) serve(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// loggingMiddleware tags every invocation with a fresh ID and logs its
// outcome and duration.
func (s *Server) loggingMiddleware(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logger := s.logger.With("invocation_id", uuid.NewString(), "tool", req.Params.Name)
		logger.Info("tool call started")

		start := time.Now()
		result, err := next(ctx, req)
		elapsed := time.Since(start)

		switch {
		case err != nil:
			logger.Error("tool call failed", "error", err, "duration", elapsed)
		case result != nil && result.IsError:
			logger.Warn("tool call returned error result", "duration", elapsed)
		default:
			logger.Info("tool call completed", "duration", elapsed)
		}
		return result, err
	}
}

// withSession runs op under the invocation gate with a fresh session
// seeded from the cached token, closes the session, and keeps any token
// the operation resolved.
func (s *Server) withSession(ctx context.Context, op func(context.Context, discord.Session) (discord.Session, any, error)) (any, error) {
	s.gate.Lock()
	defer s.gate.Unlock()

	sess := discord.NewSession(s.token, discord.Credentials{
		Email:    s.cfg.Discord.Email,
		Password: s.cfg.Discord.Password,
	}, s.cfg.Browser.IsHeadless())

	sess, result, err := op(ctx, sess)
	sess.Close()

	if tok := sess.Token(); tok != "" && tok != s.token {
		s.logger.Debug("caching resolved token for future invocations")
		s.token = tok
	}
	return result, err
}

// jsonResult marshals v into a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
