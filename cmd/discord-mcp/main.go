// ABOUTME: Entry point for the discord-mcp tool server
// ABOUTME: Subcommands: serve (stdio MCP), token (interactive login), version

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/discord-mcp/internal/config"
	"github.com/2389/discord-mcp/internal/discord"
	"github.com/2389/discord-mcp/internal/extractor"
	"github.com/2389/discord-mcp/internal/mcpserver"
	"github.com/2389/discord-mcp/internal/tokenstore"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
     _ _                   _
  __| (_)___  ___ ___  _ _| |     _ __  ___ _ __
 / _' | / __|/ __/ _ \| '_| ' _ \| '_ \/ __| '_ \
| (_| | \__ \ (_| (_) | | | (_) || | | | (__| |_) |
 \__,_|_|___/\___\___/|_|  \___/ |_| |_|\___| .__/
                                            |_|
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: discord-mcp <command>")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  serve      Run the MCP server over stdio")
		fmt.Fprintln(os.Stderr, "  token      Extract a token with a visible browser login")
		fmt.Fprintln(os.Stderr, "  version    Print the version")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "token":
		err = runToken(ctx)
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	// stdout belongs to the MCP transport; everything human-facing goes
	// to stderr.
	cyan := color.New(color.FgCyan)
	cyan.Fprint(os.Stderr, banner)
	gray := color.New(color.FgHiBlack)
	gray.Fprintf(os.Stderr, "    version: %s\n\n", version)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Fprint(os.Stderr, "    ▶ ")
	fmt.Fprintf(os.Stderr, "Token file: %s\n", cfg.Discord.TokenFile)
	green.Fprint(os.Stderr, "    ▶ ")
	fmt.Fprintf(os.Stderr, "Headless:   %v\n", cfg.Browser.IsHeadless())
	if len(cfg.Discord.GuildIDs) > 0 {
		green.Fprint(os.Stderr, "    ▶ ")
		fmt.Fprintf(os.Stderr, "Servers:    %s\n", strings.Join(cfg.Discord.GuildIDs, ", "))
	}
	fmt.Fprintln(os.Stderr)

	logger.Info("starting discord-mcp",
		"version", version,
		"headless", cfg.Browser.IsHeadless(),
		"token_file", cfg.Discord.TokenFile,
	)

	store := tokenstore.New(discord.ExpandHome(cfg.Discord.TokenFile), logger)
	source := extractor.New(cfg.Browser.IsHeadless(), cfg.Browser.LoginTimeout, logger)
	client := discord.NewClient(store, source, logger)

	srv := mcpserver.New(client, cfg, logger, version)
	return srv.ServeStdio(ctx)
}

// runToken drives an interactive browser login so the human can clear
// CAPTCHA or MFA prompts, then prints and caches the extracted token.
// Configured credentials pre-fill the form; without them the human logs
// in manually in the browser window.
func runToken(ctx context.Context) error {
	cfg, err := config.LoadForLogin()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	store := tokenstore.New(discord.ExpandHome(cfg.Discord.TokenFile), logger)
	source := extractor.New(false, cfg.Browser.LoginTimeout, logger)

	if cfg.Discord.Email != "" && cfg.Discord.Password != "" {
		fmt.Fprintln(os.Stderr, "Opening a browser window; complete any CAPTCHA or MFA prompt there.")
	} else {
		fmt.Fprintln(os.Stderr, "Opening a browser window; log in to Discord there.")
	}
	token, err := source.Extract(ctx, cfg.Discord.Email, cfg.Discord.Password)
	if err != nil {
		return fmt.Errorf("extracting token: %w", err)
	}
	store.Save(token)

	fmt.Printf("DISCORD_TOKEN=%s\n", token)
	fmt.Fprintf(os.Stderr, "Token saved to %s\n", cfg.Discord.TokenFile)
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
// Output goes to stderr so the stdio MCP transport keeps stdout.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	// Print record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Fprint(os.Stderr, buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}
