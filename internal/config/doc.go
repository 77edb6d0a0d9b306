// Package config handles configuration loading for discord-mcp.
//
// # Overview
//
// Configuration comes from an optional YAML file layered under
// environment variables. A .env file in the working directory is
// loaded first, so the same settings work in development and under an
// MCP client's process environment.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from DISCORD_MCP_CONFIG environment variable
//  2. ./discord-mcp.yaml (current directory)
//  3. ~/.config/discord-mcp/config.yaml
//
// A missing file is not an error: every setting can come from the
// environment alone.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	discord:
//	  token: "${DISCORD_TOKEN}"
//
// # Environment Overrides
//
// These variables override the corresponding file values:
//
//	DISCORD_TOKEN, DISCORD_EMAIL, DISCORD_PASSWORD
//	DISCORD_HEADLESS, DISCORD_GUILD_IDS
//	MAX_MESSAGES_PER_CHANNEL, DEFAULT_HOURS_BACK
//
// # Configuration Sections
//
// Account settings:
//
//	discord:
//	  token: "${DISCORD_TOKEN}"       # Skips browser login when set
//	  email: "${DISCORD_EMAIL}"
//	  password: "${DISCORD_PASSWORD}"
//	  guild_ids: ["123", "456"]       # Optional server allow-list
//	  token_file: "~/.discord_mcp_token"
//
// Browser automation:
//
//	browser:
//	  headless: true
//	  login_timeout: "2m"
//
// Fetch limits:
//
//	limits:
//	  max_messages_per_channel: 200
//	  default_hours_back: 24
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Validation
//
// Load() requires either a token or an email/password pair, and
// positive fetch limits.
package config
