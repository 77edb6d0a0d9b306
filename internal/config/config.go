// ABOUTME: Configuration loading and parsing for discord-mcp
// ABOUTME: YAML file with env expansion, layered under environment overrides

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/2389/discord-mcp/internal/tokenstore"
)

// Defaults applied when neither file nor environment sets a value.
const (
	DefaultMaxMessagesPerChannel = 200
	DefaultHoursBack             = 24
	DefaultLoginTimeout          = 2 * time.Minute
)

// Config represents the complete discord-mcp configuration
type Config struct {
	Discord DiscordConfig `yaml:"discord"`
	Browser BrowserConfig `yaml:"browser"`
	Limits  LimitsConfig  `yaml:"limits"`
	Logging LoggingConfig `yaml:"logging"`
}

// DiscordConfig holds account credentials and scoping
type DiscordConfig struct {
	Token     string   `yaml:"token"`
	Email     string   `yaml:"email"`
	Password  string   `yaml:"password"`
	GuildIDs  []string `yaml:"guild_ids"`
	TokenFile string   `yaml:"token_file"`
}

// BrowserConfig holds browser automation settings
type BrowserConfig struct {
	// Headless is a pointer so an unset value can default to true.
	Headless     *bool         `yaml:"headless"`
	LoginTimeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	LoginTimeoutRaw string `yaml:"login_timeout"`
}

// LimitsConfig holds message fetch limits
type LimitsConfig struct {
	MaxMessagesPerChannel int `yaml:"max_messages_per_channel"`
	DefaultHoursBack      int `yaml:"default_hours_back"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// IsHeadless reports the effective headless setting; unset means true.
func (b BrowserConfig) IsHeadless() bool {
	return b.Headless == nil || *b.Headless
}

// Load reads configuration from the default file locations. See the
// package documentation for the search order.
func Load() (*Config, error) {
	return load(true)
}

// LoadForLogin reads configuration like Load but does not require
// credentials: the interactive login flow works with none configured,
// leaving the browser form to the human.
func LoadForLogin() (*Config, error) {
	return load(false)
}

func load(requireCreds bool) (*Config, error) {
	if path := os.Getenv("DISCORD_MCP_CONFIG"); path != "" {
		return loadFromPath(path, requireCreds)
	}
	for _, path := range defaultPaths() {
		if _, err := os.Stat(path); err == nil {
			return loadFromPath(path, requireCreds)
		}
	}
	// No file anywhere: environment-only configuration.
	return loadFromPath("", requireCreds)
}

// LoadFromPath reads a configuration file from the given path and
// returns a parsed Config. Environment variables in the format
// ${VAR_NAME} are expanded before parsing, then overrides from the
// process environment are layered on top. An empty path skips the file
// and uses the environment alone.
func LoadFromPath(path string) (*Config, error) {
	return loadFromPath(path, true)
}

func loadFromPath(path string, requireCreds bool) (*Config, error) {
	// Settings in an existing process environment win over .env.
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}
	if err := cfg.validate(requireCreds); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func defaultPaths() []string {
	paths := []string{"discord-mcp.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "discord-mcp", "config.yaml"))
	}
	return paths
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables expand to empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyEnvOverrides layers well-known environment variables over the
// file values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		cfg.Discord.Token = v
	}
	if v := os.Getenv("DISCORD_EMAIL"); v != "" {
		cfg.Discord.Email = v
	}
	if v := os.Getenv("DISCORD_PASSWORD"); v != "" {
		cfg.Discord.Password = v
	}
	if v := os.Getenv("DISCORD_HEADLESS"); v != "" {
		headless := strings.EqualFold(v, "true")
		cfg.Browser.Headless = &headless
	}
	if v := os.Getenv("DISCORD_GUILD_IDS"); v != "" {
		cfg.Discord.GuildIDs = splitGuildIDs(v)
	}
	if v := os.Getenv("MAX_MESSAGES_PER_CHANNEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Limits.MaxMessagesPerChannel = n
		}
	}
	if v := os.Getenv("DEFAULT_HOURS_BACK"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Limits.DefaultHoursBack = n
		}
	}
}

func splitGuildIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func applyDefaults(cfg *Config) {
	if cfg.Limits.MaxMessagesPerChannel == 0 {
		cfg.Limits.MaxMessagesPerChannel = DefaultMaxMessagesPerChannel
	}
	if cfg.Limits.DefaultHoursBack == 0 {
		cfg.Limits.DefaultHoursBack = DefaultHoursBack
	}
	if cfg.Discord.TokenFile == "" {
		cfg.Discord.TokenFile = tokenstore.DefaultPath()
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present
// and valid. Returns an error describing the first validation failure
// encountered.
func (c *Config) Validate() error {
	return c.validate(true)
}

func (c *Config) validate(requireCreds bool) error {
	if requireCreds && c.Discord.Token == "" && (c.Discord.Email == "" || c.Discord.Password == "") {
		return fmt.Errorf("either discord.token or both discord.email and discord.password are required " +
			"(DISCORD_TOKEN, or DISCORD_EMAIL and DISCORD_PASSWORD)")
	}
	if c.Limits.MaxMessagesPerChannel < 1 {
		return fmt.Errorf("limits.max_messages_per_channel must be positive")
	}
	if c.Limits.DefaultHoursBack < 1 {
		return fmt.Errorf("limits.default_hours_back must be positive")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	cfg.Browser.LoginTimeout = DefaultLoginTimeout
	if cfg.Browser.LoginTimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.Browser.LoginTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing login_timeout %q: %w", cfg.Browser.LoginTimeoutRaw, err)
		}
		cfg.Browser.LoginTimeout = d
	}
	return nil
}
