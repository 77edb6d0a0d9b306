// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env expansion, env overrides, and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv unsets every override variable for the duration of a test so
// the developer's shell cannot leak into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DISCORD_TOKEN", "DISCORD_EMAIL", "DISCORD_PASSWORD",
		"DISCORD_HEADLESS", "DISCORD_GUILD_IDS",
		"MAX_MESSAGES_PER_CHANNEL", "DEFAULT_HOURS_BACK",
		"DISCORD_MCP_CONFIG",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadFromPath_ValidConfig(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
discord:
  token: "tok-from-file"
  guild_ids: ["111", "222"]
  token_file: "/tmp/token"

browser:
  headless: false
  login_timeout: "90s"

limits:
  max_messages_per_channel: 50
  default_hours_back: 12

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}

	if cfg.Discord.Token != "tok-from-file" {
		t.Errorf("Token = %q, want tok-from-file", cfg.Discord.Token)
	}
	if len(cfg.Discord.GuildIDs) != 2 || cfg.Discord.GuildIDs[0] != "111" {
		t.Errorf("GuildIDs = %v, want [111 222]", cfg.Discord.GuildIDs)
	}
	if cfg.Discord.TokenFile != "/tmp/token" {
		t.Errorf("TokenFile = %q, want /tmp/token", cfg.Discord.TokenFile)
	}
	if cfg.Browser.IsHeadless() {
		t.Error("IsHeadless() = true, want false")
	}
	if cfg.Browser.LoginTimeout != 90*time.Second {
		t.Errorf("LoginTimeout = %v, want 90s", cfg.Browser.LoginTimeout)
	}
	if cfg.Limits.MaxMessagesPerChannel != 50 {
		t.Errorf("MaxMessagesPerChannel = %d, want 50", cfg.Limits.MaxMessagesPerChannel)
	}
	if cfg.Limits.DefaultHoursBack != 12 {
		t.Errorf("DefaultHoursBack = %d, want 12", cfg.Limits.DefaultHoursBack)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want debug/json", cfg.Logging)
	}
}

func TestLoadFromPath_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_TOKEN", "tok")

	cfg, err := LoadFromPath("")
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}

	if !cfg.Browser.IsHeadless() {
		t.Error("IsHeadless() = false, want true by default")
	}
	if cfg.Browser.LoginTimeout != DefaultLoginTimeout {
		t.Errorf("LoginTimeout = %v, want %v", cfg.Browser.LoginTimeout, DefaultLoginTimeout)
	}
	if cfg.Limits.MaxMessagesPerChannel != DefaultMaxMessagesPerChannel {
		t.Errorf("MaxMessagesPerChannel = %d, want %d",
			cfg.Limits.MaxMessagesPerChannel, DefaultMaxMessagesPerChannel)
	}
	if cfg.Limits.DefaultHoursBack != DefaultHoursBack {
		t.Errorf("DefaultHoursBack = %d, want %d", cfg.Limits.DefaultHoursBack, DefaultHoursBack)
	}
	if cfg.Discord.TokenFile == "" {
		t.Error("TokenFile not defaulted")
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v, want info/text", cfg.Logging)
	}
}

func TestLoadFromPath_EnvVarExpansion(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_DISCORD_TOKEN", "expanded-tok")
	path := writeConfig(t, `
discord:
  token: "${TEST_DISCORD_TOKEN}"
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if cfg.Discord.Token != "expanded-tok" {
		t.Errorf("Token = %q, want expanded-tok", cfg.Discord.Token)
	}
}

func TestLoadFromPath_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
discord:
  token: "file-tok"
browser:
  headless: true
limits:
  max_messages_per_channel: 50
`)
	t.Setenv("DISCORD_TOKEN", "env-tok")
	t.Setenv("DISCORD_HEADLESS", "false")
	t.Setenv("DISCORD_GUILD_IDS", " 1, 2 ,,3 ")
	t.Setenv("MAX_MESSAGES_PER_CHANNEL", "75")
	t.Setenv("DEFAULT_HOURS_BACK", "48")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}

	if cfg.Discord.Token != "env-tok" {
		t.Errorf("Token = %q, want env-tok", cfg.Discord.Token)
	}
	if cfg.Browser.IsHeadless() {
		t.Error("IsHeadless() = true, want false from DISCORD_HEADLESS")
	}
	want := []string{"1", "2", "3"}
	if len(cfg.Discord.GuildIDs) != len(want) {
		t.Fatalf("GuildIDs = %v, want %v", cfg.Discord.GuildIDs, want)
	}
	for i := range want {
		if cfg.Discord.GuildIDs[i] != want[i] {
			t.Errorf("GuildIDs[%d] = %q, want %q", i, cfg.Discord.GuildIDs[i], want[i])
		}
	}
	if cfg.Limits.MaxMessagesPerChannel != 75 {
		t.Errorf("MaxMessagesPerChannel = %d, want 75", cfg.Limits.MaxMessagesPerChannel)
	}
	if cfg.Limits.DefaultHoursBack != 48 {
		t.Errorf("DefaultHoursBack = %d, want 48", cfg.Limits.DefaultHoursBack)
	}
}

func TestLoadFromPath_CredentialsSatisfyValidation(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_EMAIL", "a@b.c")
	t.Setenv("DISCORD_PASSWORD", "pw")

	if _, err := LoadFromPath(""); err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
}

func TestLoadFromPath_MissingCredentials(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "nothing set", env: nil},
		{name: "email without password", env: map[string]string{"DISCORD_EMAIL": "a@b.c"}},
		{name: "password without email", env: map[string]string{"DISCORD_PASSWORD": "pw"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFromPath("")
			if err == nil {
				t.Fatal("LoadFromPath() succeeded, want validation error")
			}
			if !strings.Contains(err.Error(), "DISCORD_TOKEN") {
				t.Errorf("error %q does not name the missing variables", err)
			}
		})
	}
}

func TestLoadForLogin_NoCredentialsNeeded(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadForLogin()
	if err != nil {
		t.Fatalf("LoadForLogin() error: %v", err)
	}
	if cfg.Discord.Email != "" || cfg.Discord.Password != "" {
		t.Errorf("credentials = %q/%q, want empty", cfg.Discord.Email, cfg.Discord.Password)
	}
	if cfg.Browser.LoginTimeout != DefaultLoginTimeout {
		t.Errorf("LoginTimeout = %v, want %v", cfg.Browser.LoginTimeout, DefaultLoginTimeout)
	}
}

func TestLoadForLogin_StillValidatesLimits(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_MESSAGES_PER_CHANNEL", "-5")

	if _, err := LoadForLogin(); err == nil {
		t.Fatal("LoadForLogin() succeeded, want limits validation error")
	}
}

func TestLoadFromPath_InvalidLimits(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_TOKEN", "tok")
	path := writeConfig(t, `
limits:
  max_messages_per_channel: -5
`)

	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("LoadFromPath() succeeded, want limits validation error")
	}
}

func TestLoadFromPath_InvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_TOKEN", "tok")
	path := writeConfig(t, `
browser:
  login_timeout: "soon"
`)

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatal("LoadFromPath() succeeded, want duration parse error")
	}
	if !strings.Contains(err.Error(), "login_timeout") {
		t.Errorf("error %q does not name the bad field", err)
	}
}

func TestLoadFromPath_MissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("LoadFromPath() succeeded, want read error for explicit path")
	}
}
