package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadYAMLWithEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
server:
  addr: ":9000"
database:
  dsn: "file:data/rewards.db"
jwt:
  secret: "from-file"
  expiry: 12h
webhook:
  secret: "whsec"
  tolerance: 2m
redis:
  addr: "localhost:6379"
loyalty:
  expiry-sweep-interval: 30m
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(EnvJWTSecret, "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9000" || cfg.Database.DSN != "file:data/rewards.db" {
		t.Fatalf("unexpected server/database config: %+v", cfg)
	}
	if cfg.JWT.Secret != "from-env" || cfg.JWT.Expiry != 12*time.Hour {
		t.Fatalf("unexpected jwt config: %+v", cfg.JWT)
	}
	if cfg.Webhook.Tolerance != 2*time.Minute {
		t.Fatalf("unexpected tolerance %s", cfg.Webhook.Tolerance)
	}
	if cfg.Loyalty.ExpirySweepInterval != 30*time.Minute {
		t.Fatalf("unexpected sweep interval %s", cfg.Loyalty.ExpirySweepInterval)
	}
	if cfg.Redis.ChannelPrefix != "loyalty:profile:" || cfg.Logging.Level != "info" {
		t.Fatalf("defaults not applied: %+v %+v", cfg.Redis, cfg.Logging)
	}
}

func TestLoadWithoutFileUsesEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")
	if _, err := LoadDatabaseDSN(path); !errors.Is(err, ErrMissingDSN) {
		t.Fatalf("expected missing dsn, got %v", err)
	}
	t.Setenv(EnvDatabaseDSN, "postgres://u:p@localhost/rewards")
	dsn, err := LoadDatabaseDSN(path)
	if err != nil {
		t.Fatalf("load dsn: %v", err)
	}
	if dsn != "postgres://u:p@localhost/rewards" {
		t.Fatalf("unexpected dsn %q", dsn)
	}
	if ConfigExists(path) {
		t.Fatalf("absent file reported as existing")
	}
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	if got := ResolveConfigPath(""); got != DefaultConfigPath {
		t.Fatalf("expected default path, got %q", got)
	}
	t.Setenv(EnvConfigPath, "/etc/rewards.yaml")
	if got := ResolveConfigPath(""); got != "/etc/rewards.yaml" {
		t.Fatalf("expected env path, got %q", got)
	}
	if got := ResolveConfigPath(" local.yaml "); got != "local.yaml" {
		t.Fatalf("expected flag path, got %q", got)
	}
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
