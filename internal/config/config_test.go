// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, defaults, and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "0.0.0.0:8080"

database:
  path: "./test.db"

business:
  name: "Acme Retail"
  handoff_message: "Back to the bot"

messaging:
  api_base: "https://bm.example.com"
  credentials_file: "/tmp/creds.json"

webhook:
  dedupe_ttl: "2m"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "0.0.0.0:8080")
	}
	if cfg.Database.Path != "./test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./test.db")
	}
	if cfg.Business.Name != "Acme Retail" {
		t.Errorf("Business.Name = %q, want %q", cfg.Business.Name, "Acme Retail")
	}
	if cfg.Business.HandoffMessage != "Back to the bot" {
		t.Errorf("HandoffMessage = %q, want %q", cfg.Business.HandoffMessage, "Back to the bot")
	}
	if cfg.Messaging.APIBase != "https://bm.example.com" {
		t.Errorf("APIBase = %q, want %q", cfg.Messaging.APIBase, "https://bm.example.com")
	}
	if cfg.Webhook.DedupeTTL != 2*time.Minute {
		t.Errorf("DedupeTTL = %v, want %v", cfg.Webhook.DedupeTTL, 2*time.Minute)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want debug/json", cfg.Logging)
	}
}

func TestLoad_Defaults(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "localhost:8080"

database:
  path: "./test.db"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Business.Name != DefaultBusinessName {
		t.Errorf("Business.Name = %q, want default %q", cfg.Business.Name, DefaultBusinessName)
	}
	if cfg.Business.HandoffMessage != DefaultHandoffMessage {
		t.Errorf("HandoffMessage = %q, want default %q", cfg.Business.HandoffMessage, DefaultHandoffMessage)
	}
	if cfg.Messaging.APIBase != DefaultAPIBase {
		t.Errorf("APIBase = %q, want default %q", cfg.Messaging.APIBase, DefaultAPIBase)
	}
	if cfg.Webhook.DedupeTTL != DefaultDedupeTTL {
		t.Errorf("DedupeTTL = %v, want default %v", cfg.Webhook.DedupeTTL, DefaultDedupeTTL)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("HANDOFF_TEST_DB", "/tmp/expanded.db")

	configPath := writeConfig(t, `
server:
  http_addr: "localhost:8080"

database:
  path: "${HANDOFF_TEST_DB}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/expanded.db" {
		t.Errorf("Database.Path = %q, want expanded value", cfg.Database.Path)
	}
}

func TestLoad_MissingHTTPAddr(t *testing.T) {
	configPath := writeConfig(t, `
database:
  path: "./test.db"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected error for missing http_addr")
	}
	if !strings.Contains(err.Error(), "http_addr") {
		t.Errorf("error = %v, want mention of http_addr", err)
	}
}

func TestLoad_TailscaleRequiresHostname(t *testing.T) {
	configPath := writeConfig(t, `
tailscale:
  enabled: true

database:
  path: "./test.db"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected error for missing tailscale hostname")
	}
	if !strings.Contains(err.Error(), "hostname") {
		t.Errorf("error = %v, want mention of hostname", err)
	}
}

func TestLoad_TailscaleWithoutHTTPAddr(t *testing.T) {
	configPath := writeConfig(t, `
tailscale:
  enabled: true
  hostname: "handoff-gateway"

database:
  path: "./test.db"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Tailscale.Enabled {
		t.Error("Tailscale.Enabled = false, want true")
	}
}

func TestLoad_InvalidDedupeTTL(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "localhost:8080"

database:
  path: "./test.db"

webhook:
  dedupe_ttl: "not-a-duration"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected error for invalid dedupe_ttl")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}
