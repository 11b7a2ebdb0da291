package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"DATABASE_URL", "PORT", "CORS_ALLOWED_ORIGINS", "JOBLEDGER_CONFIG"} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobledger.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "8080" || cfg.Addr() != "0.0.0.0:8080" {
		t.Errorf("port = %q addr = %q", cfg.Port, cfg.Addr())
	}
	if cfg.DatabaseURL != defaultDatabaseURL {
		t.Errorf("database url = %q", cfg.DatabaseURL)
	}
	var rules map[string]interface{}
	if err := json.Unmarshal(cfg.DefaultRules, &rules); err != nil {
		t.Fatalf("default rules: %v", err)
	}
	if rules["connect_cost_per_unit"] != 0.15 {
		t.Errorf("connect cost = %v", rules["connect_cost_per_unit"])
	}
}

func TestLoad_MissingFileIsIgnored(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != defaultPort {
		t.Errorf("port = %q", cfg.Port)
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
port: "9090"
cors_allowed_origins:
  - https://ledger.example.com
default_rules:
  connect_cost_per_unit: 0.2
  platform_fee:
    enabled: true
    mode: percent
    value: 0.1
    apply_on: gross
  require_percent_allocations_sum_to_1: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "9090" {
		t.Errorf("port = %q", cfg.Port)
	}
	if cfg.DatabaseURL != defaultDatabaseURL {
		t.Errorf("unset key overwrote default: %q", cfg.DatabaseURL)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "https://ledger.example.com" {
		t.Errorf("origins = %v", cfg.AllowedOrigins)
	}
	var rules struct {
		ConnectCost float64 `json:"connect_cost_per_unit"`
		PlatformFee struct {
			ApplyOn string `json:"apply_on"`
		} `json:"platform_fee"`
	}
	if err := json.Unmarshal(cfg.DefaultRules, &rules); err != nil {
		t.Fatalf("default rules: %v", err)
	}
	if rules.ConnectCost != 0.2 || rules.PlatformFee.ApplyOn != "gross" {
		t.Errorf("rules = %+v", rules)
	}
}

func TestLoad_EnvWins(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "port: \"9090\"\ndatabase_url: postgres://file\n")
	t.Setenv("JOBLEDGER_CONFIG", path)
	t.Setenv("PORT", "7000")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "7000" {
		t.Errorf("port = %q", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://file" {
		t.Errorf("database url = %q", cfg.DatabaseURL)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("origins = %v", cfg.AllowedOrigins)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)
	if _, err := Load(writeFile(t, "port: [unterminated")); err == nil {
		t.Fatal("expected parse error")
	}
}
