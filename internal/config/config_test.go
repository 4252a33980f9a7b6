package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_DefaultsAndFile(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: sqlite
  path: /tmp/procure-test.db
jwt:
  secret: file-secret
purchasing:
  notify_chat_id: oc_123
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.Path != "/tmp/procure-test.db" {
		t.Errorf("unexpected database config: %+v", cfg.Database)
	}
	if cfg.Purchasing.StaleAfter != 240*time.Hour {
		t.Errorf("expected 10 day stale threshold, got %s", cfg.Purchasing.StaleAfter)
	}
	if cfg.Purchasing.AutoConfirmFullReceipt {
		t.Error("expected auto confirm to be off by default")
	}
	if cfg.Purchasing.DefaultTaxRate != "18" {
		t.Errorf("expected default tax rate 18, got %q", cfg.Purchasing.DefaultTaxRate)
	}
	if cfg.Purchasing.NotifyChatID != "oc_123" {
		t.Errorf("expected chat id from file, got %q", cfg.Purchasing.NotifyChatID)
	}
	if cfg.Feishu.Enabled() {
		t.Error("feishu should be disabled without credentials")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: sqlite
jwt:
  secret: file-secret
`)
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("PURCHASING_STALE_AFTER", "72h")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.JWT.Secret != "env-secret" {
		t.Errorf("expected env secret, got %q", cfg.JWT.Secret)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Purchasing.StaleAfter != 72*time.Hour {
		t.Errorf("expected 72h, got %s", cfg.Purchasing.StaleAfter)
	}
}

func TestLoad_Validation(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{"unknown driver", "database:\n  driver: mysql\njwt:\n  secret: s\n"},
		{"missing secret", "database:\n  driver: sqlite\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			if _, err := Load(writeConfig(t, tc.content)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
