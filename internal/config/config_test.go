package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaultsAndExpandsEnv(t *testing.T) {
	os.Setenv("DOCDB_TEST_KEY", "secret123")
	defer os.Unsetenv("DOCDB_TEST_KEY")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := "auth:\n  api_key: ${DOCDB_TEST_KEY}\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.APIKey != "secret123" {
		t.Fatalf("api key = %q, want secret123", cfg.Auth.APIKey)
	}
	if cfg.HTTP.ListenAddr != ":8089" {
		t.Fatalf("listen addr default = %q", cfg.HTTP.ListenAddr)
	}
	if cfg.Database.Name != "docdb.bolt" {
		t.Fatalf("database name default = %q", cfg.Database.Name)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("logging level default = %q", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := Config{Logging: LoggingConfig{Level: "verbose"}}
	cfg.HTTP.ListenAddr = ":8089"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}
