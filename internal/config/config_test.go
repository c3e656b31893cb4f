package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("missing file must not fail: %v", err)
	}
	if cfg.Align.Language != nil || cfg.Features.LMFile != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[align]
language = "spanish"

[features]
lm-file = "/models/chars.lm"
max-diff = 10
redis = "localhost:6379"

[log]
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Align.Language == nil || *cfg.Align.Language != "spanish" {
		t.Fatalf("unexpected language %v", cfg.Align.Language)
	}
	if cfg.Features.MaxDiff == nil || *cfg.Features.MaxDiff != 10 {
		t.Fatalf("unexpected max-diff %v", cfg.Features.MaxDiff)
	}
	if cfg.Features.CacheSize != nil || cfg.Align.Delimiter != nil {
		t.Fatalf("unset keys must stay nil")
	}
	if cfg.Log.Level == nil || *cfg.Log.Level != "debug" {
		t.Fatalf("unexpected log level %v", cfg.Log.Level)
	}
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[align]\nlanguge = \"english\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected unknown key to be rejected")
	}
}

func TestDefaultPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	t.Setenv("XDG_STATE_HOME", "/state")
	if got := DefaultConfigPath(); got != filepath.Join("/cfg", "typeclass", "config.toml") {
		t.Fatalf("unexpected config path %q", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/data", "typeclass", "typeclass.db") {
		t.Fatalf("unexpected db path %q", got)
	}
	if got := DefaultLogPath(); got != filepath.Join("/state", "typeclass", "typeclass.log") {
		t.Fatalf("unexpected log path %q", got)
	}
}

func TestIDMap(t *testing.T) {
	m, err := LoadIDMap("English")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m == nil || m.Len() != 85 {
		t.Fatalf("expected the english table")
	}
	cases := map[string]string{"143": "1a", "143.0": "1a", " 230 ": "44b", "188": "23"}
	for raw, want := range cases {
		if got, ok := m.Lookup(raw); !ok || got != want {
			t.Fatalf("Lookup(%q) = %q/%v, want %q", raw, got, ok, want)
		}
	}
	if _, ok := m.Lookup("147"); ok {
		t.Fatalf("147 is not in the table")
	}

	none, err := LoadIDMap("spanish")
	if err != nil || none != nil {
		t.Fatalf("spanish has no table, got %v/%v", none, err)
	}
}

func TestNormalizeID(t *testing.T) {
	cases := map[string]string{"143.0": "143", "143": "143", "p7": "p7", "12.5": "12.5"}
	for in, want := range cases {
		if got := NormalizeID(in); got != want {
			t.Fatalf("NormalizeID(%q) = %q, want %q", in, got, want)
		}
	}
}
