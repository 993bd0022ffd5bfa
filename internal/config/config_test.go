package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != defaultBaseURL || cfg.Model != defaultModel {
		t.Errorf("expected defaults, got %+v", cfg)
	}
	if cfg.APIKey != "" {
		t.Errorf("expected empty api key, got %q", cfg.APIKey)
	}
}

func TestLoadAppliesDefaultsForMissingOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`api_key = "sk-test"`+"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "sk-test" {
		t.Errorf("APIKey = %q, want sk-test", cfg.APIKey)
	}
	if cfg.BaseURL != defaultBaseURL || cfg.Model != defaultModel {
		t.Errorf("expected base_url/model defaults, got %+v", cfg)
	}
}

func TestLoadFallsBackToEnvAPIKey(t *testing.T) {
	t.Setenv("IDX_API_KEY", "sk-env")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "sk-env" {
		t.Errorf("APIKey = %q, want sk-env", cfg.APIKey)
	}
}

func TestRequireAPIKeyErrorsWhenUnset(t *testing.T) {
	cfg := &Config{BaseURL: defaultBaseURL, Model: defaultModel}
	if err := cfg.RequireAPIKey(); err == nil {
		t.Fatalf("expected error for unset api_key")
	}
	cfg.APIKey = "sk-test"
	if err := cfg.RequireAPIKey(); err != nil {
		t.Errorf("RequireAPIKey: %v", err)
	}
}

func TestSaveRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := &Config{APIKey: "sk-test", BaseURL: defaultBaseURL, Model: defaultModel}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.APIKey != cfg.APIKey || got.BaseURL != cfg.BaseURL || got.Model != cfg.Model {
		t.Errorf("round-trip mismatch: got %+v, want %+v", got, cfg)
	}
}
