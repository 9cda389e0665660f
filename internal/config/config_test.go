package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("VERIDICT_CONFIG", "")
	t.Setenv("VERIDICT_ARTIFACT_DIR", "")
	t.Setenv("VERIDICT_LISTEN_ADDR", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GEMINI_MODEL", "")

	cfg := Load()
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.Server.ListenAddr)
	}
	if cfg.Training.MaxFeatures != 10000 || cfg.Training.MinDocFreq != 2 {
		t.Errorf("training defaults = %+v", cfg.Training)
	}
	if cfg.Training.TrainRatio+cfg.Training.ValRatio+cfg.Training.TestRatio != 1.0 {
		t.Errorf("default split ratios do not sum to 1: %+v", cfg.Training)
	}
	if cfg.Input.MinChars != 10 || cfg.Input.MaxWords != 5000 {
		t.Errorf("input defaults = %+v", cfg.Input)
	}
	if cfg.Analyzer.CacheCapacity != 50 || cfg.Analyzer.Workers != 2 {
		t.Errorf("analyzer defaults = %+v", cfg.Analyzer)
	}
	if cfg.Analyzer.APIKey != "" {
		t.Error("analyzer API key should default to empty")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  listenAddr: ":9999"
training:
  maxFeatures: 500
input:
  minChars: 25
analyzer:
  model: custom-model
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv("VERIDICT_CONFIG", path)
	t.Setenv("VERIDICT_LISTEN_ADDR", "")
	t.Setenv("GEMINI_MODEL", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("VERIDICT_ARTIFACT_DIR", "")

	cfg := Load()
	if cfg.Server.ListenAddr != ":9999" {
		t.Errorf("ListenAddr = %q, want :9999", cfg.Server.ListenAddr)
	}
	if cfg.Training.MaxFeatures != 500 {
		t.Errorf("MaxFeatures = %d, want 500", cfg.Training.MaxFeatures)
	}
	if cfg.Input.MinChars != 25 {
		t.Errorf("MinChars = %d, want 25", cfg.Input.MinChars)
	}
	if cfg.Analyzer.Model != "custom-model" {
		t.Errorf("Model = %q, want custom-model", cfg.Analyzer.Model)
	}
	// Untouched keys keep their defaults.
	if cfg.Training.MinDocFreq != 2 {
		t.Errorf("MinDocFreq = %d, want default 2", cfg.Training.MinDocFreq)
	}
	if cfg.Input.MaxWords != 5000 {
		t.Errorf("MaxWords = %d, want default 5000", cfg.Input.MaxWords)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  listenAddr: \":9999\"\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv("VERIDICT_CONFIG", path)
	t.Setenv("VERIDICT_LISTEN_ADDR", ":7777")
	t.Setenv("VERIDICT_ARTIFACT_DIR", "/tmp/custom-models")
	t.Setenv("GEMINI_API_KEY", "secret")
	t.Setenv("GEMINI_MODEL", "")

	cfg := Load()
	if cfg.Server.ListenAddr != ":7777" {
		t.Errorf("ListenAddr = %q, env override should win", cfg.Server.ListenAddr)
	}
	if cfg.Artifacts.Dir != "/tmp/custom-models" {
		t.Errorf("Artifacts.Dir = %q, want env override", cfg.Artifacts.Dir)
	}
	if cfg.Analyzer.APIKey != "secret" {
		t.Errorf("APIKey = %q, want env value", cfg.Analyzer.APIKey)
	}
}

func TestLoadBrokenFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [broken\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv("VERIDICT_CONFIG", path)
	t.Setenv("VERIDICT_LISTEN_ADDR", "")
	t.Setenv("VERIDICT_ARTIFACT_DIR", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GEMINI_MODEL", "")

	cfg := Load()
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want default after parse failure", cfg.Server.ListenAddr)
	}
}
