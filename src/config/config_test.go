package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "test_api_key")
	t.Setenv(APIKeyPathEnvVar, filepath.Join(t.TempDir(), "missing"))
	t.Setenv("MODEL", "test_model")
	t.Setenv("TRANSLATE_MODEL", "")
	t.Setenv("ENABLE_FILE_LOGGING", "true")
	t.Setenv("HOTKEY", "Ctrl+Shift+T")
	t.Setenv("OCR_LANGUAGES", "eng, jpn ,")
	t.Setenv("REARM_DELAY_MS", "250")
	t.Setenv("AUTO_REARM", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.APIKey != "test_api_key" {
		t.Errorf("Expected APIKey to be 'test_api_key', got '%s'", cfg.APIKey)
	}
	if cfg.Model != "test_model" || cfg.TranslateModel != "test_model" {
		t.Errorf("Expected both models to be 'test_model', got %q/%q", cfg.Model, cfg.TranslateModel)
	}
	if !cfg.EnableFileLogging {
		t.Errorf("Expected EnableFileLogging to be true")
	}
	if cfg.Hotkey != "Ctrl+Shift+T" {
		t.Errorf("Expected Hotkey to be 'Ctrl+Shift+T', got '%s'", cfg.Hotkey)
	}
	if len(cfg.OCRLanguages) != 2 || cfg.OCRLanguages[0] != "eng" || cfg.OCRLanguages[1] != "jpn" {
		t.Errorf("unexpected OCRLanguages %v", cfg.OCRLanguages)
	}
	if cfg.RearmDelay != 250*time.Millisecond {
		t.Errorf("Expected RearmDelay 250ms, got %v", cfg.RearmDelay)
	}
	if cfg.AutoRearm {
		t.Errorf("Expected AutoRearm false")
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"TARGET_LANGUAGE", "AUTO_REARM", "REARM_DELAY_MS", "SYNC_INTERVAL_MS", "OCR_ENGINE", "CONTROL_WIDTH", "CONTROL_HEIGHT", "OCR_LANGUAGES", "LLM_BASE_URL"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.TargetLanguage != "zh" {
		t.Errorf("TargetLanguage = %q", cfg.TargetLanguage)
	}
	if !cfg.AutoRearm {
		t.Error("AutoRearm should default to true")
	}
	if cfg.RearmDelay != time.Second || cfg.SyncInterval != 100*time.Millisecond {
		t.Errorf("unexpected timings %v %v", cfg.RearmDelay, cfg.SyncInterval)
	}
	if cfg.ControlWidth != 200 || cfg.ControlHeight != 100 {
		t.Errorf("unexpected control size %dx%d", cfg.ControlWidth, cfg.ControlHeight)
	}
	if cfg.OCREngine != EngineTesseract {
		t.Errorf("OCREngine = %q", cfg.OCREngine)
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
}

func TestAPIKeyFileWins(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(keyFile, []byte("  from-file \n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OPENROUTER_API_KEY", "from-env")

	cfg, err := LoadWithOptions(LoadOptions{APIKeyPathOverride: keyFile})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIKey != "from-file" {
		t.Fatalf("APIKey = %q, want from-file", cfg.APIKey)
	}
	if cfg.APIKeyPath != keyFile {
		t.Fatalf("APIKeyPath = %q", cfg.APIKeyPath)
	}
}

func TestResolveEngine(t *testing.T) {
	tests := map[string]string{
		"":          EngineTesseract,
		"Tesseract": EngineTesseract,
		"llm":       EngineLLM,
		" VISION ":  EngineLLM,
		"bogus":     EngineTesseract,
	}
	for in, want := range tests {
		if got := resolveEngine(in); got != want {
			t.Errorf("resolveEngine(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("TARGET_LANGUAGE=fr\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TARGET_LANGUAGE", "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	if err := Watch(ctx, envFile, func(c *Config) { changes <- c }); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if err := os.WriteFile(envFile, []byte("TARGET_LANGUAGE=de\nAUTO_REARM=false\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-changes:
		if cfg.TargetLanguage != "de" {
			t.Errorf("TargetLanguage = %q, want de", cfg.TargetLanguage)
		}
		if cfg.AutoRearm {
			t.Error("expected AutoRearm false after reload")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	_ = os.Unsetenv("AUTO_REARM")
}

func TestWatchRequiresPath(t *testing.T) {
	if err := Watch(context.Background(), "", func(*Config) {}); err == nil {
		t.Fatal("expected error for empty path")
	}
}
