package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.API.BaseURL != "http://localhost:3000/api" {
		t.Errorf("expected default base URL, got %s", cfg.API.BaseURL)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("expected driver=sqlite, got %s", cfg.Storage.Driver)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("STOREFRONT_API_URL", "")
	t.Setenv("STOREFRONT_DB", "")

	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.API.BaseURL = "https://shop.example.com/api"
	cfg.Payment.ProcessingDelay = "10ms"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.API.BaseURL != "https://shop.example.com/api" {
		t.Errorf("expected saved base URL, got %s", loaded.API.BaseURL)
	}
	if loaded.GetProcessingDelay() != 10*time.Millisecond {
		t.Errorf("expected 10ms delay, got %v", loaded.GetProcessingDelay())
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Name != "storefront" {
		t.Errorf("expected defaults, got name %q", cfg.Name)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.API.BaseURL = "not a url"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for bad base URL")
	}

	cfg = DefaultConfig()
	cfg.API.BaseURL = "ftp://example.com"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for ftp scheme")
	}

	cfg = DefaultConfig()
	cfg.Storage.Driver = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for unknown driver")
	}

	cfg = DefaultConfig()
	cfg.UI.Theme = "neon"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for unknown theme")
	}

	cfg = DefaultConfig()
	cfg.Payment.ProcessingDelay = "-1s"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for negative delay")
	}
}

func TestConfig_DurationFallbacks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.API.Timeout = "garbage"
	cfg.Payment.ProcessingDelay = "garbage"

	if cfg.GetAPITimeout() != 30*time.Second {
		t.Errorf("expected 30s fallback, got %v", cfg.GetAPITimeout())
	}
	if cfg.GetProcessingDelay() != 1500*time.Millisecond {
		t.Errorf("expected 1.5s fallback, got %v", cfg.GetProcessingDelay())
	}
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	lc := LoggingConfig{}
	if lc.IsCategoryEnabled("cart") {
		t.Error("disabled debug mode should disable every category")
	}

	lc.DebugMode = true
	if !lc.IsCategoryEnabled("cart") {
		t.Error("nil category map should enable all")
	}

	lc.Categories = map[string]bool{"cart": false}
	if lc.IsCategoryEnabled("cart") {
		t.Error("explicitly disabled category")
	}
	if !lc.IsCategoryEnabled("api") {
		t.Error("unlisted category should default to enabled")
	}

	s := lc.Settings(true)
	if !s.Stderr || !s.DebugMode {
		t.Errorf("unexpected settings: %+v", s)
	}
}

func TestUIConfig_CurrencySymbol(t *testing.T) {
	if got := (UIConfig{}).CurrencySymbol(); got != "₹" {
		t.Errorf("expected rupee default, got %q", got)
	}
	if got := (UIConfig{Currency: "$"}).CurrencySymbol(); got != "$" {
		t.Errorf("expected $, got %q", got)
	}
}
