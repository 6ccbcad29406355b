package config

import (
	"strings"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Cache.ArtworkCapacity != 50 {
		t.Errorf("ArtworkCapacity = %d, want 50", cfg.Cache.ArtworkCapacity)
	}
	if cfg.Cache.ArtworkMaxDays != 7 {
		t.Errorf("ArtworkMaxDays = %d, want 7", cfg.Cache.ArtworkMaxDays)
	}
	if cfg.Player.Command != "mpv" {
		t.Errorf("Player.Command = %q, want mpv", cfg.Player.Command)
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Logging.Level = %q, want INFO", cfg.Logging.Level)
	}
	if cfg.Logging.File == "" {
		t.Error("Logging.File should have a default")
	}
}

func TestIsConfigured(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.IsConfigured() {
		t.Fatal("fresh config should not be configured")
	}

	cfg.Server.URL = "http://demo.jellyfin.org"
	if cfg.IsConfigured() {
		t.Fatal("URL without token is not a session")
	}

	cfg.Server.Token = "tok-1"
	if !cfg.IsConfigured() {
		t.Fatal("URL plus token is a session")
	}
}

func TestCachePathFallsBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.Dir = ""
	if cfg.CachePath() == "" {
		t.Fatal("CachePath should fall back to a default")
	}

	cfg.Cache.Dir = "/tmp/tempo-cache"
	if got := cfg.CachePath(); got != "/tmp/tempo-cache" {
		t.Fatalf("CachePath = %q, want configured dir", got)
	}
}

func TestDefaultPathsAreNamespaced(t *testing.T) {
	for _, p := range []string{defaultConfigPath(), defaultCachePath(), defaultLogPath()} {
		if !strings.Contains(p, "tempo") {
			t.Errorf("path %q should live under a tempo directory", p)
		}
	}
}
