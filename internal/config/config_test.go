package config

import (
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Port != "8080" {
		t.Errorf("Expected port 8080, got %q", cfg.Port)
	}
	if cfg.InitialFreeCredits != 5 || cfg.SignupBonusCredits != 10 || cfg.AdBonusCredits != 10 {
		t.Errorf("Unexpected credit defaults: %+v", cfg)
	}
	if cfg.AdMinWatchSeconds != 13 {
		t.Errorf("Expected ad threshold 13, got %d", cfg.AdMinWatchSeconds)
	}
	if cfg.ReplyDelayMin != time.Second || cfg.ReplyDelayMax != 3*time.Second {
		t.Errorf("Unexpected reply delay bounds %v..%v", cfg.ReplyDelayMin, cfg.ReplyDelayMax)
	}
	if cfg.ContextWindow != 15 || cfg.EchoWindow != 20 || cfg.RehydrateWindow != 50 {
		t.Errorf("Unexpected windows %d/%d/%d", cfg.ContextWindow, cfg.EchoWindow, cfg.RehydrateWindow)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Errorf("Expected 2 default origins, got %v", cfg.AllowedOrigins)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Defaults should validate, got %v", err)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("AD_MIN_WATCH_SECONDS", "20")
	t.Setenv("TYPING_MAX", "1500ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Expected port 9090, got %q", cfg.Port)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "https://a.example" {
		t.Errorf("Origins not cleaned: %v", cfg.AllowedOrigins)
	}
	if cfg.AdMinWatchSeconds != 20 {
		t.Errorf("Expected 20, got %d", cfg.AdMinWatchSeconds)
	}
	if cfg.TypingMax != 1500*time.Millisecond {
		t.Errorf("Expected 1.5s, got %v", cfg.TypingMax)
	}
}

func TestLoad_RejectsBadProbability(t *testing.T) {
	t.Setenv("REPLY_PROBABILITY", "1.5")

	if _, err := Load(); err == nil {
		t.Error("Expected validation error for probability > 1")
	}
}

func TestValidate_Ranges(t *testing.T) {
	cfg := Default()
	cfg.AgentGapMin = 5 * time.Second
	cfg.AgentGapMax = time.Second

	if err := cfg.Validate(); err == nil {
		t.Error("Expected error when gap min exceeds max")
	}
}
