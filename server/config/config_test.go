package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.Inference.MaxAttempts != 5 {
		t.Fatalf("expected 5 upload attempts, got %d", cfg.Inference.MaxAttempts)
	}
	if cfg.Inference.UploadTimeout != 30*time.Second {
		t.Fatalf("expected 30s base upload timeout, got %v", cfg.Inference.UploadTimeout)
	}
	if cfg.Inference.UploadTimeoutCeiling != 120*time.Second {
		t.Fatalf("expected 120s upload timeout ceiling, got %v", cfg.Inference.UploadTimeoutCeiling)
	}
	if cfg.Inference.WarmupBudget != 90*time.Second {
		t.Fatalf("expected 90s warm-up budget, got %v", cfg.Inference.WarmupBudget)
	}

	if err := cfg.ValidateConfig(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("INFERENCE_MAX_ATTEMPTS", "3")
	t.Setenv("INFERENCE_UPLOAD_TIMEOUT", "10s")
	t.Setenv("INFERENCE_BASE_URL", "http://inference.internal:8000")

	cfg := LoadConfig()

	if cfg.Inference.MaxAttempts != 3 {
		t.Fatalf("expected env override to 3 attempts, got %d", cfg.Inference.MaxAttempts)
	}
	if cfg.Inference.UploadTimeout != 10*time.Second {
		t.Fatalf("expected env override to 10s, got %v", cfg.Inference.UploadTimeout)
	}
	if cfg.Inference.BaseURL != "http://inference.internal:8000" {
		t.Fatalf("unexpected base URL %q", cfg.Inference.BaseURL)
	}
}

func TestValidateConfigRejectsBadValues(t *testing.T) {
	cfg := LoadConfig()
	cfg.Inference.BaseURL = ""
	cfg.Inference.MaxAttempts = 0

	if err := cfg.ValidateConfig(); err == nil {
		t.Fatal("expected validation failure for empty base URL and zero attempts")
	}
}
