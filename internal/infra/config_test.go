package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PORT", "")
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("MAX_IMAGE_DIMENSION", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port mismatch: got %q want 8080", cfg.Port)
	}
	if cfg.StorageBackend != "filesystem" {
		t.Fatalf("StorageBackend mismatch: got %q", cfg.StorageBackend)
	}
	if cfg.MaxImageDimension != 2048 {
		t.Fatalf("MaxImageDimension mismatch: got %d", cfg.MaxImageDimension)
	}
	if cfg.ShadowOpacity != 0.3 {
		t.Fatalf("ShadowOpacity mismatch: got %v", cfg.ShadowOpacity)
	}
	if cfg.StaleJobAfter != 30*time.Minute {
		t.Fatalf("StaleJobAfter mismatch: got %v", cfg.StaleJobAfter)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("AllowedOrigins mismatch: %#v", cfg.AllowedOrigins)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("STORAGE_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "product-shots")
	t.Setenv("MASK_EXPAND_PIXELS", "16")
	t.Setenv("SHADOW_OPACITY", "0.45")
	t.Setenv("STALE_JOB_AFTER_MINUTES", "5")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StorageBackend != "s3" || cfg.S3Bucket != "product-shots" {
		t.Fatalf("storage mismatch: %q %q", cfg.StorageBackend, cfg.S3Bucket)
	}
	if cfg.MaskExpandPixels != 16 {
		t.Fatalf("MaskExpandPixels mismatch: got %d", cfg.MaskExpandPixels)
	}
	if cfg.ShadowOpacity != 0.45 {
		t.Fatalf("ShadowOpacity mismatch: got %v", cfg.ShadowOpacity)
	}
	if cfg.StaleJobAfter != 5*time.Minute {
		t.Fatalf("StaleJobAfter mismatch: got %v", cfg.StaleJobAfter)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example.com" {
		t.Fatalf("AllowedOrigins mismatch: %#v", cfg.AllowedOrigins)
	}
}

func TestLoadConfigIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("INPAINT_STEPS", "not-a-number")
	t.Setenv("INPAINT_GUIDANCE_SCALE", "also-not")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.InpaintSteps != 30 {
		t.Fatalf("InpaintSteps should fall back to default, got %d", cfg.InpaintSteps)
	}
	if cfg.InpaintGuidance != 4.0 {
		t.Fatalf("InpaintGuidance should fall back to default, got %v", cfg.InpaintGuidance)
	}
}
