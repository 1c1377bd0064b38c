package infra

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	SentryDSN   string

	// Storage
	StorageBackend string // "filesystem" or "s3"
	StoragePath    string
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string

	// External model services
	SegmentBaseURL    string
	InpaintBaseURL    string
	InpaintSteps      int
	InpaintGuidance   float64
	GeminiAPIKey      string
	GeminiBaseURL     string
	GeminiImageModel  string
	GeminiVisionModel string

	// Pipeline tuning
	MaxImageDimension int
	MaskExpandPixels  int
	MaskFeatherPixels int
	MaskBlurPixels    int
	ShadowOffset      int
	ShadowBlur        int
	ShadowOpacity     float64
	SaveStages        bool
	PresetsPath       string
	DefaultLocale     string

	// Worker maintenance
	StaleJobAfter  time.Duration
	StageRetention time.Duration

	// HTTP server
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	AllowedOrigins   []string
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. DATABASE_URL is validated by the entrypoints that
// need it; the one-shot render CLI runs without a database.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SentryDSN:   os.Getenv("SENTRY_DSN"),

		StorageBackend: getEnv("STORAGE_BACKEND", "filesystem"),
		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		S3Bucket:       os.Getenv("S3_BUCKET"),
		S3Region:       getEnv("S3_REGION", "auto"),
		S3Endpoint:     os.Getenv("S3_ENDPOINT"),
		S3AccessKey:    os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretKey:    os.Getenv("S3_SECRET_ACCESS_KEY"),

		SegmentBaseURL:  getEnv("SEGMENT_BASE_URL", "http://localhost:7000"),
		InpaintBaseURL:  getEnv("INPAINT_BASE_URL", "http://localhost:7860"),
		InpaintSteps:    getEnvInt("INPAINT_STEPS", 30),
		InpaintGuidance: getEnvFloat("INPAINT_GUIDANCE_SCALE", 4.0),

		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:     getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiImageModel:  getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		GeminiVisionModel: getEnv("GEMINI_VISION_MODEL", "gemini-2.5-flash"),

		MaxImageDimension: getEnvInt("MAX_IMAGE_DIMENSION", 2048),
		MaskExpandPixels:  getEnvInt("MASK_EXPAND_PIXELS", 10),
		MaskFeatherPixels: getEnvInt("MASK_FEATHER_PIXELS", 3),
		MaskBlurPixels:    getEnvInt("MASK_BLUR_PIXELS", 5),
		ShadowOffset:      getEnvInt("SHADOW_OFFSET_PIXELS", 20),
		ShadowBlur:        getEnvInt("SHADOW_BLUR_PIXELS", 15),
		ShadowOpacity:     getEnvFloat("SHADOW_OPACITY", 0.3),
		SaveStages:        getEnvBool("SAVE_STAGES", true),
		PresetsPath:       getEnv("STYLE_PRESETS_PATH", "./config/style_presets.yaml"),
		DefaultLocale:     getEnv("DEFAULT_LOCALE", "en"),

		StaleJobAfter:  time.Minute * time.Duration(getEnvInt("STALE_JOB_AFTER_MINUTES", 30)),
		StageRetention: time.Hour * time.Duration(getEnvInt("STAGE_RETENTION_HOURS", 72)),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		AllowedOrigins:   getEnvList("ALLOWED_ORIGINS", "http://localhost:3000"),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
