package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr           string
	CORSOrigin     string
	ChartTTL       time.Duration
	SortLocale     string
	MaxUploadBytes int64
	// Redis - empty by default, charts stay in process memory if not configured
	RedisURL string
	// AI endpoint - reconciliation disabled if no API key is configured
	AIBaseURL        string
	AIModel          string
	AIAPIKey         string
	AITimeout        time.Duration
	AIMaxAttempts    int
	AIRetryBaseDelay time.Duration
	// Export archive - share links disabled if no endpoint is configured
	ArchiveEndpoint  string
	ArchiveAccessKey string
	ArchiveSecretKey string
	ArchiveBucket    string
	ArchiveUseSSL    bool
	ArchiveShareTTL  time.Duration
}

func Load() Config {
	return Config{
		Addr:           getenv("API_ADDR", ":8787"),
		CORSOrigin:     getenv("SEATPLAN_CORS_ORIGIN", "*"),
		ChartTTL:       time.Duration(getenvInt("SEATPLAN_CHART_TTL_SECONDS", 21600)) * time.Second,
		SortLocale:     getenv("SEATPLAN_SORT_LOCALE", "en"),
		MaxUploadBytes: int64(getenvInt("SEATPLAN_MAX_UPLOAD_BYTES", 5<<20)),
		RedisURL:       getenv("REDIS_URL", ""),

		AIBaseURL:        getenv("AI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		AIModel:          getenv("AI_MODEL", "gemini-2.5-flash"),
		AIAPIKey:         getenv("AI_API_KEY", ""),
		AITimeout:        time.Duration(getenvInt("AI_TIMEOUT_SECONDS", 20)) * time.Second,
		AIMaxAttempts:    getenvInt("AI_MAX_ATTEMPTS", 4),
		AIRetryBaseDelay: time.Duration(getenvInt("AI_RETRY_BASE_MS", 1000)) * time.Millisecond,

		ArchiveEndpoint:  getenv("EXPORT_S3_ENDPOINT", ""),
		ArchiveAccessKey: getenv("EXPORT_S3_ACCESS_KEY", ""),
		ArchiveSecretKey: getenv("EXPORT_S3_SECRET_KEY", ""),
		ArchiveBucket:    getenv("EXPORT_S3_BUCKET", "seatplan-exports"),
		ArchiveUseSSL:    getenvBool("EXPORT_S3_USE_SSL", true),
		ArchiveShareTTL:  time.Duration(getenvInt("EXPORT_SHARE_TTL_SECONDS", 86400)) * time.Second,
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
