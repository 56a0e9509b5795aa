package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Runtime struct {
	HTTPAddr        string
	Workers         int
	ObsBuffer       int
	CatalogCacheMax int
	Profile         string
	Store           string
	DB              string
	LogLevel        string
	LogFormat       string
	OTLPEndpoint    string
}

// Load reads the runtime configuration from the environment. A .env file in
// the working directory is applied first when present; variables already set
// in the environment win.
func Load() Runtime {
	_ = godotenv.Load()

	return Runtime{
		HTTPAddr:        getenv("AUDIT_HTTP_ADDR", ":8080"),
		Workers:         getenvInt("AUDIT_WORKERS", 4, 1),
		ObsBuffer:       getenvInt("AUDIT_OBS_BUFFER", 4096, 1),
		CatalogCacheMax: getenvInt("AUDIT_CATALOG_CACHE_MAX", 64, 1),
		Profile:         getenv("AUDIT_PROFILE", ""),
		Store:           getenv("AUDIT_STORE", StoreDir),
		DB:              getenv("AUDIT_DB", "audit.db"),
		LogLevel:        getenv("AUDIT_LOG_LEVEL", "info"),
		LogFormat:       getenv("AUDIT_LOG_FORMAT", "json"),
		OTLPEndpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback, min int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min {
		return fallback
	}
	return v
}
