// Package config loads the engine's runtime configuration from
// environment variables, following this codebase's own bare os.Getenv +
// defaulting idiom (cmd/server/main.go) rather than a flags/config
// library — none appears anywhere in the retrieved corpus.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds every environment-driven setting the engine needs: a
// single credential for the LLM service, default timeouts, max upload
// size, and the concurrency bound. The balance tolerance is not here; it
// is the reconcile.Epsilon constant.
type Config struct {
	Port                  string
	UseMemoryStore         bool
	GoogleCloudProject     string
	ArtifactDir            string
	ArtifactBucket         string
	LlmAPIKey              string
	LlmModel               string
	LlmBaseURL             string
	MaxUploadBytes         int64
	WorkerPoolSize         int
	PageTimeout            time.Duration
	PipelineTimeout        time.Duration
}

const defaultMaxUploadBytes = 25 * 1024 * 1024 // 25 MiB

// Load reads Config from the environment, applying a default for every
// unset or unparseable variable.
func Load() Config {
	return Config{
		Port:               getEnvDefault("PORT", "8111"),
		UseMemoryStore:     os.Getenv("USE_MEMORY_STORE") == "true" || os.Getenv("ENV") == "local",
		GoogleCloudProject: os.Getenv("GOOGLE_CLOUD_PROJECT"),
		ArtifactDir:        getEnvDefault("ARTIFACT_DIR", "./artifacts"),
		ArtifactBucket:     os.Getenv("ARTIFACT_BUCKET"),
		LlmAPIKey:          os.Getenv("LLM_API_KEY"),
		LlmModel:           getEnvDefault("LLM_MODEL", "gemini-1.5-flash"),
		LlmBaseURL:         os.Getenv("LLM_PROVIDER_BASE_URL"),
		MaxUploadBytes:     getEnvInt64Default("MAX_UPLOAD_BYTES", defaultMaxUploadBytes),
		WorkerPoolSize:     int(getEnvInt64Default("WORKER_POOL_SIZE", 4)),
		PageTimeout:        getEnvDurationSeconds("PAGE_TIMEOUT_SECONDS", 60),
		PipelineTimeout:    getEnvDurationSeconds("PIPELINE_TIMEOUT_SECONDS", 300),
	}
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64Default(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDurationSeconds(key string, fallbackSeconds int64) time.Duration {
	return time.Duration(getEnvInt64Default(key, fallbackSeconds)) * time.Second
}
