package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries the runtime settings of the client. Everything is
// env-driven with development defaults so a bare `enlace` run works against
// a backend on localhost.
type Config struct {
	// APIBaseURL is the backend REST base path, including /api.
	APIBaseURL string

	// StorageRoot is where the session file lives.
	StorageRoot string

	// RequestTimeout bounds every backend call. A hung request surfaces as
	// a timeout error instead of an in-flight flag that never clears.
	RequestTimeout time.Duration

	// LogLevel is one of debug|info|warn|error.
	LogLevel string

	// Application is the free-text label attached to submitted links.
	Application string

	// SaveAnalysisResult enables the legacy flow that persists the analysis
	// through POST /analisis after /phishing/analyze. The current backend
	// persists as a side effect of analyze, so this defaults to off.
	SaveAnalysisResult bool
}

// Load reads .env (when present) and the environment.
func Load() *Config {
	_ = godotenv.Load() // no .env is fine

	return &Config{
		APIBaseURL:         getEnv("ENLACE_API_URL", "http://localhost:8080/api"),
		StorageRoot:        getEnv("ENLACE_STORAGE_ROOT", defaultStorageRoot()),
		RequestTimeout:     time.Duration(getEnvInt("ENLACE_TIMEOUT_SECONDS", 30)) * time.Second,
		LogLevel:           getEnv("ENLACE_LOG_LEVEL", "info"),
		Application:        getEnv("ENLACE_APPLICATION", "web"),
		SaveAnalysisResult: getEnvBool("ENLACE_SAVE_ANALYSIS", false),
	}
}

func defaultStorageRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".enlace"
	}
	return home + "/.config/enlace"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
