package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// APIConfig holds settings for talking to the document store.
type APIConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// StubConfig holds settings for the local stub backend.
type StubConfig struct {
	ListenAddr string
	SigningKey string
}

// AppConfig is the centralized configuration struct for the client.
// It is populated from environment variables; a .env file is auto-loaded
// by importing _ "github.com/joho/godotenv/autoload" in main.
type AppConfig struct {
	API         APIConfig
	SessionPath string
	Stub        StubConfig
}

// Load reads configuration from environment variables. Real environment
// variables take precedence over .env contents.
func Load() *AppConfig {
	return &AppConfig{
		API: APIConfig{
			BaseURL:        getEnv("SECURESHARE_API_URL", "http://localhost:8080"),
			RequestTimeout: time.Duration(getEnvInt("SECURESHARE_TIMEOUT_SEC", 15)) * time.Second,
		},
		SessionPath: getEnv("SECURESHARE_SESSION_PATH", defaultSessionPath()),
		Stub: StubConfig{
			ListenAddr: getEnv("SECURESHARE_STUB_ADDR", ":8080"),
			SigningKey: getEnv("SECURESHARE_STUB_SIGNING_KEY", "stub-dev-key"),
		},
	}
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "secureshare", "session.json")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
