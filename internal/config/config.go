package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
)

const (
	defaultImageWidth  = 128
	defaultImageHeight = 128
	defaultModelDir    = "./models"
	defaultHTTPAddr    = ":8080"
	defaultLogLevel    = "info"
)

// Config enumerates every knob the service reads, replacing scattered
// environment lookups with one explicit structure handed to constructors.
type Config struct {
	ImageWidth     int
	ImageHeight    int
	ClassesMapPath string
	ModelDir       string

	HTTPAddr    string
	RedisAddr   string
	DatabaseDSN string
	JWTSecret   string
	JWTAudience string
	LogLevel    string
}

// FromEnv builds a Config from the process environment. Unset or malformed
// integer dimensions fall back to the 128x128 defaults rather than failing.
func FromEnv() Config {
	return Config{
		ImageWidth:     intEnv("IMAGE_WIDTH", defaultImageWidth),
		ImageHeight:    intEnv("IMAGE_HEIGHT", defaultImageHeight),
		ClassesMapPath: os.Getenv("CLASSES_MAP"),
		ModelDir:       stringEnv("MODEL_DIR", defaultModelDir),
		HTTPAddr:       stringEnv("HTTP_ADDR", defaultHTTPAddr),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		DatabaseDSN:    os.Getenv("DATABASE_DSN"),
		JWTSecret:      stringEnv("JWT_SECRET", "dev-secret"),
		JWTAudience:    os.Getenv("JWT_AUDIENCE"),
		LogLevel:       stringEnv("LOG_LEVEL", defaultLogLevel),
	}
}

// LoadClassesMap reads the optional class-label mapping. A missing path,
// unreadable file, or invalid JSON yields a nil map and no error: the mapping
// is a recoverable extra, never a startup blocker. The caller decides whether
// to log the degradation.
func LoadClassesMap(path string) map[string]int {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var classes map[string]int
	if err := json.Unmarshal(data, &classes); err != nil {
		return nil
	}
	return classes
}

func intEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func stringEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
