package config

import (
	"log"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
)

var loadOnce sync.Once

func Config(key string) string {
	loadOnce.Do(func() {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("Warning: .env file not found, reading from system environment variables")
		}
	})

	return os.Getenv(key)
}

// ConfigInt reads an integer setting, falling back when unset or malformed.
func ConfigInt(key string, fallback int) int {
	raw := Config(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Warning: %s=%q is not an integer, using %d", key, raw, fallback)
		return fallback
	}
	return v
}

// ConfigBool reads a boolean setting, falling back when unset or malformed.
func ConfigBool(key string, fallback bool) bool {
	raw := Config(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("Warning: %s=%q is not a boolean, using %v", key, raw, fallback)
		return fallback
	}
	return v
}
