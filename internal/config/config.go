package config

import (
	"os"
	"strconv"
)

// Config holds the relay server settings, all sourced from environment
// variables (a .env file is loaded by cmd/relay before this runs).
type Config struct {
	Addr         string
	CORSOrigin   string
	StoreBackend string // memory | sqlite | valkey
	SQLitePath   string
	ValkeyAddr   string
	JWTSecret    string
	RosterLimit  int
}

func Load() Config {
	return Config{
		Addr:         getenv("SCENESYNC_ADDR", ":3000"),
		CORSOrigin:   getenv("SCENESYNC_CORS_ORIGIN", "http://127.0.0.1:5173"),
		StoreBackend: getenv("SCENESYNC_STORE", "memory"),
		SQLitePath:   getenv("SCENESYNC_SQLITE_PATH", "./data/scenesync.db"),
		ValkeyAddr:   getenv("SCENESYNC_VALKEY_ADDR", "127.0.0.1:6379"),
		JWTSecret:    getenv("SCENESYNC_JWT_SECRET", ""),
		RosterLimit:  getenvInt("SCENESYNC_ROSTER_LIMIT", 3),
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
