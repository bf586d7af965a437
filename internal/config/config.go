/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Audio backend selection. Fixed once at startup; nothing inspects the
// backend object at runtime to decide which call variant to use.
type AudioBackend string

const (
	AudioMPV  AudioBackend = "mpv"
	AudioNull AudioBackend = "null"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	DBBackend   DatabaseBackend
	DBDSN       string
	MediaRoot   string

	// Audio output
	AudioBackend  AudioBackend
	MPVBin        string
	MPVSocketDir  string
	DefaultVolume int
	PollInterval  time.Duration // auto-advance monitor tick

	// Event mirroring (optional; empty disables the mirror)
	NATSURL string

	MetricsBind   string
	LogBufferSize int
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:   getEnv("SKALD_ENV", "development"),
		HTTPBind:      getEnv("SKALD_HTTP_BIND", "0.0.0.0"),
		HTTPPort:      getEnvInt("SKALD_HTTP_PORT", 8080),
		DBBackend:     DatabaseBackend(getEnv("SKALD_DB_BACKEND", string(DatabaseSQLite))),
		DBDSN:         getEnv("SKALD_DB_DSN", "skald.db"),
		MediaRoot:     getEnv("SKALD_MEDIA_ROOT", "./media"),
		AudioBackend:  AudioBackend(getEnv("SKALD_AUDIO_BACKEND", string(AudioMPV))),
		MPVBin:        getEnv("SKALD_MPV_BIN", "mpv"),
		MPVSocketDir:  getEnv("SKALD_MPV_SOCKET_DIR", os.TempDir()),
		DefaultVolume: getEnvInt("SKALD_VOLUME_DEFAULT", 50),
		PollInterval:  time.Duration(getEnvInt("SKALD_POLL_INTERVAL_MS", 100)) * time.Millisecond,
		NATSURL:       getEnv("SKALD_NATS_URL", ""),
		MetricsBind:   getEnv("SKALD_METRICS_BIND", ""),
		LogBufferSize: getEnvInt("SKALD_LOG_BUFFER_SIZE", 5000),
	}

	switch cfg.DBBackend {
	case DatabasePostgres, DatabaseMySQL, DatabaseSQLite:
	default:
		return nil, fmt.Errorf("unknown database backend: %s", cfg.DBBackend)
	}

	switch cfg.AudioBackend {
	case AudioMPV, AudioNull:
	default:
		return nil, fmt.Errorf("unknown audio backend: %s", cfg.AudioBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("SKALD_DB_DSN is required")
	}
	if cfg.DefaultVolume < 0 || cfg.DefaultVolume > 100 {
		return nil, fmt.Errorf("SKALD_VOLUME_DEFAULT must be within 0..100, got %d", cfg.DefaultVolume)
	}
	if cfg.PollInterval < 10*time.Millisecond {
		return nil, fmt.Errorf("SKALD_POLL_INTERVAL_MS must be at least 10")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}
