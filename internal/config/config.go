// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for index and server settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
)

// =============================================================================
// UNIVERSE CONFIGURATION
// =============================================================================

// UniverseConfig describes the rectangle the grid partitions and the
// initial cell size. A CellSize <= 0 lets the index compute one from
// item density.
type UniverseConfig struct {
	OriginX  float64 // Universe origin X
	OriginY  float64 // Universe origin Y
	Width    float64 // Universe width
	Height   float64 // Universe height
	CellSize float64 // Cell edge length; <= 0 means auto
}

// DefaultUniverse returns the default universe configuration.
// 2000x2000 matches a large canvas with room for several A4 papers.
func DefaultUniverse() UniverseConfig {
	return UniverseConfig{
		OriginX:  0,
		OriginY:  0,
		Width:    2000,
		Height:   2000,
		CellSize: 100,
	}
}

// UniverseFromEnv returns universe configuration with environment
// variable overrides. Environment variables take precedence.
func UniverseFromEnv() UniverseConfig {
	cfg := DefaultUniverse()

	if w := getEnvFloat("INDEX_WIDTH", 0); w > 0 {
		cfg.Width = w
	}
	if h := getEnvFloat("INDEX_HEIGHT", 0); h > 0 {
		cfg.Height = h
	}
	if cs := getEnvFloat("INDEX_CELL_SIZE", 0); cs > 0 {
		cfg.CellSize = cs
	}
	cfg.OriginX = getEnvFloat("INDEX_ORIGIN_X", cfg.OriginX)
	cfg.OriginY = getEnvFloat("INDEX_ORIGIN_Y", cfg.OriginY)

	return cfg
}

// =============================================================================
// RESOURCE LIMITS
// =============================================================================

// ResourceLimits controls DoS protection and performance limits for the
// HTTP surface.
type ResourceLimits struct {
	MaxItems         int     // Hard cap on indexed items
	MaxBatchSize     int     // Items per batch add request
	MaxQueryResults  int     // Result cap per query response
	MaxQueryDistance float64 // Cap on nearest-query search distance
}

// DefaultLimits returns the default resource limits.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		MaxItems:         100_000,
		MaxBatchSize:     500,
		MaxQueryResults:  1_000,
		MaxQueryDistance: 10_000,
	}
}

// LimitsFromEnv returns resource limits with environment overrides.
func LimitsFromEnv() ResourceLimits {
	cfg := DefaultLimits()

	if n := getEnvInt("MAX_ITEMS", 0); n > 0 {
		cfg.MaxItems = n
	}
	if n := getEnvInt("MAX_BATCH_SIZE", 0); n > 0 {
		cfg.MaxBatchSize = n
	}
	if n := getEnvInt("MAX_QUERY_RESULTS", 0); n > 0 {
		cfg.MaxQueryResults = n
	}
	if d := getEnvFloat("MAX_QUERY_DISTANCE", 0); d > 0 {
		cfg.MaxQueryDistance = d
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port: 3000,
	}
}

// ServerFromEnv returns server configuration with environment overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}

	return cfg
}

// =============================================================================
// JOURNAL CONFIGURATION
// =============================================================================

// JournalConfig holds mutation journal settings.
type JournalConfig struct {
	Path    string // JSONL output path; empty disables file output
	Enabled bool
}

// JournalFromEnv returns journal configuration with environment overrides.
func JournalFromEnv() JournalConfig {
	cfg := JournalConfig{
		Path:    "mutations.jsonl",
		Enabled: true,
	}

	if p := os.Getenv("JOURNAL_PATH"); p != "" {
		cfg.Path = p
	}
	if os.Getenv("JOURNAL_ENABLED") == "false" {
		cfg.Enabled = false
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Universe UniverseConfig
	Limits   ResourceLimits
	Server   ServerConfig
	Journal  JournalConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Universe: UniverseFromEnv(),
		Limits:   LimitsFromEnv(),
		Server:   ServerFromEnv(),
		Journal:  JournalFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
