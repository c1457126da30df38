// Package config handles platform configuration
package config

import (
	"os"
	"strconv"
)

type Config struct {
	HTTPAddr            string
	ScorerURL           string // empty disables remote scoring
	DeviceModel         string
	ViewingDistanceCm   float64
	AnalysisRate        float64 // Hz
	AnalysisWindowSec   float64 // seconds of samples per live analysis
	MaxSessionSamples   int
	SessionTTLSec       float64 // idle sessions older than this are pruned
	HeatmapWidth        int
	HeatmapHeight       int
	HeatmapHashDistance int
	AdminKeyHash        string // bcrypt hash; empty disables auth on mutating endpoints
}

func Load() *Config {
	return &Config{
		HTTPAddr:            getEnv("HTTP_ADDR", ":8000"),
		ScorerURL:           getEnv("SCORER_URL", ""),
		DeviceModel:         getEnv("DEVICE_MODEL", "iphone-14-pro"),
		ViewingDistanceCm:   getEnvFloat("VIEWING_DISTANCE_CM", 30.0),
		AnalysisRate:        getEnvFloat("ANALYSIS_RATE", 1.0),
		AnalysisWindowSec:   getEnvFloat("ANALYSIS_WINDOW_SEC", 30.0),
		MaxSessionSamples:   getEnvInt("MAX_SESSION_SAMPLES", 20000),
		SessionTTLSec:       getEnvFloat("SESSION_TTL_SEC", 600),
		HeatmapWidth:        getEnvInt("HEATMAP_WIDTH", 256),
		HeatmapHeight:       getEnvInt("HEATMAP_HEIGHT", 256),
		HeatmapHashDistance: getEnvInt("HEATMAP_HASH_DISTANCE", 8),
		AdminKeyHash:        getEnv("ADMIN_KEY_HASH", ""),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
