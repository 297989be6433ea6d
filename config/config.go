package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Database configuration (quotation source)
	DatabaseHost     string
	DatabasePort     string
	DatabaseName     string
	DatabaseUser     string
	DatabasePassword string

	// Redis configuration (preheat K/V store)
	RedisHost     string
	RedisPassword string
	RedisPort     string

	// Kafka configuration (downstream event bus)
	KafkaBrokers []string

	// API server port
	APIPort int

	// Replay configuration
	Replay ReplayConfig
}

// ReplayConfig holds replay engine defaults and tunables
type ReplayConfig struct {
	// Defaults applied when a start request omits the field
	SpeedMultiplier int
	PreloadMinutes  int
	BufferMaxSize   int

	// Wind codes routed to the index topic instead of the stock topic
	IndexCodes []string
}

// Default index universe: the major SSE/SZSE/CSI index wind codes.
const defaultIndexCodes = "000001.SH,000300.SH,000905.SH,000016.SH,399001.SZ,399006.SZ"

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		// Database configuration
		DatabaseHost:     getEnvOrDefault("DB_HOST", "localhost"),
		DatabasePort:     getEnvOrDefault("DB_PORT", "5432"),
		DatabaseName:     getEnvOrDefault("DB_NAME", "quotation_history"),
		DatabaseUser:     getEnvOrDefault("DB_USER", "quant"),
		DatabasePassword: getEnvOrDefault("DB_PASSWORD", "quant123"),

		// Redis configuration
		RedisHost:     getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),

		// Kafka configuration
		KafkaBrokers: splitList(getEnvOrDefault("KAFKA_BROKERS", "localhost:9092")),

		APIPort: getEnvInt("API_PORT", 8080),

		// Replay configuration
		Replay: ReplayConfig{
			SpeedMultiplier: getEnvInt("REPLAY_SPEED", 1),
			PreloadMinutes:  getEnvInt("REPLAY_PRELOAD_MINUTES", 5),
			BufferMaxSize:   getEnvInt("REPLAY_BUFFER_MAX", 5000),
			IndexCodes:      splitList(getEnvOrDefault("INDEX_CODES", defaultIndexCodes)),
		},
	}
}

// splitList parses a comma-separated list, trimming whitespace and
// dropping empty entries
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnvInt gets environment variable as int or returns default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var intValue int
	if _, err := fmt.Sscanf(value, "%d", &intValue); err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
