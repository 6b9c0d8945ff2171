// Package config centralizes the plain key-value environment configuration
// shared by every subsystem: per-game enable flags and cost knobs.
package config

import (
	"os"
	"strconv"
	"strings"

	_ "github.com/joho/godotenv/autoload"
)

// Config holds the optional knobs spec.md §6 lists: enable_<game> booleans
// and per-game cost knobs. Everything has a sane default so the process
// boots with zero configuration.
type Config struct {
	EnableBlackjack  bool
	EnableMines      bool
	EnableOneStroke  bool
	EnableCCK        bool
	EnableGuessChart bool

	MinesDefaultCount int
	NicknameCost      int
	NicknameMaxLen    int
	SuperuserIDs      []string

	DBHost     string
	DBPort     string
	DBDatabase string
	DBUsername string
	DBPassword string
	DBSchema   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Load reads configuration from the environment, applying defaults for
// anything unset. It never fails: missing or malformed values fall back to
// defaults, matching the teacher's getEnv/getEnvAsInt helpers.
func Load() *Config {
	return &Config{
		EnableBlackjack:  getEnvAsBool("ENABLE_BLACKJACK", true),
		EnableMines:      getEnvAsBool("ENABLE_MINES", true),
		EnableOneStroke:  getEnvAsBool("ENABLE_ONESTROKE", true),
		EnableCCK:        getEnvAsBool("ENABLE_CCK", false),
		EnableGuessChart: getEnvAsBool("ENABLE_GUESS_CHART", false),

		MinesDefaultCount: getEnvAsInt("MINES_DEFAULT_COUNT", 5),
		NicknameCost:      getEnvAsInt("NICKNAME_COST", 30),
		NicknameMaxLen:    getEnvAsInt("NICKNAME_MAX_LEN", 20),
		SuperuserIDs:      getEnvAsList("SUPERUSER_IDS"),

		DBHost:     getEnv("BLUEPRINT_DB_HOST", "localhost"),
		DBPort:     getEnv("BLUEPRINT_DB_PORT", "5432"),
		DBDatabase: getEnv("BLUEPRINT_DB_DATABASE", "parlor"),
		DBUsername: getEnv("BLUEPRINT_DB_USERNAME", "postgres"),
		DBPassword: getEnv("BLUEPRINT_DB_PASSWORD", "postgres"),
		DBSchema:   getEnv("BLUEPRINT_DB_SCHEMA", "public"),

		RedisAddr:     getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

// getEnvAsList splits a comma-separated env var, dropping empty entries;
// an unset var yields nil (no superusers configured).
func getEnvAsList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
