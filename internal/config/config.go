package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	AuthSecret            string
	AccessTokenTTLMinutes int
	SuggestionTTLSeconds  int
	SuggestionWindow      int
	SuggestionThreshold   int
	SuggestionTopN        int
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	tokenTTL := getEnvInt("ACCESS_TOKEN_TTL_MINUTES", 480)

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
		SuggestionTTLSeconds:  getEnvInt("SUGGESTION_TTL_SECONDS", 300),
		SuggestionWindow:      getEnvInt("SUGGESTION_WINDOW_ORDERS", 300),
		SuggestionThreshold:   getEnvInt("SUGGESTION_PAIR_THRESHOLD", 10),
		SuggestionTopN:        getEnvInt("SUGGESTION_TOP_N", 3),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getEnvInt(key string, fallback int) int {
	parsed, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}
