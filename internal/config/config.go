package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

const (
	defaultDBPath     = "roomlite.db"
	defaultLatencyMin = 100 * time.Millisecond
	defaultLatencyMax = 500 * time.Millisecond
)

type Config struct {
	DatabaseURL string        // Postgres DSN, пусто — используется SQLite
	DBPath      string        // путь к файлу SQLite
	LatencyMin  time.Duration // нижняя граница имитируемой задержки
	LatencyMax  time.Duration // верхняя граница имитируемой задержки
}

// Load читает настройки из переменных окружения
func Load() Config {
	return Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBPath:      envOr("DB_PATH", defaultDBPath),
		LatencyMin:  envDuration("LATENCY_MIN_MS", defaultLatencyMin),
		LatencyMax:  envDuration("LATENCY_MAX_MS", defaultLatencyMax),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms < 0 {
		log.Printf("invalid %s=%s, fallback to default (%s)", key, v, def)
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
