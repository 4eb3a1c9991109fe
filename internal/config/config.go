// internal/config/config.go
//
// Process configuration read from the environment.
// main calls godotenv.Load() first, so a local .env file feeds the same keys.
//
// Keys:
//   PORT           HTTP listen port (default 5175)
//   LOG_LEVEL      zerolog level name (default info)
//   DB_PATH        SQLite file (default ./data/app.db)
//   TURN_TIMEOUT   per-turn limit, Go duration syntax (default 60s)
//   ROOM_CAPACITY  players per room (default 10)
//   CLIENT_ORIGIN  allowed CORS / websocket origin (default http://localhost:5173)
//   JWT_SECRET     HMAC key for account tokens (default dev_secret_change_me)
//   COOKIE_NAME    account token cookie (default codebreaker_token)
//   DAILY_SALT     daily code salt (default local_dev_salt)
//   NODE_ENV       "production" turns on Secure cookies

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	Port         string
	LogLevel     string
	DBPath       string
	TurnTimeout  time.Duration
	RoomCapacity int
	ClientOrigin string
	JWTSecret    string
	CookieName   string
	DailySalt    string
	Production   bool
}

// Load reads the environment. Malformed numbers and durations fall back to
// their defaults with a warning.
func Load() Config {
	return Config{
		Port:         getEnv("PORT", "5175"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		DBPath:       getEnv("DB_PATH", "./data/app.db"),
		TurnTimeout:  getDuration("TURN_TIMEOUT", 60*time.Second),
		RoomCapacity: getInt("ROOM_CAPACITY", 10),
		ClientOrigin: getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		JWTSecret:    getEnv("JWT_SECRET", "dev_secret_change_me"),
		CookieName:   getEnv("COOKIE_NAME", "codebreaker_token"),
		DailySalt:    getEnv("DAILY_SALT", "local_dev_salt"),
		Production:   os.Getenv("NODE_ENV") == "production",
	}
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Warn().Str("key", k).Str("value", v).Int("default", def).Msg("invalid integer, using default")
		return def
	}
	return n
}

func getDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Warn().Str("key", k).Str("value", v).Dur("default", def).Msg("invalid duration, using default")
		return def
	}
	return d
}
