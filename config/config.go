package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is read once from the environment at startup.
type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	RedisAddr string
	RedisPwd  string

	RPID      string
	RPName    string
	RPOrigins []string

	JWTSecret    string
	ChallengeTTL time.Duration
	TokenTTL     time.Duration
	Port         string
}

// LoadEnv loads a local .env file when present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}
}

func Load() Config {
	get := func(k, def string) string {
		if v := os.Getenv(k); v != "" {
			return v
		}
		return def
	}
	seconds := func(k string, def int) time.Duration {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return time.Duration(def) * time.Second
	}

	var origins []string
	for _, o := range strings.Split(get("RP_ORIGINS", "http://localhost:8080"), ",") {
		if s := strings.TrimSpace(o); s != "" {
			origins = append(origins, s)
		}
	}

	return Config{
		DBHost:     get("DB_HOST", "127.0.0.1"),
		DBUser:     get("DB_USER", "postgres"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     get("DB_NAME", "fido2"),
		DBPort:     get("DB_PORT", "5432"),

		RedisAddr: get("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPwd:  os.Getenv("REDIS_PASSWORD"),

		RPID:      get("RP_ID", "localhost"),
		RPName:    get("RP_NAME", "FIDO2 Demo RP"),
		RPOrigins: origins,

		JWTSecret:    os.Getenv("JWT_SECRET"),
		ChallengeTTL: seconds("CHALLENGE_TTL_SECONDS", 300),
		TokenTTL:     seconds("TOKEN_TTL_SECONDS", 3600),
		Port:         get("PORT", "3001"),
	}
}
