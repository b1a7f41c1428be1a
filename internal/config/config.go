package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"

	LockRedis = "redis"
	LockLocal = "local"

	DefaultLockTTL = 5 * time.Second
)

type Config struct {
	Env                string        // dev, prod
	HTTPPort           string        // default 3000
	StoreDriver        string        // postgres, mongo, memory
	PostgresDSN        string        // required for postgres
	MongoURI           string        // required for mongo
	MongoDatabase      string        // default hospital_booking
	LockDriver         string        // redis, local
	RedisAddr          string        // host:port
	RedisUsername      string        // redis username
	RedisPassword      string        // redis password
	RedisDB            int           // logical database, from the REDIS_URL path or REDIS_DB
	RedisTLS           bool          // rediss:// scheme
	RedisPoolSize      int           // connections per process
	LockTTL            time.Duration // how long a Redis slot lock lives
	ShutdownTimeout    time.Duration // graceful shutdown timeout
	RequestTimeout     time.Duration // per request deadline
	RateLimitPerSecond int           // per client IP, 0 disables
	CORSAllowedOrigins []string
	AuthJWTSecret      string // enables the admin gate on /appointments/all
	LogLevel           string
}

func (c Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:                getEnv("APP_ENV", "dev"),
		HTTPPort:           getEnv("HTTP_PORT", getEnv("PORT", "3000")),
		StoreDriver:        strings.ToLower(getEnv("STORE_DRIVER", StorePostgres)),
		PostgresDSN:        os.Getenv("POSTGRES_DSN"),
		MongoURI:           os.Getenv("MONGODB_URI"),
		MongoDatabase:      getEnv("MONGODB_DATABASE", "hospital_booking"),
		LockDriver:         strings.ToLower(getEnv("LOCK_DRIVER", LockRedis)),
		LockTTL:            getDuration("LOCK_TTL", DefaultLockTTL),
		RedisPoolSize:      getInt("REDIS_POOL_SIZE", 10),
		ShutdownTimeout:    getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 15*time.Second),
		RateLimitPerSecond: getInt("RATE_LIMIT_PER_SECOND", 50),
		CORSAllowedOrigins: getList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		AuthJWTSecret:      os.Getenv("AUTH_JWT_SECRET"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}

	switch cfg.StoreDriver {
	case StorePostgres:
		if cfg.PostgresDSN == "" {
			return Config{}, errors.New("POSTGRES_DSN is required")
		}
	case StoreMongo:
		if cfg.MongoURI == "" {
			return Config{}, errors.New("MONGODB_URI is required")
		}
	case StoreMemory:
	default:
		return Config{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	switch cfg.LockDriver {
	case LockRedis, LockLocal:
	default:
		return Config{}, fmt.Errorf("unknown LOCK_DRIVER %q", cfg.LockDriver)
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL != "" {
		if err := parseRedisURL(redisURL, &cfg); err != nil {
			return Config{}, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
	} else {
		cfg.RedisAddr = getEnv("REDIS_ADDR", "127.0.0.1:6379")
		cfg.RedisUsername = getEnv("REDIS_USERNAME", "")
		cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
		cfg.RedisDB = getInt("REDIS_DB", 0)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		fmt.Fprintf(os.Stderr, "invalid duration for %s=%q, using default %s\n", key, v, def)
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		fmt.Fprintf(os.Stderr, "invalid integer for %s=%q, using default %d\n", key, v, def)
	}
	return def
}

func getList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// parseRedisURL fills the Redis fields from redis[s]://user:password@host:port/db.
func parseRedisURL(raw string, cfg *Config) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}

	switch u.Scheme {
	case "redis":
	case "rediss":
		cfg.RedisTLS = true
	default:
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}

	cfg.RedisAddr = u.Host
	if u.Port() == "" {
		cfg.RedisAddr = u.Host + ":6379"
	}
	if u.User != nil {
		cfg.RedisUsername = u.User.Username()
		cfg.RedisPassword, _ = u.User.Password()
	}

	if db := strings.Trim(u.Path, "/"); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid database %q", db)
		}
		cfg.RedisDB = n
	}
	return nil
}
