package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	BackendMongo  = "mongo"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Cfg struct {
	Port        string
	Environment string
	LogLevel    string

	Backend         string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	RedisURL        string
	DatabasePath    string
	DBMaxOpenConns  int
	DBMaxIdleConns  int

	URLPrefix    string
	DefaultTTL   time.Duration
	MaxPasteSize int64
	TemplateDir  string
	StaticDir    string

	ContextTimeout  time.Duration
	CleanerInterval time.Duration
}

func Load() (*Cfg, error) {
	c := &Cfg{}
	c.Port = getEnv("PORT", "8080")
	c.Environment = getEnv("ENVIRONMENT", "development")
	c.LogLevel = getEnv("LOG_LEVEL", "info")

	c.Backend = getEnv("BACKEND", BackendMemory)
	c.MongoURI = getEnv("MONGO_URI", "mongodb://localhost:27017")
	c.MongoDatabase = getEnv("MONGO_DATABASE", "bindrop")
	c.MongoCollection = getEnv("MONGO_COLLECTION", "pastes")
	c.RedisURL = getEnv("REDIS_URL", "")
	c.DatabasePath = getEnv("DATABASE_PATH", "bindrop.db")

	var err error
	c.DBMaxOpenConns, err = getInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, err
	}
	c.DBMaxIdleConns, err = getInt("DB_MAX_IDLE_CONNS", 5)
	if err != nil {
		return nil, err
	}

	c.URLPrefix = getEnv("URL_PREFIX", "http://localhost:8080/")
	c.DefaultTTL, err = getDuration("DEFAULT_TTL", 168*time.Hour)
	if err != nil {
		return nil, err
	}
	c.MaxPasteSize, err = getInt64("MAX_PASTE_SIZE", 15*1024*1024)
	if err != nil {
		return nil, err
	}
	c.TemplateDir = getEnv("TEMPLATE_DIR", "")
	c.StaticDir = getEnv("STATIC_DIR", "")

	c.ContextTimeout, err = getDuration("CONTEXT_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	c.CleanerInterval, err = getDuration("CLEANER_INTERVAL", 10*time.Minute)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func Validate(c *Cfg) error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return errors.New("PORT must be a number")
	}
	switch c.Backend {
	case BackendMongo, BackendRedis, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("unknown BACKEND %q", c.Backend)
	}
	if c.Backend == BackendMongo && c.MongoURI == "" {
		return errors.New("MONGO_URI is required for the mongo backend")
	}
	if c.Backend == BackendRedis {
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis backend")
		}
		if !strings.HasPrefix(c.RedisURL, "redis://") && !strings.HasPrefix(c.RedisURL, "rediss://") {
			return errors.New("REDIS_URL must start with redis:// or rediss://")
		}
	}
	if c.Backend == BackendSQLite && c.DatabasePath == "" {
		return errors.New("DATABASE_PATH is required for the sqlite backend")
	}
	if c.URLPrefix == "" {
		return errors.New("URL_PREFIX is required")
	}
	if !strings.HasSuffix(c.URLPrefix, "/") {
		return errors.New("URL_PREFIX must end with a slash")
	}
	if c.MaxPasteSize <= 0 {
		return errors.New("MAX_PASTE_SIZE must be positive")
	}
	if c.DefaultTTL <= 0 {
		return errors.New("DEFAULT_TTL must be positive")
	}
	if c.CleanerInterval < time.Minute {
		return errors.New("CLEANER_INTERVAL must be at least 1 minute")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	s := getEnv(key, "")
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return v, nil
}

func getInt64(key string, fallback int64) (int64, error) {
	s := getEnv(key, "")
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := getEnv(key, "")
	if s == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return v, nil
}
