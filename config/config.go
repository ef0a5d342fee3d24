package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string
	CORSOrigin  string

	MongoURI          string
	MongoDBName       string
	MongoTransactions bool

	JWTSecret  string
	SessionTTL time.Duration

	UploadDir      string
	UploadStorage  string
	UploadMaxBytes int64

	NoticeBackend string
	CassandraHost string
	CassKeyspace  string

	RedisAddr       string
	RateLimitPerMin int
	RateLimitBurst  int

	PasswordBlacklist string

	LogFile  string
	LogLevel string
}

const (
	UploadDisk   = "disk"
	UploadMemory = "memory"

	NoticeBackendMongo     = "mongo"
	NoticeBackendCassandra = "cassandra"
)

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return nil, fmt.Errorf("loading %s: %w", f, err)
			}
		}
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8000"),
		Environment:       getEnv("APP_ENV", "development"),
		CORSOrigin:        getEnv("CORS_ORIGIN", "http://localhost:3000"),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:       getEnv("MONGO_DB_NAME", "workhub"),
		MongoTransactions: getBool("MONGO_TRANSACTIONS", false),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		SessionTTL:        getDuration("SESSION_TTL", 24*time.Hour),
		UploadDir:         getEnv("UPLOAD_DIR", "uploads"),
		UploadStorage:     strings.ToLower(getEnv("UPLOAD_STORAGE", UploadDisk)),
		UploadMaxBytes:    int64(getInt("UPLOAD_MAX_BYTES", 5*1024*1024)),
		NoticeBackend:     strings.ToLower(getEnv("NOTICE_BACKEND", NoticeBackendMongo)),
		CassandraHost:     getEnv("CASS_DB", "127.0.0.1"),
		CassKeyspace:      getEnv("CASS_KEYSPACE", "notifications"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RateLimitPerMin:   getInt("RATE_LIMIT_PER_MIN", 30),
		RateLimitBurst:    getInt("RATE_LIMIT_BURST", 10),
		PasswordBlacklist: os.Getenv("PASSWORD_BLACKLIST"),
		LogFile:           os.Getenv("LOG_FILE"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}
	if c.UploadStorage != UploadDisk && c.UploadStorage != UploadMemory {
		return fmt.Errorf("UPLOAD_STORAGE must be %q or %q, got %q", UploadDisk, UploadMemory, c.UploadStorage)
	}
	if c.NoticeBackend != NoticeBackendMongo && c.NoticeBackend != NoticeBackendCassandra {
		return fmt.Errorf("NOTICE_BACKEND must be %q or %q, got %q", NoticeBackendMongo, NoticeBackendCassandra, c.NoticeBackend)
	}
	if c.UploadMaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
