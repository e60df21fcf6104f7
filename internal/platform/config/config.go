package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort string
	JWTKey  []byte
	JWTExp  time.Duration

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	QueuePrefix        string
	EnqueueMarkerTTL   time.Duration
	WorkerPoolSizes    map[string]int // language slug -> pool size
	InfraRetryMax      int
	InfraRetryBackoff  time.Duration
	SandboxBaseURL     string
	SandboxHTTPTimeout time.Duration

	MaxCodeSizeBytes     int
	DefaultTimeLimitMs   int
	DefaultMemoryLimitKb int

	LeaderboardCacheTTL time.Duration
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		APIPort:            getEnv("API_PORT", "8080"),
		JWTKey:             []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:             time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 72)) * time.Hour,
		DBHost:             getEnv("DB_HOST", "localhost"),
		DBPort:             getEnv("DB_PORT", "5432"),
		DBUser:             getEnv("DB_USER", "user"),
		DBPassword:         getEnv("DB_PASSWORD", "password"),
		DBName:             getEnv("DB_NAME", "codecampus_db"),
		DBSslMode:          getEnv("DB_SSLMODE", "disable"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvAsInt("REDIS_DB", 0),
		QueuePrefix:        getEnv("SUBMISSION_QUEUE_PREFIX", "submission_queue"),
		EnqueueMarkerTTL:   time.Duration(getEnvAsInt("ENQUEUE_MARKER_TTL_SECONDS", 3600)) * time.Second,
		InfraRetryMax:      getEnvAsInt("SANDBOX_INFRA_RETRY_MAX", 3),
		InfraRetryBackoff:  time.Duration(getEnvAsInt("SANDBOX_INFRA_RETRY_BACKOFF_MS", 500)) * time.Millisecond,
		SandboxBaseURL:     getEnv("SANDBOX_BASE_URL", "http://localhost:9090"),
		SandboxHTTPTimeout: time.Duration(getEnvAsInt("SANDBOX_HTTP_TIMEOUT_SECONDS", 120)) * time.Second,

		MaxCodeSizeBytes:     getEnvAsInt("MAX_CODE_SIZE_BYTES", 10000),
		DefaultTimeLimitMs:   getEnvAsInt("DEFAULT_TIME_LIMIT_MS", 5000),
		DefaultMemoryLimitKb: getEnvAsInt("DEFAULT_MEMORY_LIMIT_KB", 262144),

		LeaderboardCacheTTL: time.Duration(getEnvAsInt("LEADERBOARD_CACHE_TTL_SECONDS", 30)) * time.Second,
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode

	// WORKER_POOL_SIZES is a comma list like "python=4,cpp=2,java=2,nodejs=2".
	// Languages not listed get one worker each.
	AppConfig.WorkerPoolSizes = parsePoolSizes(getEnv("WORKER_POOL_SIZES", ""))
}

func parsePoolSizes(raw string) map[string]int {
	sizes := make(map[string]int)
	if raw == "" {
		return sizes
	}
	for _, part := range strings.Split(raw, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		n, err := strconv.Atoi(kv[1])
		if err != nil || n < 1 {
			log.Printf("WARN: Ignoring invalid worker pool size %q", part)
			continue
		}
		sizes[strings.ToLower(kv[0])] = n
	}
	return sizes
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
