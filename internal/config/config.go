package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr            string
	LogLevel            string
	LogFormat           string
	PersonasBaseURL     string
	CoreBaseURL         string
	FunctionPasswordURL string
	RequestTimeout      time.Duration
	MaxRetries          int
	RetryDelay          time.Duration
	BreakerEnabled      bool
	JWTSecret           string
	JWTIssuer           string
	JWTExpiresIn        time.Duration
	MockAuthEnabled     bool
	MockTeacherID       int64
	CORSOrigins         []string
	ScanRateLimit       int
	ScanRateWindow      time.Duration
	RedisAddr           string
	RedisPassword       string
	ProbeEnabled        bool
	ProbeInterval       time.Duration
	ProbeTimeout        time.Duration
}

// Load reads the environment, after merging a local .env file when one exists.
// Variables already set in the environment win over the file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr:            getenvAddr("HTTP_ADDR", "PORT", ":4000"),
		LogLevel:            getenv("LOG_LEVEL", "info"),
		LogFormat:           getenv("LOG_FORMAT", "json"),
		PersonasBaseURL:     strings.TrimRight(getenv("PERSONAS_BASE_URL", "http://localhost:3002"), "/"),
		CoreBaseURL:         strings.TrimRight(getenv("CORE_BASE_URL", "http://localhost:3001"), "/"),
		FunctionPasswordURL: strings.TrimRight(getenv("FUNCTION_PASSWORD_URL", "http://localhost:7072"), "/"),
		RequestTimeout:      getenvDuration("REQUEST_TIMEOUT", 8*time.Second),
		MaxRetries:          getenvInt("MAX_RETRIES", 2),
		RetryDelay:          getenvDuration("RETRY_DELAY", time.Second),
		BreakerEnabled:      getenvBool("BREAKER_ENABLED", true),
		JWTSecret:           getenv("JWT_SECRET", "aki_mock_secret"),
		JWTIssuer:           getenv("JWT_ISSUER", "aki-bff"),
		JWTExpiresIn:        getenvDuration("JWT_EXPIRES_IN", 24*time.Hour),
		MockAuthEnabled:     getenvBool("MOCK_AUTH_ENABLED", false),
		MockTeacherID:       int64(getenvInt("MOCK_TEACHER_ID", 1)),
		CORSOrigins:         getenvList("CORS_ORIGIN", []string{"*"}),
		ScanRateLimit:       getenvInt("SCAN_RATE_LIMIT", 60),
		ScanRateWindow:      getenvDuration("SCAN_RATE_WINDOW", time.Minute),
		RedisAddr:           getenv("REDIS_ADDR", ""),
		RedisPassword:       getenv("REDIS_PASSWORD", ""),
		ProbeEnabled:        getenvBool("UPSTREAM_PROBE_ENABLED", false),
		ProbeInterval:       getenvDuration("UPSTREAM_PROBE_INTERVAL", 30*time.Second),
		ProbeTimeout:        getenvDuration("UPSTREAM_PROBE_TIMEOUT", 3*time.Second),
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getenvAddr accepts either a listen address or a bare port number.
func getenvAddr(key, portKey, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if port := os.Getenv(portKey); port != "" {
		return ":" + strings.TrimPrefix(port, ":")
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	if val := os.Getenv(key + "_MS"); val != "" {
		if millis, err := strconv.Atoi(val); err == nil {
			return time.Duration(millis) * time.Millisecond
		}
	}
	return fallback
}
