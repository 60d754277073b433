// Package config provides centralized default values for the conference service
package config

import (
	"bufio"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		file, err := os.Open(".env")
		if err != nil {
			return
		}
		defer file.Close()

		log.Println("Loading configuration overrides from .env file...")
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())

			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := strings.Trim(strings.TrimSpace(parts[1]), `"`)

			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
		log.Printf("Config ignored: %s=%q is not an integer (default: %d)", key, valStr, defaultValue)
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, redact(key, val), defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%t (default: %t)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultValue
	}
	return splitList(valStr)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// redact keeps secrets out of the override log line.
func redact(key, val string) string {
	upper := strings.ToUpper(key)
	if strings.Contains(upper, "SECRET") || strings.Contains(upper, "TOKEN") ||
		strings.Contains(upper, "KEY") || strings.Contains(upper, "PASSWORD") {
		return "****"
	}
	return val
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration
	CORSAllowedOrigins []string
	CookieSecure       bool

	// Database
	DBDriver           string
	DBPath             string
	TursoDatabaseURL   string
	TursoAuthToken     string
	DBMaxOpenConns     int
	DBMaxIdleConns     int
	SlowQueryThreshold time.Duration

	// Secrets
	JWTSecret         string
	AdminPasswordHash string

	// Email
	ResendAPIKey  string
	EmailFrom     string
	EmailFromName string
	TicketsURL    string
	TicketPrice   string

	// Popup sessions
	PopupSessionIdleTimeout     time.Duration
	PopupSessionCleanupInterval time.Duration
	PopupSessionCleanupVerbose  bool
	AnalyticsBufferSize         int

	// Logging
	LogLevel string
	LogJSON  bool
	LogDir   string
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)
	CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", []string{
		"http://localhost:3000",
		"http://127.0.0.1:3000",
		"http://[::1]:3000",
	})
	CookieSecure = getEnvBool("COOKIE_SECURE", false)

	// Database
	DBDriver = getEnvString("DB_DRIVER", "sqlite3")
	DBPath = getEnvString("DB_PATH", "./db/conference.db")
	TursoDatabaseURL = getEnvString("TURSO_DATABASE_URL", "")
	TursoAuthToken = getEnvString("TURSO_AUTH_TOKEN", "")
	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	SlowQueryThreshold = time.Duration(getEnvInt("SLOW_QUERY_THRESHOLD_MS", 100)) * time.Millisecond

	// Secrets
	JWTSecret = getEnvString("JWT_SECRET", "")
	AdminPasswordHash = getEnvString("ADMIN_PASSWORD_HASH", "")

	// Email
	ResendAPIKey = getEnvString("RESEND_API_KEY", "")
	EmailFrom = getEnvString("EMAIL_FROM", "tickets@zurichjs.com")
	EmailFromName = getEnvString("EMAIL_FROM_NAME", "ZurichJS Conf")
	TicketsURL = getEnvString("TICKETS_URL", "https://conf.zurichjs.com/tickets")
	TicketPrice = getEnvString("TICKET_PRICE", "")

	// Popup sessions
	PopupSessionIdleTimeout = getEnvDuration("POPUP_SESSION_IDLE_TIMEOUT", 2*time.Hour)
	PopupSessionCleanupInterval = getEnvDuration("POPUP_SESSION_CLEANUP_INTERVAL", 5*time.Minute)
	PopupSessionCleanupVerbose = getEnvBool("POPUP_SESSION_CLEANUP_VERBOSE", false)
	AnalyticsBufferSize = getEnvInt("ANALYTICS_BUFFER_SIZE", 1024)

	// Logging
	LogLevel = getEnvString("LOG_LEVEL", "info")
	LogJSON = getEnvBool("LOG_JSON", true)
	LogDir = getEnvString("LOG_DIR", "logs")
}
