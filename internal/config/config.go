package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Persistence
	DataBackend   string
	StoreKey      string
	DataDirectory string
	SQLiteDBPath  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Reply generation
	Responder          string
	ResponseDelay      time.Duration
	DialogflowProject  string
	DialogflowLanguage string

	// Google credentials, shared by Dialogflow and Sheets
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID     string
	GoogleTransactionsSheet string
	GoogleGoalsSheet        string

	// Telegram
	TelegramBotToken string

	// Sessions
	SessionCacheSize int
	SessionTTL       time.Duration

	RateLimitPerMinute int
	// TrustedProxies are extra CIDRs whose X-Forwarded-For is honoured.
	TrustedProxies     []string
	LogLevel           string
}

var (
	validBackends   = []string{"memory", "sqlite", "redis"}
	validResponders = []string{"local", "dialogflow"}
)

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:   getEnv("DATA_BACKEND", "memory"),
		StoreKey:      getEnv("STORE_KEY", "financialData"),
		DataDirectory: getEnv("DATA_DIRECTORY", "data"),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/finbot.db"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		Responder:          getEnv("RESPONDER", "local"),
		ResponseDelay:      getEnvDuration("RESPONSE_DELAY", 0),
		DialogflowProject:  getEnv("DIALOGFLOW_PROJECT_ID", ""),
		DialogflowLanguage: getEnv("DIALOGFLOW_LANGUAGE", "es-ES"),

		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finbot"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		GoogleSpreadsheetID:     getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleTransactionsSheet: getEnv("GOOGLE_TRANSACTIONS_SHEET", "Transacciones"),
		GoogleGoalsSheet:        getEnv("GOOGLE_GOALS_SHEET", "Metas"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),

		SessionCacheSize: getEnvInt("SESSION_CACHE_SIZE", 1000),
		SessionTTL:       getEnvDuration("SESSION_TTL", 24*time.Hour),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate checks the server configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}
	if strings.TrimSpace(c.StoreKey) == "" {
		errors = append(errors, "store key cannot be empty")
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case "redis":
		if c.RedisAddr == "" {
			errors = append(errors, "Redis address cannot be empty when using redis backend")
		}
		if c.RedisDB < 0 {
			errors = append(errors, fmt.Sprintf("invalid Redis database %d: must not be negative", c.RedisDB))
		}
	}

	if !slices.Contains(validResponders, c.Responder) {
		errors = append(errors, fmt.Sprintf("invalid responder '%s': must be one of %v", c.Responder, validResponders))
	}
	if c.Responder == "dialogflow" {
		if c.DialogflowProject == "" {
			errors = append(errors, "Dialogflow project ID is required when using dialogflow responder")
		}
		errors = append(errors, c.credentialErrors("dialogflow responder")...)
	}
	if c.ResponseDelay < 0 || c.ResponseDelay > 10*time.Second {
		errors = append(errors, fmt.Sprintf("invalid response delay %v: must be between 0 and 10 seconds", c.ResponseDelay))
	}

	errors = append(errors, c.amqpErrors()...)

	if c.SessionCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid session cache size %d: must be at least 1", c.SessionCacheSize))
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}
	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	return combine(errors)
}

// ValidateWorker checks what the export worker needs.
func (c *Config) ValidateWorker() error {
	var errors []string

	if c.AMQPURL == "" {
		errors = append(errors, "AMQP URL is required for the export worker")
	}
	errors = append(errors, c.amqpErrors()...)

	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required for the export worker")
	}
	if c.GoogleTransactionsSheet == "" || c.GoogleGoalsSheet == "" {
		errors = append(errors, "Google sheet names cannot be empty")
	}
	errors = append(errors, c.credentialErrors("export worker")...)

	return combine(errors)
}

func (c *Config) amqpErrors() []string {
	if c.AMQPURL == "" {
		return nil
	}
	var errors []string
	if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
	} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
	}
	if c.AMQPExchange == "" {
		errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
	}
	if c.AMQPQueue == "" {
		errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
	}
	return errors
}

func (c *Config) credentialErrors(who string) []string {
	if c.GoogleServiceAccountJSON != "" {
		return nil
	}
	if c.GoogleServiceAccountFile == "" {
		return []string{fmt.Sprintf("either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for %s", who)}
	}
	if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
		return []string{fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile)}
	}
	return nil
}

// Credentials returns the service account JSON, reading the file if needed.
func (c *Config) Credentials() ([]byte, error) {
	if c.GoogleServiceAccountJSON != "" {
		return []byte(c.GoogleServiceAccountJSON), nil
	}
	if c.GoogleServiceAccountFile == "" {
		return nil, fmt.Errorf("no service account credentials configured")
	}
	raw, err := os.ReadFile(c.GoogleServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return raw, nil
}

func combine(errors []string) error {
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping empty items.
func getEnvList(key string) []string {
	var items []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
