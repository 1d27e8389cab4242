// Package config provides configuration management functionality.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/aristath/papertrader/internal/utils"
)

// Store backends
const (
	BackendSQLite   = "sqlite"
	BackendDynamoDB = "dynamodb"
	BackendMemory   = "memory"
)

// Config holds application configuration
type Config struct {
	DataDir         string // Base directory for the sqlite database and backup snapshots (always absolute)
	StoreBackend    string
	LogLevel        string
	SessionSecret   string
	QuotesFile      string // Optional YAML catalog replacing the built-in quotes
	Port            int
	LogPretty       bool
	DevMode         bool
	SecureCookies   bool     // Mark session cookies HTTPS-only
	AllowedOrigins  []string // CORS origins; defaults to any
	StartingBalance decimal.Decimal
	SessionTTL      time.Duration
	TradeTimeout    time.Duration
	NotifyTimeout   time.Duration
	AWS             AWSConfig
	Backup          BackupConfig
}

// AWSConfig holds settings for the DynamoDB and SNS collaborators
type AWSConfig struct {
	Region            string
	EndpointURL       string // Local endpoint override (dynamodb-local, localstack)
	AccessKeyID       string
	SecretAccessKey   string
	UsersTable        string
	PortfoliosTable   string
	TransactionsTable string
	SNSTopicARN       string // Empty means notifications are only logged
}

// BackupConfig holds settings for scheduled S3 snapshots of the sqlite store
type BackupConfig struct {
	Bucket        string
	Prefix        string
	Schedule      string
	RetentionDays int // 0 keeps every archive
}

// Enabled reports whether a bucket is configured
func (b BackupConfig) Enabled() bool {
	return b.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	absDataDir, err := filepath.Abs(getEnv("DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	startingBalance, err := decimal.NewFromString(getEnv("STARTING_BALANCE", "10000.00"))
	if err != nil {
		return nil, fmt.Errorf("invalid STARTING_BALANCE: %w", err)
	}

	cfg := &Config{
		DataDir:         absDataDir,
		StoreBackend:    strings.ToLower(getEnv("STORE_BACKEND", BackendSQLite)),
		Port:            getEnvAsInt("PORT", 8080),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogPretty:       getEnvAsBool("LOG_PRETTY", true),
		SessionSecret:   getEnv("SESSION_SECRET", ""),
		SessionTTL:      getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		SecureCookies:   getEnvAsBool("COOKIE_SECURE", false),
		AllowedOrigins:  utils.ParseCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		StartingBalance: startingBalance,
		QuotesFile:      getEnv("QUOTES_FILE", ""),
		TradeTimeout:    getEnvAsDuration("TRADE_TIMEOUT", 10*time.Second),
		NotifyTimeout:   getEnvAsDuration("NOTIFY_TIMEOUT", 5*time.Second),
		AWS: AWSConfig{
			Region:            getEnv("AWS_REGION", "us-east-1"),
			EndpointURL:       getEnv("AWS_ENDPOINT_URL", ""),
			AccessKeyID:       getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
			UsersTable:        getEnv("DYNAMODB_USERS_TABLE", "StockTradingUsers"),
			PortfoliosTable:   getEnv("DYNAMODB_PORTFOLIOS_TABLE", "StockTradingPortfolios"),
			TransactionsTable: getEnv("DYNAMODB_TRANSACTIONS_TABLE", "StockTradingTransactions"),
			SNSTopicARN:       getEnv("SNS_TOPIC_ARN", ""),
		},
		Backup: BackupConfig{
			Bucket:        getEnv("BACKUP_S3_BUCKET", ""),
			Prefix:        getEnv("BACKUP_S3_PREFIX", "papertrader/"),
			Schedule:      getEnv("BACKUP_SCHEDULE", "@daily"),
			RetentionDays: getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		},
	}

	// Dev mode gets a throwaway signing key; sessions do not survive a restart
	if cfg.SessionSecret == "" && cfg.DevMode {
		cfg.SessionSecret = randomSecret()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.StoreBackend == BackendSQLite {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendSQLite, BackendDynamoDB, BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (want sqlite, dynamodb or memory)", c.StoreBackend)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT: %d", c.Port)
	}

	if len(c.SessionSecret) < 16 {
		return fmt.Errorf("SESSION_SECRET must be at least 16 characters (or set DEV_MODE=true)")
	}

	if c.StartingBalance.IsNegative() {
		return fmt.Errorf("STARTING_BALANCE must not be negative")
	}

	if c.SessionTTL <= 0 || c.TradeTimeout <= 0 || c.NotifyTimeout <= 0 {
		return fmt.Errorf("SESSION_TTL, TRADE_TIMEOUT and NOTIFY_TIMEOUT must be positive")
	}

	if c.Backup.RetentionDays < 0 {
		return fmt.Errorf("BACKUP_RETENTION_DAYS must not be negative")
	}

	if c.StoreBackend == BackendDynamoDB && c.AWS.Region == "" {
		return fmt.Errorf("AWS_REGION is required for the dynamodb backend")
	}

	return nil
}

// DatabasePath returns the sqlite file used by the sqlite backend
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "papertrader.db")
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "papertrader-dev-secret-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return hex.EncodeToString(buf)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
