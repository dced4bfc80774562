package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	StorageDriver         string
	DatabaseURL           string
	TelegramToken         string // empty disables the bot; notifications go to the log
	AdminTelegramID       int64
	HTTPAddr              string
	LogLevel              string
	Environment           string
	CronSpecApprovalCheck string // reminders for attendance awaiting approval
	CronSpecPaymentSweep  string // overdue payment sweep
	ApprovalReminderAfter time.Duration
	PaymentDueDays        int
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.StorageDriver = strings.ToLower(os.Getenv("STORAGE_DRIVER"))
	if cfg.StorageDriver == "" {
		cfg.StorageDriver = StoragePostgres
	}
	if cfg.StorageDriver != StoragePostgres && cfg.StorageDriver != StorageMemory {
		return nil, fmt.Errorf("invalid STORAGE_DRIVER %q: want %s or %s", cfg.StorageDriver, StoragePostgres, StorageMemory)
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" && cfg.StorageDriver == StoragePostgres {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")

	adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID")
	if adminIDStr == "" {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not set")
	}
	cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
	}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.CronSpecApprovalCheck = os.Getenv("CRON_SPEC_APPROVAL_REMINDERS")
	if cfg.CronSpecApprovalCheck == "" {
		cfg.CronSpecApprovalCheck = "0 */3 * * *" // Default: every 3 hours
	}

	cfg.CronSpecPaymentSweep = os.Getenv("CRON_SPEC_PAYMENT_SWEEP")
	if cfg.CronSpecPaymentSweep == "" {
		cfg.CronSpecPaymentSweep = "0 9 * * *" // Default: 9 AM daily
	}

	cfg.ApprovalReminderAfter = 24 * time.Hour
	if v := os.Getenv("APPROVAL_REMINDER_AFTER"); v != "" {
		cfg.ApprovalReminderAfter, err = time.ParseDuration(v)
		if err != nil || cfg.ApprovalReminderAfter <= 0 {
			return nil, fmt.Errorf("invalid APPROVAL_REMINDER_AFTER %q", v)
		}
	}

	cfg.PaymentDueDays = 7
	if v := os.Getenv("PAYMENT_DUE_DAYS"); v != "" {
		cfg.PaymentDueDays, err = strconv.Atoi(v)
		if err != nil || cfg.PaymentDueDays < 0 {
			return nil, fmt.Errorf("invalid PAYMENT_DUE_DAYS %q", v)
		}
	}

	return cfg, nil
}

// PaymentDueAfter is the grace period between conversion and payment.
func (c *AppConfig) PaymentDueAfter() time.Duration {
	return time.Duration(c.PaymentDueDays) * 24 * time.Hour
}
