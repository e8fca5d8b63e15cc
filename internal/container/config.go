// Package container provides dependency injection and lifecycle management
// for the expense approval service.
package container

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all configuration for the Container
type Config struct {
	Database DatabaseConfig
	Currency CurrencyConfig
	Workflow WorkflowConfig
	OpenAI   OpenAIConfig
	Lark     LarkConfig
	Server   ServerConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	// Path to SQLite database file
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// CurrencyConfig holds exchange rate API settings
type CurrencyConfig struct {
	BaseURL string
	Timeout time.Duration
}

// WorkflowConfig holds approval workflow settings
type WorkflowConfig struct {
	// AdminThreshold is the company-currency amount above which the admin signs off
	AdminThreshold decimal.Decimal

	// StalledReportInterval is how often stalled claims are logged
	StalledReportInterval time.Duration
}

// OpenAIConfig holds receipt extraction settings. Empty APIKey disables extraction.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	PromptsPath string
	MaxPages    int
}

// LarkConfig holds messaging settings. Empty AppID disables notifications.
type LarkConfig struct {
	AppID     string
	AppSecret string
	BaseURL   string
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxUploadBytes int64
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/expenses.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Currency: CurrencyConfig{
			Timeout: 5 * time.Second,
		},
		Workflow: WorkflowConfig{
			AdminThreshold:        decimal.NewFromInt(500),
			StalledReportInterval: time.Hour,
		},
		OpenAI: OpenAIConfig{
			Model:    "gpt-4o",
			MaxPages: 2,
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   60 * time.Second,
			MaxUploadBytes: 10 << 20,
		},
	}
}

// Validate checks that required configuration values are present
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Workflow.AdminThreshold.IsNegative() {
		return fmt.Errorf("workflow.admin_threshold must not be negative")
	}
	if c.Lark.AppID != "" && c.Lark.AppSecret == "" {
		return fmt.Errorf("lark.app_secret is required when lark.app_id is set")
	}
	return nil
}
