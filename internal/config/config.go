package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Currency CurrencyConfig `mapstructure:"currency"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Lark     LarkConfig     `mapstructure:"lark"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// CurrencyConfig holds exchange rate API configuration
type CurrencyConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// WorkflowConfig holds approval workflow tuning
type WorkflowConfig struct {
	AdminThreshold        string        `mapstructure:"admin_threshold"`
	StalledReportInterval time.Duration `mapstructure:"stalled_report_interval"`
}

// OpenAIConfig holds receipt extraction configuration. Extraction is
// disabled when APIKey is empty.
type OpenAIConfig struct {
	APIKey      string `mapstructure:"api_key"`
	BaseURL     string `mapstructure:"base_url"`
	Model       string `mapstructure:"model"`
	PromptsPath string `mapstructure:"prompts_path"`
	MaxPages    int    `mapstructure:"max_pages"`
}

// LarkConfig holds Lark messaging configuration. Notifications are
// disabled when AppID is empty.
type LarkConfig struct {
	AppID     string `mapstructure:"app_id"`
	AppSecret string `mapstructure:"app_secret"`
	BaseURL   string `mapstructure:"base_url"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load reads .env (when present), the YAML file at configPath (optional when
// empty) and environment overrides
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	bindEnvVars(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.max_upload_bytes", 10<<20)

	v.SetDefault("database.path", "data/expenses.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("currency.base_url", "https://api.exchangerate-api.com/v4/latest")
	v.SetDefault("currency.timeout", 5*time.Second)

	v.SetDefault("workflow.admin_threshold", "500")
	v.SetDefault("workflow.stalled_report_interval", time.Hour)

	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.max_pages", 2)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("openai.base_url", "OPENAI_BASE_URL")
	_ = v.BindEnv("lark.app_id", "LARK_APP_ID")
	_ = v.BindEnv("lark.app_secret", "LARK_APP_SECRET")
	_ = v.BindEnv("currency.base_url", "EXCHANGE_RATE_BASE_URL")
	_ = v.BindEnv("database.path", "DATABASE_PATH")
	_ = v.BindEnv("logger.level", "LOG_LEVEL")
}

// AdminThresholdAmount returns the parsed workflow.admin_threshold
func (c *Config) AdminThresholdAmount() decimal.Decimal {
	d, err := decimal.NewFromString(c.Workflow.AdminThreshold)
	if err != nil {
		return decimal.NewFromInt(500)
	}
	return d
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	threshold, err := decimal.NewFromString(c.Workflow.AdminThreshold)
	if err != nil {
		return fmt.Errorf("workflow.admin_threshold is not a number: %w", err)
	}
	if threshold.IsNegative() {
		return fmt.Errorf("workflow.admin_threshold must not be negative")
	}

	if (c.Lark.AppID == "") != (c.Lark.AppSecret == "") {
		return fmt.Errorf("lark.app_id and lark.app_secret must be set together")
	}

	return nil
}
