package config

import (
	"github.com/garyjia/expense-approval/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This bridges the file-based config loaded by viper and the container's
// configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		Currency: container.CurrencyConfig{
			BaseURL: c.Currency.BaseURL,
			Timeout: c.Currency.Timeout,
		},
		Workflow: container.WorkflowConfig{
			AdminThreshold:        c.AdminThresholdAmount(),
			StalledReportInterval: c.Workflow.StalledReportInterval,
		},
		OpenAI: container.OpenAIConfig{
			APIKey:      c.OpenAI.APIKey,
			BaseURL:     c.OpenAI.BaseURL,
			Model:       c.OpenAI.Model,
			PromptsPath: c.OpenAI.PromptsPath,
			MaxPages:    c.OpenAI.MaxPages,
		},
		Lark: container.LarkConfig{
			AppID:     c.Lark.AppID,
			AppSecret: c.Lark.AppSecret,
			BaseURL:   c.Lark.BaseURL,
		},
		Server: container.ServerConfig{
			Host:           c.Server.Host,
			Port:           c.Server.Port,
			ReadTimeout:    c.Server.ReadTimeout,
			WriteTimeout:   c.Server.WriteTimeout,
			MaxUploadBytes: c.Server.MaxUploadBytes,
		},
	}
}
