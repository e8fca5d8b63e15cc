package lark

import (
	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
)

// Config holds Lark client configuration
type Config struct {
	AppID     string
	AppSecret string
	BaseURL   string // empty uses the Feishu open platform
}

// NewClient creates a Lark SDK client with tenant token caching
func NewClient(cfg Config) *lark.Client {
	opts := []lark.ClientOptionFunc{
		lark.WithLogLevel(larkcore.LogLevelInfo),
		lark.WithEnableTokenCache(true),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, lark.WithOpenBaseUrl(cfg.BaseURL))
	}

	return lark.NewClient(cfg.AppID, cfg.AppSecret, opts...)
}
