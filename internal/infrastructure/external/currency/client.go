package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultBaseURL is the exchangerate-api v4 latest-rates endpoint
const DefaultBaseURL = "https://api.exchangerate-api.com/v4/latest"

// Config holds currency client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client implements port.CurrencyConverter against exchangerate-api.
// Each conversion performs at most one lookup and is never retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new exchange rate client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type ratesResponse struct {
	Base  string                 `json:"base"`
	Rates map[string]json.Number `json:"rates"`
}

// Convert returns amount expressed in currency to, rounded to two places
func (c *Client) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))

	if from == to {
		return amount.Round(2), nil
	}

	rate, err := c.lookupRate(ctx, from, to)
	if err != nil {
		c.logger.Warn("Currency conversion failed",
			zap.String("from", from),
			zap.String("to", to),
			zap.Error(err))
		return decimal.Decimal{}, fmt.Errorf("%w: %s to %s: %v", port.ErrConversionFailed, from, to, err)
	}

	converted := amount.Mul(rate).Round(2)
	c.logger.Debug("Converted amount",
		zap.String("from", from),
		zap.String("to", to),
		zap.String("rate", rate.String()),
		zap.String("amount", converted.String()))

	return converted, nil
}

func (c *Client) lookupRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+from, nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("request rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body ratesResponse
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode rates: %w", err)
	}

	raw, ok := body.Rates[to]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("no rate for %s", to)
	}

	rate, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse rate %q: %w", raw.String(), err)
	}
	if !rate.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("non-positive rate %s", rate.String())
	}

	return rate, nil
}

var _ port.CurrencyConverter = (*Client)(nil)
