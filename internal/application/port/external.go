package port

import (
	"context"
	"errors"
	"io"

	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/shopspring/decimal"
)

var (
	// ErrConversionFailed is returned when the rate lookup fails or the currency is unknown
	ErrConversionFailed = errors.New("currency conversion failed")

	// ErrStaleState is returned by guarded updates that matched no row
	ErrStaleState = errors.New("record is no longer in the expected state")

	// ErrExtractorUnavailable is returned when receipt extraction is not configured
	ErrExtractorUnavailable = errors.New("receipt extraction is not configured")
)

// CurrencyConverter converts an amount between currencies. Same-currency
// conversion never performs a lookup.
type CurrencyConverter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// ReceiptData is what an extractor could read off a receipt
type ReceiptData struct {
	AmountClaimed   decimal.Decimal `json:"amount_claimed"`
	CurrencyClaimed string          `json:"currency_claimed"`
	Category        string          `json:"category"`
	Description     string          `json:"description"`
	Date            string          `json:"date"`
	VendorName      string          `json:"vendor_name,omitempty"`
	ExpenseLines    []string        `json:"expense_lines,omitempty"`
}

// ReceiptExtractor reads expense fields off a receipt image or PDF
type ReceiptExtractor interface {
	Extract(ctx context.Context, data []byte, mimeType string) (*ReceiptData, error)
}

// Messenger delivers a plain text message to a user
type Messenger interface {
	SendText(ctx context.Context, openID string, text string) error
}

// ClaimExporter writes claims as a spreadsheet
type ClaimExporter interface {
	Export(ctx context.Context, w io.Writer, claims []*entity.Claim) error
}
