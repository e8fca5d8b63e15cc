package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	currencyCodeRegex = regexp.MustCompile(`^[A-Z]{3}$`)
	controlCharsRegex = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
)

// NormalizeCurrencyCode trims and upper-cases an ISO-4217 code
func NormalizeCurrencyCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateCurrencyCode checks for a three-letter upper-case code
func ValidateCurrencyCode(code string) error {
	if !currencyCodeRegex.MatchString(code) {
		return fmt.Errorf("invalid currency code: %q", code)
	}
	return nil
}

// ValidateAmount validates a claimed amount: positive, at most two decimal places
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be positive: %s", amount.String())
	}
	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("amount has more than two decimal places: %s", amount.String())
	}
	return nil
}

// ValidatePercentage checks 0 <= value <= 100
func ValidatePercentage(value decimal.Decimal) error {
	if value.IsNegative() || value.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("percentage must be between 0 and 100: %s", value.String())
	}
	return nil
}

// SanitizeString removes control characters, keeping tabs and newlines
func SanitizeString(s string) string {
	return strings.TrimSpace(controlCharsRegex.ReplaceAllString(s, ""))
}
