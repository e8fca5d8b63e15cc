package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateCurrencyCode(t *testing.T) {
	assert.NoError(t, ValidateCurrencyCode("USD"))
	assert.NoError(t, ValidateCurrencyCode(NormalizeCurrencyCode(" eur ")))
	assert.Error(t, ValidateCurrencyCode("usd"))
	assert.Error(t, ValidateCurrencyCode("US"))
	assert.Error(t, ValidateCurrencyCode("USDT"))
	assert.Error(t, ValidateCurrencyCode(""))
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(decimal.RequireFromString("100.00")))
	assert.NoError(t, ValidateAmount(decimal.RequireFromString("0.01")))
	assert.Error(t, ValidateAmount(decimal.Zero))
	assert.Error(t, ValidateAmount(decimal.RequireFromString("-5")))
	assert.Error(t, ValidateAmount(decimal.RequireFromString("1.005")))
}

func TestValidatePercentage(t *testing.T) {
	assert.NoError(t, ValidatePercentage(decimal.Zero))
	assert.NoError(t, ValidatePercentage(decimal.NewFromInt(100)))
	assert.Error(t, ValidatePercentage(decimal.NewFromInt(101)))
	assert.Error(t, ValidatePercentage(decimal.NewFromInt(-1)))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "Taxi to airport", SanitizeString(" Taxi\x00 to airport\x7f "))
	assert.Equal(t, "line1\nline2", SanitizeString("line1\nline2"))
}
