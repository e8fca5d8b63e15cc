package export

import (
	"context"
	"fmt"
	"io"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// SheetName is the worksheet holding the exported claims
const SheetName = "Claims"

var claimHeaders = []interface{}{
	"Claim ID", "Submitter ID", "Company ID", "Expense Date", "Category", "Description",
	"Amount Claimed", "Currency", "Amount (Company Currency)", "Status", "Submitted At",
}

// ClaimsExcelExporter writes claims to an xlsx workbook
type ClaimsExcelExporter struct {
	logger *zap.Logger
}

// NewClaimsExcelExporter creates a new exporter
func NewClaimsExcelExporter(logger *zap.Logger) *ClaimsExcelExporter {
	return &ClaimsExcelExporter{logger: logger}
}

// Export writes one row per claim, in the order given, below a bold header row
func (e *ClaimsExcelExporter) Export(ctx context.Context, w io.Writer, claims []*entity.Claim) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	moneyFmt := "#,##0.00"
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFmt})
	if err != nil {
		return fmt.Errorf("failed to create money style: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &claimHeaders); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := f.SetRowStyle(SheetName, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, c := range claims {
		if err := ctx.Err(); err != nil {
			return err
		}

		row := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		values := []interface{}{
			c.ID,
			c.SubmitterID,
			c.CompanyID,
			c.ExpenseDate.Format("2006-01-02"),
			c.Category,
			c.Description,
			c.AmountClaimed.InexactFloat64(),
			c.CurrencyClaimed,
			c.AmountInCompanyCurrency.InexactFloat64(),
			c.Status.String(),
			c.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write claim %d: %w", c.ID, err)
		}
	}

	if len(claims) > 0 {
		last := len(claims) + 1
		for _, col := range []string{"G", "I"} {
			if err := f.SetCellStyle(SheetName, fmt.Sprintf("%s2", col), fmt.Sprintf("%s%d", col, last), moneyStyle); err != nil {
				return fmt.Errorf("failed to style amounts: %w", err)
			}
		}
	}

	if err := f.SetColWidth(SheetName, "A", "C", 12); err != nil {
		e.logger.Warn("Failed to set column width", zap.Error(err))
	}
	if err := f.SetColWidth(SheetName, "D", "K", 20); err != nil {
		e.logger.Warn("Failed to set column width", zap.Error(err))
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Info("Claims exported", zap.Int("rows", len(claims)))
	return nil
}

var _ port.ClaimExporter = (*ClaimsExcelExporter)(nil)
