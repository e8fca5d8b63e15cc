package service

import (
	"context"
	"fmt"
	"io"

	"github.com/garyjia/expense-approval/internal/application/port"
)

// ReportService produces spreadsheet reports of claims
type ReportService interface {
	ExportClaims(ctx context.Context, w io.Writer) (int, error)
}

type reportServiceImpl struct {
	claims   port.ClaimRepository
	exporter port.ClaimExporter
	logger   Logger
}

// NewReportService creates a new ReportService
func NewReportService(claims port.ClaimRepository, exporter port.ClaimExporter, logger Logger) ReportService {
	if logger == nil {
		logger = nopLogger{}
	}
	return &reportServiceImpl{
		claims:   claims,
		exporter: exporter,
		logger:   logger,
	}
}

// ExportClaims writes every claim, newest expense first, and returns the row count
func (s *reportServiceImpl) ExportClaims(ctx context.Context, w io.Writer) (int, error) {
	claims, err := s.claims.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list claims: %w", err)
	}

	if err := s.exporter.Export(ctx, w, claims); err != nil {
		s.logger.Error("Claims export failed", "rows", len(claims), "error", err)
		return 0, fmt.Errorf("failed to export claims: %w", err)
	}

	return len(claims), nil
}
