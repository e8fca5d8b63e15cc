package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// RuleRepository implements port.RuleRepository
type RuleRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRuleRepository creates a new approval rule repository
func NewRuleRepository(db *sql.DB, logger *zap.Logger) *RuleRepository {
	return &RuleRepository{
		db:     db,
		logger: logger,
	}
}

// GetByCompanyID returns nil, nil when the company has no rule configured
func (r *RuleRepository) GetByCompanyID(ctx context.Context, companyID int64) (*entity.ApprovalRuleConfig, error) {
	query := `
		SELECT id, company_id, is_manager_first_approver, rule_type,
			threshold_value, specific_approver_role, created_at, updated_at
		FROM approval_rules
		WHERE company_id = ?
	`

	var rule entity.ApprovalRuleConfig
	err := sqlite.GetExecutor(ctx, r.db).QueryRowContext(ctx, query, companyID).Scan(
		&rule.ID,
		&rule.CompanyID,
		&rule.IsManagerFirstApprover,
		&rule.RuleType,
		&rule.ThresholdValue,
		&rule.SpecificApproverRole,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get approval rule", zap.Int64("company_id", companyID), zap.Error(err))
		return nil, fmt.Errorf("failed to get approval rule: %w", err)
	}

	return &rule, nil
}

// Upsert creates or replaces the company's single rule configuration
func (r *RuleRepository) Upsert(ctx context.Context, rule *entity.ApprovalRuleConfig) error {
	query := `
		INSERT INTO approval_rules (
			company_id, is_manager_first_approver, rule_type, threshold_value,
			specific_approver_role, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (company_id) DO UPDATE SET
			is_manager_first_approver = excluded.is_manager_first_approver,
			rule_type = excluded.rule_type,
			threshold_value = excluded.threshold_value,
			specific_approver_role = excluded.specific_approver_role,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC()
	_, err := sqlite.GetExecutor(ctx, r.db).ExecContext(ctx, query,
		rule.CompanyID,
		rule.IsManagerFirstApprover,
		rule.RuleType,
		rule.ThresholdValue,
		rule.SpecificApproverRole,
		now,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to upsert approval rule", zap.Int64("company_id", rule.CompanyID), zap.Error(err))
		return fmt.Errorf("failed to upsert approval rule: %w", err)
	}

	stored, err := r.GetByCompanyID(ctx, rule.CompanyID)
	if err != nil {
		return err
	}
	if stored == nil {
		return fmt.Errorf("approval rule for company %d missing after upsert", rule.CompanyID)
	}

	rule.ID = stored.ID
	rule.CreatedAt = stored.CreatedAt
	rule.UpdatedAt = stored.UpdatedAt
	return nil
}

var _ port.RuleRepository = (*RuleRepository)(nil)
