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

// StepRepository implements port.StepRepository
type StepRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStepRepository creates a new approval step repository
func NewStepRepository(db *sql.DB, logger *zap.Logger) *StepRepository {
	return &StepRepository{
		db:     db,
		logger: logger,
	}
}

// CreateBatch inserts the steps in order and sets their IDs.
// The (claim_id, sequence) unique index rejects duplicate sequences.
func (r *StepRepository) CreateBatch(ctx context.Context, steps []*entity.ApprovalStep) error {
	query := `
		INSERT INTO approval_steps (
			claim_id, approver_id, approver_role, sequence, status,
			comment, decided_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	exec := sqlite.GetExecutor(ctx, r.db)
	for _, step := range steps {
		result, err := exec.ExecContext(ctx, query,
			step.ClaimID,
			step.ApproverID,
			step.ApproverRole,
			step.Sequence,
			step.Status,
			step.Comment,
			nullTime(step.DecidedAt),
			step.CreatedAt.UTC(),
			step.UpdatedAt.UTC(),
		)
		if err != nil {
			r.logger.Error("Failed to create approval step",
				zap.Int64("claim_id", step.ClaimID),
				zap.Int("sequence", step.Sequence),
				zap.Error(err))
			return fmt.Errorf("failed to create approval step: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		step.ID = id
	}

	return nil
}

// GetByClaimID returns the claim's steps ordered by sequence
func (r *StepRepository) GetByClaimID(ctx context.Context, claimID int64) ([]*entity.ApprovalStep, error) {
	query := `
		SELECT id, claim_id, approver_id, approver_role, sequence, status,
			comment, decided_at, created_at, updated_at
		FROM approval_steps
		WHERE claim_id = ?
		ORDER BY sequence ASC
	`

	rows, err := sqlite.GetExecutor(ctx, r.db).QueryContext(ctx, query, claimID)
	if err != nil {
		r.logger.Error("Failed to get approval steps", zap.Int64("claim_id", claimID), zap.Error(err))
		return nil, fmt.Errorf("failed to get approval steps: %w", err)
	}
	defer rows.Close()

	steps := []*entity.ApprovalStep{}
	for rows.Next() {
		var (
			step      entity.ApprovalStep
			decidedAt sql.NullTime
		)
		err := rows.Scan(
			&step.ID,
			&step.ClaimID,
			&step.ApproverID,
			&step.ApproverRole,
			&step.Sequence,
			&step.Status,
			&step.Comment,
			&decidedAt,
			&step.CreatedAt,
			&step.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval step: %w", err)
		}
		if decidedAt.Valid {
			t := decidedAt.Time
			step.DecidedAt = &t
		}
		steps = append(steps, &step)
	}

	return steps, rows.Err()
}

// RecordDecision writes the decision if the step is still PENDING
func (r *StepRepository) RecordDecision(ctx context.Context, step *entity.ApprovalStep) error {
	query := `
		UPDATE approval_steps
		SET status = ?, comment = ?, decided_at = ?, updated_at = ?
		WHERE id = ? AND status = 'PENDING'
	`

	result, err := sqlite.GetExecutor(ctx, r.db).ExecContext(ctx, query,
		step.Status,
		step.Comment,
		nullTime(step.DecidedAt),
		step.UpdatedAt.UTC(),
		step.ID,
	)
	if err != nil {
		r.logger.Error("Failed to record decision", zap.Int64("step_id", step.ID), zap.Error(err))
		return fmt.Errorf("failed to record decision: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return port.ErrStaleState
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

var _ port.StepRepository = (*StepRepository)(nil)
