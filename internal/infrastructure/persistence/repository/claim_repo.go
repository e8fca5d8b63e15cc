package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

var claimColumns = []string{
	"id", "submitter_id", "company_id", "amount_claimed", "currency_claimed",
	"amount_in_company_currency", "category", "description", "expense_date",
	"status", "created_at", "updated_at",
}

// selectClaims returns the claim column list qualified with alias
func selectClaims(alias string) string {
	cols := make([]string, len(claimColumns))
	for i, c := range claimColumns {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

// ClaimRepository implements port.ClaimRepository
type ClaimRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewClaimRepository creates a new claim repository
func NewClaimRepository(db *sql.DB, logger *zap.Logger) *ClaimRepository {
	return &ClaimRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts the claim and sets its ID
func (r *ClaimRepository) Create(ctx context.Context, claim *entity.Claim) error {
	query := `
		INSERT INTO claims (
			submitter_id, company_id, amount_claimed, currency_claimed,
			amount_in_company_currency, category, description, expense_date,
			status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.GetExecutor(ctx, r.db).ExecContext(ctx, query,
		claim.SubmitterID,
		claim.CompanyID,
		claim.AmountClaimed,
		claim.CurrencyClaimed,
		claim.AmountInCompanyCurrency,
		claim.Category,
		claim.Description,
		claim.ExpenseDate.UTC(),
		claim.Status,
		claim.CreatedAt.UTC(),
		claim.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create claim", zap.Int64("submitter_id", claim.SubmitterID), zap.Error(err))
		return fmt.Errorf("failed to create claim: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	claim.ID = id
	return nil
}

// GetByID returns nil, nil when the claim does not exist
func (r *ClaimRepository) GetByID(ctx context.Context, id int64) (*entity.Claim, error) {
	query := `SELECT ` + selectClaims("c") + ` FROM claims c WHERE c.id = ?`

	claim, err := scanClaim(sqlite.GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get claim", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}
	return claim, nil
}

// UpdateStatus updates a PENDING claim; zero affected rows means
// another writer already closed it
func (r *ClaimRepository) UpdateStatus(ctx context.Context, id int64, status entity.ClaimStatus, updatedAt time.Time) error {
	query := `UPDATE claims SET status = ?, updated_at = ? WHERE id = ? AND status = 'PENDING'`

	result, err := sqlite.GetExecutor(ctx, r.db).ExecContext(ctx, query, status, updatedAt.UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update claim status", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update claim status: %w", err)
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

// ListBySubmitter returns the submitter's own claims, newest expense first
func (r *ClaimRepository) ListBySubmitter(ctx context.Context, submitterID int64) ([]*entity.Claim, error) {
	query := `SELECT ` + selectClaims("c") + ` FROM claims c
		WHERE c.submitter_id = ?
		ORDER BY c.expense_date DESC, c.id DESC`
	return r.list(ctx, "submitter", query, submitterID)
}

// ListByManager returns claims submitted by the manager's direct reports
func (r *ClaimRepository) ListByManager(ctx context.Context, managerID int64) ([]*entity.Claim, error) {
	query := `SELECT ` + selectClaims("c") + ` FROM claims c
		JOIN users u ON u.id = c.submitter_id
		WHERE u.manager_id = ?
		ORDER BY c.expense_date DESC, c.id DESC`
	return r.list(ctx, "manager", query, managerID)
}

// ListAll returns every claim, newest expense first
func (r *ClaimRepository) ListAll(ctx context.Context) ([]*entity.Claim, error) {
	query := `SELECT ` + selectClaims("c") + ` FROM claims c ORDER BY c.expense_date DESC, c.id DESC`
	return r.list(ctx, "all", query)
}

// ListPendingForApprover returns PENDING claims whose lowest-sequence pending
// step belongs to approverID, oldest expense first
func (r *ClaimRepository) ListPendingForApprover(ctx context.Context, approverID int64) ([]*entity.Claim, error) {
	query := `SELECT ` + selectClaims("c") + ` FROM claims c
		JOIN approval_steps s ON s.claim_id = c.id
		WHERE c.status = 'PENDING'
			AND s.status = 'PENDING'
			AND s.approver_id = ?
			AND s.sequence = (
				SELECT MIN(p.sequence) FROM approval_steps p
				WHERE p.claim_id = c.id AND p.status = 'PENDING'
			)
		ORDER BY c.expense_date ASC, c.id ASC`
	return r.list(ctx, "pending", query, approverID)
}

// ListStalled returns PENDING claims without any approval step
func (r *ClaimRepository) ListStalled(ctx context.Context) ([]*entity.Claim, error) {
	query := `SELECT ` + selectClaims("c") + ` FROM claims c
		WHERE c.status = 'PENDING'
			AND NOT EXISTS (SELECT 1 FROM approval_steps s WHERE s.claim_id = c.id)
		ORDER BY c.created_at ASC, c.id ASC`
	return r.list(ctx, "stalled", query)
}

func (r *ClaimRepository) list(ctx context.Context, view, query string, args ...interface{}) ([]*entity.Claim, error) {
	rows, err := sqlite.GetExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list claims", zap.String("view", view), zap.Error(err))
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	claims := []*entity.Claim{}
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, claim)
	}

	return claims, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClaim(row rowScanner) (*entity.Claim, error) {
	var c entity.Claim
	err := row.Scan(
		&c.ID,
		&c.SubmitterID,
		&c.CompanyID,
		&c.AmountClaimed,
		&c.CurrencyClaimed,
		&c.AmountInCompanyCurrency,
		&c.Category,
		&c.Description,
		&c.ExpenseDate,
		&c.Status,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

var _ port.ClaimRepository = (*ClaimRepository)(nil)
