package port

import (
	"context"
	"time"

	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// ClaimRepository defines persistence operations for Claim
type ClaimRepository interface {
	Create(ctx context.Context, claim *entity.Claim) error

	// GetByID returns nil, nil when the claim does not exist
	GetByID(ctx context.Context, id int64) (*entity.Claim, error)

	// UpdateStatus sets the status and updated_at of a PENDING claim.
	// PENDING to PENDING only touches updated_at. Returns ErrStaleState
	// when the claim was no longer PENDING.
	UpdateStatus(ctx context.Context, id int64, status entity.ClaimStatus, updatedAt time.Time) error

	ListBySubmitter(ctx context.Context, submitterID int64) ([]*entity.Claim, error)
	ListByManager(ctx context.Context, managerID int64) ([]*entity.Claim, error)
	ListAll(ctx context.Context) ([]*entity.Claim, error)

	// ListPendingForApprover returns PENDING claims whose lowest-sequence
	// pending step is assigned to the approver, oldest expense date first
	ListPendingForApprover(ctx context.Context, approverID int64) ([]*entity.Claim, error)

	// ListStalled returns PENDING claims that have no approval steps
	ListStalled(ctx context.Context) ([]*entity.Claim, error)
}

// StepRepository defines persistence operations for ApprovalStep
type StepRepository interface {
	// CreateBatch inserts the steps and sets their IDs
	CreateBatch(ctx context.Context, steps []*entity.ApprovalStep) error

	// GetByClaimID returns the claim's steps ordered by sequence
	GetByClaimID(ctx context.Context, claimID int64) ([]*entity.ApprovalStep, error)

	// RecordDecision persists a decision on a PENDING step. Returns
	// ErrStaleState when the step was already decided.
	RecordDecision(ctx context.Context, step *entity.ApprovalStep) error
}

// RuleRepository is the read side of the per-company approval configuration,
// plus the admin upsert
type RuleRepository interface {
	// GetByCompanyID returns nil, nil when the company has no configuration
	GetByCompanyID(ctx context.Context, companyID int64) (*entity.ApprovalRuleConfig, error)
	Upsert(ctx context.Context, rule *entity.ApprovalRuleConfig) error
}

// Directory resolves users, their managers and company admins
type Directory interface {
	// GetUser returns nil, nil when the user does not exist
	GetUser(ctx context.Context, userID int64) (*entity.User, error)

	// GetManager returns nil, nil when the user has no manager
	GetManager(ctx context.Context, userID int64) (*entity.User, error)

	// GetCompanyAdmin returns the designated admin approver, or nil, nil
	GetCompanyAdmin(ctx context.Context, companyID int64) (*entity.User, error)

	// GetCompany returns nil, nil when the company does not exist
	GetCompany(ctx context.Context, companyID int64) (*entity.Company, error)
}

// HistoryRepository defines persistence operations for ClaimHistory
type HistoryRepository interface {
	Create(ctx context.Context, history *entity.ClaimHistory) error
	GetByClaimID(ctx context.Context, claimID int64) ([]*entity.ClaimHistory, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
