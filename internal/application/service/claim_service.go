package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/application/workflow"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	domainwf "github.com/garyjia/expense-approval/internal/domain/workflow"
	"github.com/garyjia/expense-approval/pkg/utils"
	"github.com/shopspring/decimal"
)

// SubmitClaimInput carries a new expense claim as entered by the employee
type SubmitClaimInput struct {
	SubmitterID     int64
	AmountClaimed   decimal.Decimal
	CurrencyClaimed string
	Category        string
	Description     string
	Date            time.Time
}

// SubmitResult is the persisted claim and its approval chain.
// Stalled is true when no approver could be resolved.
type SubmitResult struct {
	Claim   *entity.Claim          `json:"claim"`
	Steps   []*entity.ApprovalStep `json:"steps"`
	Stalled bool                   `json:"stalled"`
}

// ClaimDetail is a claim with its steps and audit trail
type ClaimDetail struct {
	Claim   *entity.Claim          `json:"claim"`
	Steps   []*entity.ApprovalStep `json:"steps"`
	History []*entity.ClaimHistory `json:"history"`
}

// ClaimService is the use-case surface for expense claims
type ClaimService interface {
	SubmitClaim(ctx context.Context, input SubmitClaimInput) (*SubmitResult, error)
	ListPendingForApprover(ctx context.Context, approverID int64) ([]*entity.Claim, error)
	Decide(ctx context.Context, claimID, approverID int64, action, comment string) (*entity.Claim, error)

	ListMyClaims(ctx context.Context, submitterID int64) ([]*entity.Claim, error)
	ListTeamClaims(ctx context.Context, managerID int64) ([]*entity.Claim, error)
	ListAllClaims(ctx context.Context) ([]*entity.Claim, error)

	// ListClaimsForUser returns the claims visible to the user's role
	ListClaimsForUser(ctx context.Context, userID int64) ([]*entity.Claim, error)
	GetClaimDetail(ctx context.Context, claimID int64) (*ClaimDetail, error)

	// AssignApprover gives a stalled claim its first step. Only admins of the claim's company may assign.
	AssignApprover(ctx context.Context, claimID, approverID, actorID int64) (*entity.ApprovalStep, error)

	ExtractReceipt(ctx context.Context, data []byte, mimeType string) (*port.ReceiptData, error)
}

// ClaimServiceDeps groups the collaborators of ClaimService
type ClaimServiceDeps struct {
	Engine    workflow.WorkflowEngine
	Claims    port.ClaimRepository
	Steps     port.StepRepository
	History   port.HistoryRepository
	Directory port.Directory
	Converter port.CurrencyConverter
	Extractor port.ReceiptExtractor // optional
	Logger    Logger
}

type claimServiceImpl struct {
	engine    workflow.WorkflowEngine
	claims    port.ClaimRepository
	steps     port.StepRepository
	history   port.HistoryRepository
	directory port.Directory
	converter port.CurrencyConverter
	extractor port.ReceiptExtractor
	logger    Logger
}

// NewClaimService creates a new ClaimService
func NewClaimService(deps ClaimServiceDeps) ClaimService {
	logger := deps.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	return &claimServiceImpl{
		engine:    deps.Engine,
		claims:    deps.Claims,
		steps:     deps.Steps,
		history:   deps.History,
		directory: deps.Directory,
		converter: deps.Converter,
		extractor: deps.Extractor,
		logger:    logger,
	}
}

// SubmitClaim validates the input, converts the amount into the company
// currency and starts the approval workflow. Nothing is written when
// validation or conversion fails.
func (s *claimServiceImpl) SubmitClaim(ctx context.Context, input SubmitClaimInput) (*SubmitResult, error) {
	currency := utils.NormalizeCurrencyCode(input.CurrencyClaimed)
	category := utils.SanitizeString(input.Category)

	if err := utils.ValidateAmount(input.AmountClaimed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := utils.ValidateCurrencyCode(currency); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if category == "" {
		return nil, fmt.Errorf("%w: category is required", ErrValidation)
	}
	if input.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrValidation)
	}

	submitter, err := s.directory.GetUser(ctx, input.SubmitterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load submitter: %w", err)
	}
	if submitter == nil {
		return nil, ErrUserNotFound
	}
	if submitter.Role != entity.RoleEmployee {
		return nil, ErrForbidden
	}

	company, err := s.directory.GetCompany(ctx, submitter.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load company: %w", err)
	}
	if company == nil {
		return nil, ErrCompanyNotFound
	}

	converted, err := s.converter.Convert(ctx, input.AmountClaimed, currency, company.DefaultCurrency)
	if err != nil {
		s.logger.Error("Currency conversion failed",
			"submitter_id", submitter.ID,
			"from", currency,
			"to", company.DefaultCurrency,
			"error", err,
		)
		return nil, err
	}

	y, m, d := input.Date.Date()
	claim := &entity.Claim{
		SubmitterID:             submitter.ID,
		CompanyID:               company.ID,
		AmountClaimed:           input.AmountClaimed,
		CurrencyClaimed:         currency,
		AmountInCompanyCurrency: converted,
		Category:                category,
		Description:             utils.SanitizeString(input.Description),
		ExpenseDate:             time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
	}

	steps, err := s.engine.InitiateWorkflow(ctx, claim)
	if err != nil {
		return nil, err
	}

	return &SubmitResult{
		Claim:   claim,
		Steps:   steps,
		Stalled: len(steps) == 0,
	}, nil
}

func (s *claimServiceImpl) ListPendingForApprover(ctx context.Context, approverID int64) ([]*entity.Claim, error) {
	if err := s.requireApprover(ctx, approverID); err != nil {
		return nil, err
	}
	return s.claims.ListPendingForApprover(ctx, approverID)
}

// Decide records an approver's decision on the claim's active step
func (s *claimServiceImpl) Decide(ctx context.Context, claimID, approverID int64, action, comment string) (*entity.Claim, error) {
	if err := s.requireApprover(ctx, approverID); err != nil {
		return nil, err
	}
	return s.engine.RecordDecision(ctx, claimID, approverID, action, utils.SanitizeString(comment))
}

// requireApprover allows managers and admins only
func (s *claimServiceImpl) requireApprover(ctx context.Context, userID int64) error {
	user, err := s.directory.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}
	if !user.Role.CanApprove() {
		return ErrForbidden
	}
	return nil
}

func (s *claimServiceImpl) ListMyClaims(ctx context.Context, submitterID int64) ([]*entity.Claim, error) {
	return s.claims.ListBySubmitter(ctx, submitterID)
}

func (s *claimServiceImpl) ListTeamClaims(ctx context.Context, managerID int64) ([]*entity.Claim, error) {
	return s.claims.ListByManager(ctx, managerID)
}

func (s *claimServiceImpl) ListAllClaims(ctx context.Context) ([]*entity.Claim, error) {
	return s.claims.ListAll(ctx)
}

func (s *claimServiceImpl) ListClaimsForUser(ctx context.Context, userID int64) ([]*entity.Claim, error) {
	user, err := s.directory.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	switch user.Role {
	case entity.RoleAdmin:
		return s.claims.ListAll(ctx)
	case entity.RoleManager:
		return s.claims.ListByManager(ctx, user.ID)
	default:
		return s.claims.ListBySubmitter(ctx, user.ID)
	}
}

func (s *claimServiceImpl) GetClaimDetail(ctx context.Context, claimID int64) (*ClaimDetail, error) {
	claim, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to load claim: %w", err)
	}
	if claim == nil {
		return nil, domainwf.ErrClaimNotFound
	}

	steps, err := s.steps.GetByClaimID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to load approval steps: %w", err)
	}
	history, err := s.history.GetByClaimID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to load claim history: %w", err)
	}

	return &ClaimDetail{Claim: claim, Steps: steps, History: history}, nil
}

func (s *claimServiceImpl) AssignApprover(ctx context.Context, claimID, approverID, actorID int64) (*entity.ApprovalStep, error) {
	actor, err := s.directory.GetUser(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if actor == nil {
		return nil, ErrUserNotFound
	}
	if actor.Role != entity.RoleAdmin {
		return nil, ErrForbidden
	}

	// A claim's company never changes, so checking outside the engine's lock is safe
	claim, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to load claim: %w", err)
	}
	if claim == nil {
		return nil, domainwf.ErrClaimNotFound
	}
	if claim.CompanyID != actor.CompanyID {
		s.logger.Warn("Cross-company approver assignment refused",
			"claim_id", claimID, "actor_id", actorID, "actor_company_id", actor.CompanyID)
		return nil, ErrForbidden
	}

	return s.engine.AssignApprover(ctx, claimID, approverID, actorID)
}

// ExtractReceipt reads claim fields off a receipt to prefill a submission
func (s *claimServiceImpl) ExtractReceipt(ctx context.Context, data []byte, mimeType string) (*port.ReceiptData, error) {
	if s.extractor == nil {
		return nil, port.ErrExtractorUnavailable
	}

	receipt, err := s.extractor.Extract(ctx, data, mimeType)
	if err != nil {
		s.logger.Error("Receipt extraction failed", "mime_type", mimeType, "size", len(data), "error", err)
		return nil, fmt.Errorf("receipt extraction failed: %w", err)
	}
	return receipt, nil
}
