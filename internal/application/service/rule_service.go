package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/pkg/utils"
	"github.com/shopspring/decimal"
)

// RuleInput is an admin's approval rule configuration
type RuleInput struct {
	IsManagerFirstApprover bool
	RuleType               entity.RuleType
	ThresholdValue         *decimal.Decimal
	SpecificApproverRole   entity.Role
}

// RuleService reads and configures a company's approval rule
type RuleService interface {
	// GetRule returns the company's rule, or the default (manager first, no
	// conditional approval) when none is configured
	GetRule(ctx context.Context, companyID int64) (*entity.ApprovalRuleConfig, error)

	// ConfigureRule replaces the company's rule. Only admins of the company may configure it.
	ConfigureRule(ctx context.Context, actorID, companyID int64, input RuleInput) (*entity.ApprovalRuleConfig, error)
}

type ruleServiceImpl struct {
	rules     port.RuleRepository
	directory port.Directory
	logger    Logger
}

// NewRuleService creates a new RuleService
func NewRuleService(rules port.RuleRepository, directory port.Directory, logger Logger) RuleService {
	if logger == nil {
		logger = nopLogger{}
	}
	return &ruleServiceImpl{
		rules:     rules,
		directory: directory,
		logger:    logger,
	}
}

func (s *ruleServiceImpl) GetRule(ctx context.Context, companyID int64) (*entity.ApprovalRuleConfig, error) {
	if err := s.requireCompany(ctx, companyID); err != nil {
		return nil, err
	}

	rule, err := s.rules.GetByCompanyID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load approval rule: %w", err)
	}
	if rule == nil {
		return &entity.ApprovalRuleConfig{
			CompanyID:              companyID,
			IsManagerFirstApprover: true,
			RuleType:               entity.RuleTypeNone,
		}, nil
	}
	return rule, nil
}

func (s *ruleServiceImpl) ConfigureRule(ctx context.Context, actorID, companyID int64, input RuleInput) (*entity.ApprovalRuleConfig, error) {
	actor, err := s.directory.GetUser(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if actor == nil {
		return nil, ErrUserNotFound
	}
	if err := s.requireCompany(ctx, companyID); err != nil {
		return nil, err
	}
	if actor.Role != entity.RoleAdmin || actor.CompanyID != companyID {
		return nil, ErrForbidden
	}

	rule, err := buildRule(companyID, input)
	if err != nil {
		return nil, err
	}

	if err := s.rules.Upsert(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to save approval rule: %w", err)
	}

	s.logger.Info("Approval rule configured",
		"company_id", companyID,
		"actor_id", actorID,
		"rule_type", string(rule.RuleType),
		"manager_first", rule.IsManagerFirstApprover,
	)
	return rule, nil
}

func (s *ruleServiceImpl) requireCompany(ctx context.Context, companyID int64) error {
	company, err := s.directory.GetCompany(ctx, companyID)
	if err != nil {
		return fmt.Errorf("failed to load company: %w", err)
	}
	if company == nil {
		return ErrCompanyNotFound
	}
	return nil
}

// buildRule validates the input against the rule type
func buildRule(companyID int64, input RuleInput) (*entity.ApprovalRuleConfig, error) {
	ruleType := entity.RuleType(strings.ToUpper(strings.TrimSpace(string(input.RuleType))))
	if ruleType == "" {
		ruleType = entity.RuleTypeNone
	}
	if !ruleType.IsValid() {
		return nil, fmt.Errorf("%w: unknown rule type %q", ErrValidation, input.RuleType)
	}

	rule := &entity.ApprovalRuleConfig{
		CompanyID:              companyID,
		IsManagerFirstApprover: input.IsManagerFirstApprover,
		RuleType:               ruleType,
	}

	if input.ThresholdValue != nil {
		if err := utils.ValidatePercentage(*input.ThresholdValue); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		rule.ThresholdValue = decimal.NewNullDecimal(*input.ThresholdValue)
	}
	if ruleType.UsesPercentage() && !rule.ThresholdValue.Valid {
		return nil, fmt.Errorf("%w: %s rule requires a threshold value", ErrValidation, ruleType)
	}

	role := entity.Role(strings.ToUpper(strings.TrimSpace(string(input.SpecificApproverRole))))
	if role != "" {
		if !role.IsValid() {
			return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, input.SpecificApproverRole)
		}
		rule.SpecificApproverRole = role
	}
	if ruleType.UsesSpecificApprover() && rule.SpecificApproverRole == "" {
		return nil, fmt.Errorf("%w: %s rule requires a specific approver role", ErrValidation, ruleType)
	}

	return rule, nil
}
