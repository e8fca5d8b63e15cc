package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/pkg/utils"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Fixture is the YAML layout of a directory seed file
type Fixture struct {
	Companies []CompanyFixture `yaml:"companies"`
}

// CompanyFixture describes one company with its users and approval rule
type CompanyFixture struct {
	Name            string        `yaml:"name"`
	DefaultCurrency string        `yaml:"default_currency"`
	Rule            *RuleFixture  `yaml:"approval_rule"`
	Users           []UserFixture `yaml:"users"`
}

// RuleFixture mirrors the approval rule configuration
type RuleFixture struct {
	ManagerFirst *bool  `yaml:"manager_first"`
	Type         string `yaml:"type"`
	Threshold    string `yaml:"threshold"`
	SpecificRole string `yaml:"specific_role"`
}

// UserFixture describes a user. Manager refers to the username of a user
// listed earlier in the same company.
type UserFixture struct {
	Username   string `yaml:"username"`
	FirstName  string `yaml:"first_name"`
	LastName   string `yaml:"last_name"`
	Email      string `yaml:"email"`
	Role       string `yaml:"role"`
	Manager    string `yaml:"manager"`
	LarkOpenID string `yaml:"lark_open_id"`
}

// DirectoryWriter is the subset of the directory repository the seeder needs
type DirectoryWriter interface {
	CreateCompany(ctx context.Context, company *entity.Company) error
	CreateUser(ctx context.Context, user *entity.User) error
}

// SeedResult counts what was inserted
type SeedResult struct {
	Companies int
	Users     int
	Rules     int
}

// LoadFixture reads and parses a seed file
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture parses seed YAML
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fixture: %w", err)
	}
	if len(f.Companies) == 0 {
		return nil, fmt.Errorf("fixture has no companies")
	}
	return &f, nil
}

// Seed inserts the fixture in a single transaction
func Seed(ctx context.Context, tx port.TransactionManager, dir DirectoryWriter, rules port.RuleRepository, f *Fixture) (*SeedResult, error) {
	result := &SeedResult{}

	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		*result = SeedResult{}
		for _, cf := range f.Companies {
			if err := seedCompany(ctx, dir, rules, cf, result); err != nil {
				return fmt.Errorf("company %q: %w", cf.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func seedCompany(ctx context.Context, dir DirectoryWriter, rules port.RuleRepository, cf CompanyFixture, result *SeedResult) error {
	currency := utils.NormalizeCurrencyCode(cf.DefaultCurrency)
	if err := utils.ValidateCurrencyCode(currency); err != nil {
		return err
	}

	company := &entity.Company{Name: cf.Name, DefaultCurrency: currency}
	if err := dir.CreateCompany(ctx, company); err != nil {
		return err
	}
	result.Companies++

	ids := make(map[string]int64, len(cf.Users))
	for _, uf := range cf.Users {
		role := entity.Role(strings.ToUpper(uf.Role))
		if !role.IsValid() {
			return fmt.Errorf("user %q: invalid role %q", uf.Username, uf.Role)
		}

		user := &entity.User{
			CompanyID:  company.ID,
			Username:   uf.Username,
			FirstName:  uf.FirstName,
			LastName:   uf.LastName,
			Email:      uf.Email,
			Role:       role,
			LarkOpenID: uf.LarkOpenID,
		}
		if uf.Manager != "" {
			managerID, ok := ids[uf.Manager]
			if !ok {
				return fmt.Errorf("user %q: manager %q must be listed before the user", uf.Username, uf.Manager)
			}
			user.ManagerID = &managerID
		}

		if err := dir.CreateUser(ctx, user); err != nil {
			return err
		}
		ids[uf.Username] = user.ID
		result.Users++
	}

	if cf.Rule != nil {
		rule, err := buildRule(company.ID, cf.Rule)
		if err != nil {
			return err
		}
		if err := rules.Upsert(ctx, rule); err != nil {
			return err
		}
		result.Rules++
	}

	return nil
}

func buildRule(companyID int64, rf *RuleFixture) (*entity.ApprovalRuleConfig, error) {
	rule := &entity.ApprovalRuleConfig{
		CompanyID:              companyID,
		IsManagerFirstApprover: rf.ManagerFirst == nil || *rf.ManagerFirst,
		RuleType:               entity.RuleType(strings.ToUpper(rf.Type)),
		SpecificApproverRole:   entity.Role(strings.ToUpper(rf.SpecificRole)),
	}
	if rule.RuleType == "" {
		rule.RuleType = entity.RuleTypeNone
	}
	if !rule.RuleType.IsValid() {
		return nil, fmt.Errorf("invalid rule type %q", rf.Type)
	}
	if rule.SpecificApproverRole != "" && !rule.SpecificApproverRole.IsValid() {
		return nil, fmt.Errorf("invalid specific role %q", rf.SpecificRole)
	}

	if rf.Threshold != "" {
		threshold, err := decimal.NewFromString(rf.Threshold)
		if err != nil {
			return nil, fmt.Errorf("invalid threshold %q: %w", rf.Threshold, err)
		}
		if err := utils.ValidatePercentage(threshold); err != nil {
			return nil, err
		}
		rule.ThresholdValue = decimal.NewNullDecimal(threshold)
	}

	return rule, nil
}
