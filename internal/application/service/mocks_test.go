package service

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/shopspring/decimal"
)

type mockEngine struct {
	initiateFunc func(ctx context.Context, claim *entity.Claim) ([]*entity.ApprovalStep, error)
	decideFunc   func(ctx context.Context, claimID, approverID int64, action, comment string) (*entity.Claim, error)
	assignFunc   func(ctx context.Context, claimID, approverID, actorID int64) (*entity.ApprovalStep, error)
	initiated    []*entity.Claim
}

func (m *mockEngine) InitiateWorkflow(ctx context.Context, claim *entity.Claim) ([]*entity.ApprovalStep, error) {
	m.initiated = append(m.initiated, claim)
	if m.initiateFunc != nil {
		return m.initiateFunc(ctx, claim)
	}
	claim.ID = 1
	return []*entity.ApprovalStep{{ClaimID: 1, ApproverID: 2, Sequence: 1, Status: entity.StepStatusPending}}, nil
}

func (m *mockEngine) RecordDecision(ctx context.Context, claimID, approverID int64, action, comment string) (*entity.Claim, error) {
	if m.decideFunc != nil {
		return m.decideFunc(ctx, claimID, approverID, action, comment)
	}
	return &entity.Claim{ID: claimID}, nil
}

func (m *mockEngine) AssignApprover(ctx context.Context, claimID, approverID, actorID int64) (*entity.ApprovalStep, error) {
	if m.assignFunc != nil {
		return m.assignFunc(ctx, claimID, approverID, actorID)
	}
	return &entity.ApprovalStep{ClaimID: claimID, ApproverID: approverID, Sequence: 1}, nil
}

type mockClaimRepo struct {
	getByIDFunc      func(ctx context.Context, id int64) (*entity.Claim, error)
	listAllFunc      func(ctx context.Context) ([]*entity.Claim, error)
	listCalls        []string
	listPendingForID int64
}

func (m *mockClaimRepo) Create(ctx context.Context, claim *entity.Claim) error { return nil }

func (m *mockClaimRepo) GetByID(ctx context.Context, id int64) (*entity.Claim, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockClaimRepo) UpdateStatus(ctx context.Context, id int64, status entity.ClaimStatus, updatedAt time.Time) error {
	return nil
}

func (m *mockClaimRepo) ListBySubmitter(ctx context.Context, submitterID int64) ([]*entity.Claim, error) {
	m.listCalls = append(m.listCalls, "submitter")
	return []*entity.Claim{{ID: 10, SubmitterID: submitterID}}, nil
}

func (m *mockClaimRepo) ListByManager(ctx context.Context, managerID int64) ([]*entity.Claim, error) {
	m.listCalls = append(m.listCalls, "manager")
	return []*entity.Claim{{ID: 11}}, nil
}

func (m *mockClaimRepo) ListAll(ctx context.Context) ([]*entity.Claim, error) {
	m.listCalls = append(m.listCalls, "all")
	if m.listAllFunc != nil {
		return m.listAllFunc(ctx)
	}
	return []*entity.Claim{{ID: 10}, {ID: 11}, {ID: 12}}, nil
}

func (m *mockClaimRepo) ListPendingForApprover(ctx context.Context, approverID int64) ([]*entity.Claim, error) {
	m.listPendingForID = approverID
	return []*entity.Claim{}, nil
}

func (m *mockClaimRepo) ListStalled(ctx context.Context) ([]*entity.Claim, error) {
	return nil, nil
}

type mockStepRepo struct {
	steps []*entity.ApprovalStep
}

func (m *mockStepRepo) CreateBatch(ctx context.Context, steps []*entity.ApprovalStep) error {
	return nil
}

func (m *mockStepRepo) GetByClaimID(ctx context.Context, claimID int64) ([]*entity.ApprovalStep, error) {
	return m.steps, nil
}

func (m *mockStepRepo) RecordDecision(ctx context.Context, step *entity.ApprovalStep) error {
	return nil
}

type mockHistoryRepo struct {
	entries []*entity.ClaimHistory
}

func (m *mockHistoryRepo) Create(ctx context.Context, h *entity.ClaimHistory) error {
	m.entries = append(m.entries, h)
	return nil
}

func (m *mockHistoryRepo) GetByClaimID(ctx context.Context, claimID int64) ([]*entity.ClaimHistory, error) {
	return m.entries, nil
}

type mockDirectory struct {
	users     map[int64]*entity.User
	companies map[int64]*entity.Company
}

func newMockDirectory() *mockDirectory {
	managerID := int64(2)
	return &mockDirectory{
		users: map[int64]*entity.User{
			1: {ID: 1, CompanyID: 1, Username: "ada", FirstName: "Ada", Role: entity.RoleAdmin, LarkOpenID: "ou_admin"},
			2: {ID: 2, CompanyID: 1, Username: "max", FirstName: "Max", LastName: "Hill", Role: entity.RoleManager, LarkOpenID: "ou_manager"},
			3: {ID: 3, CompanyID: 1, Username: "eve", FirstName: "Eve", Role: entity.RoleEmployee, ManagerID: &managerID, LarkOpenID: "ou_employee"},
			4: {ID: 4, CompanyID: 1, Username: "nolark", Role: entity.RoleEmployee},
			9: {ID: 9, CompanyID: 2, Username: "other-admin", Role: entity.RoleAdmin},
		},
		companies: map[int64]*entity.Company{
			1: {ID: 1, Name: "Acme", DefaultCurrency: "USD"},
			2: {ID: 2, Name: "Globex", DefaultCurrency: "EUR"},
		},
	}
}

func (m *mockDirectory) GetUser(ctx context.Context, userID int64) (*entity.User, error) {
	return m.users[userID], nil
}

func (m *mockDirectory) GetManager(ctx context.Context, userID int64) (*entity.User, error) {
	u := m.users[userID]
	if u == nil || u.ManagerID == nil {
		return nil, nil
	}
	return m.users[*u.ManagerID], nil
}

func (m *mockDirectory) GetCompanyAdmin(ctx context.Context, companyID int64) (*entity.User, error) {
	for _, u := range m.users {
		if u.CompanyID == companyID && u.Role == entity.RoleAdmin {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockDirectory) GetCompany(ctx context.Context, companyID int64) (*entity.Company, error) {
	return m.companies[companyID], nil
}

type mockConverter struct {
	convertFunc func(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
	calls       int
}

func (m *mockConverter) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	m.calls++
	if m.convertFunc != nil {
		return m.convertFunc(ctx, amount, from, to)
	}
	return amount.Round(2), nil
}

type mockExtractor struct {
	extractFunc func(ctx context.Context, data []byte, mimeType string) (*port.ReceiptData, error)
}

func (m *mockExtractor) Extract(ctx context.Context, data []byte, mimeType string) (*port.ReceiptData, error) {
	return m.extractFunc(ctx, data, mimeType)
}

type mockRuleRepo struct {
	rule     *entity.ApprovalRuleConfig
	upserted *entity.ApprovalRuleConfig
}

func (m *mockRuleRepo) GetByCompanyID(ctx context.Context, companyID int64) (*entity.ApprovalRuleConfig, error) {
	return m.rule, nil
}

func (m *mockRuleRepo) Upsert(ctx context.Context, rule *entity.ApprovalRuleConfig) error {
	rule.ID = 1
	m.upserted = rule
	return nil
}

type sentMessage struct {
	openID string
	text   string
}

type mockMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (m *mockMessenger) SendText(ctx context.Context, openID string, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMessage{openID: openID, text: text})
	return nil
}

type mockExporter struct {
	exported []*entity.Claim
	err      error
}

func (m *mockExporter) Export(ctx context.Context, w io.Writer, claims []*entity.Claim) error {
	if m.err != nil {
		return m.err
	}
	m.exported = claims
	_, err := w.Write([]byte("xlsx"))
	return err
}
