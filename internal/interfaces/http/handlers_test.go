package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/application/service"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	domainwf "github.com/garyjia/expense-approval/internal/domain/workflow"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type stubClaimService struct {
	submitFunc  func(ctx context.Context, in service.SubmitClaimInput) (*service.SubmitResult, error)
	decideFunc  func(ctx context.Context, claimID, approverID int64, action, comment string) (*entity.Claim, error)
	detailFunc  func(ctx context.Context, claimID int64) (*service.ClaimDetail, error)
	assignFunc  func(ctx context.Context, claimID, approverID, actorID int64) (*entity.ApprovalStep, error)
	extractFunc func(ctx context.Context, data []byte, mimeType string) (*port.ReceiptData, error)
	listed      []string
	listedFor   int64
}

func sampleClaim(id int64) *entity.Claim {
	return &entity.Claim{
		ID:                      id,
		SubmitterID:             3,
		CompanyID:               1,
		AmountClaimed:           decimal.RequireFromString("250"),
		CurrencyClaimed:         "EUR",
		AmountInCompanyCurrency: decimal.RequireFromString("271.05"),
		Category:                "Travel",
		ExpenseDate:             time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
		Status:                  entity.ClaimStatusPending,
	}
}

func (s *stubClaimService) SubmitClaim(ctx context.Context, in service.SubmitClaimInput) (*service.SubmitResult, error) {
	return s.submitFunc(ctx, in)
}

func (s *stubClaimService) ListPendingForApprover(ctx context.Context, approverID int64) ([]*entity.Claim, error) {
	s.listed, s.listedFor = append(s.listed, "pending"), approverID
	return []*entity.Claim{sampleClaim(1)}, nil
}

func (s *stubClaimService) Decide(ctx context.Context, claimID, approverID int64, action, comment string) (*entity.Claim, error) {
	return s.decideFunc(ctx, claimID, approverID, action, comment)
}

func (s *stubClaimService) ListMyClaims(ctx context.Context, submitterID int64) ([]*entity.Claim, error) {
	s.listed, s.listedFor = append(s.listed, "mine"), submitterID
	return nil, nil
}

func (s *stubClaimService) ListTeamClaims(ctx context.Context, managerID int64) ([]*entity.Claim, error) {
	s.listed, s.listedFor = append(s.listed, "team"), managerID
	return []*entity.Claim{sampleClaim(1), sampleClaim(2)}, nil
}

func (s *stubClaimService) ListAllClaims(ctx context.Context) ([]*entity.Claim, error) {
	s.listed = append(s.listed, "all")
	return nil, nil
}

func (s *stubClaimService) ListClaimsForUser(ctx context.Context, userID int64) ([]*entity.Claim, error) {
	s.listed, s.listedFor = append(s.listed, "scoped"), userID
	if userID == 404 {
		return nil, service.ErrUserNotFound
	}
	return []*entity.Claim{sampleClaim(1)}, nil
}

func (s *stubClaimService) GetClaimDetail(ctx context.Context, claimID int64) (*service.ClaimDetail, error) {
	return s.detailFunc(ctx, claimID)
}

func (s *stubClaimService) AssignApprover(ctx context.Context, claimID, approverID, actorID int64) (*entity.ApprovalStep, error) {
	return s.assignFunc(ctx, claimID, approverID, actorID)
}

func (s *stubClaimService) ExtractReceipt(ctx context.Context, data []byte, mimeType string) (*port.ReceiptData, error) {
	return s.extractFunc(ctx, data, mimeType)
}

type stubRuleService struct {
	configured service.RuleInput
	actorID    int64
}

func (s *stubRuleService) GetRule(ctx context.Context, companyID int64) (*entity.ApprovalRuleConfig, error) {
	if companyID != 1 {
		return nil, service.ErrCompanyNotFound
	}
	return &entity.ApprovalRuleConfig{CompanyID: 1, IsManagerFirstApprover: true, RuleType: entity.RuleTypeNone}, nil
}

func (s *stubRuleService) ConfigureRule(ctx context.Context, actorID, companyID int64, input service.RuleInput) (*entity.ApprovalRuleConfig, error) {
	s.configured, s.actorID = input, actorID
	if actorID != 1 {
		return nil, service.ErrForbidden
	}
	return &entity.ApprovalRuleConfig{CompanyID: companyID, RuleType: input.RuleType, IsManagerFirstApprover: input.IsManagerFirstApprover}, nil
}

type stubReportService struct {
	err error
}

func (s *stubReportService) ExportClaims(ctx context.Context, w io.Writer) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	_, err := w.Write([]byte("PK-xlsx"))
	return 2, err
}

type testAPI struct {
	claims  *stubClaimService
	rules   *stubRuleService
	reports *stubReportService
	server  *Server
}

func newTestAPI() *testAPI {
	a := &testAPI{
		claims:  &stubClaimService{},
		rules:   &stubRuleService{},
		reports: &stubReportService{},
	}
	a.server = NewServer(DefaultServerConfig(), Services{Claims: a.claims, Rules: a.rules, Reports: a.reports}, nopLogger{})
	return a
}

func (a *testAPI) do(method, path string, userID int64, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set(UserIDHeader, fmt.Sprint(userID))
	}
	rec := httptest.NewRecorder()
	a.server.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealthCheck(t *testing.T) {
	rec := newTestAPI().do(http.MethodGet, "/health", 0, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["success"])
}

func TestRequireUser(t *testing.T) {
	a := newTestAPI()

	rec := a.do(http.MethodGet, "/api/claims", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/claims", nil)
	req.Header.Set(UserIDHeader, "abc")
	rec = httptest.NewRecorder()
	a.server.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, a.claims.listed)
}

func TestSubmitClaim(t *testing.T) {
	a := newTestAPI()
	a.claims.submitFunc = func(ctx context.Context, in service.SubmitClaimInput) (*service.SubmitResult, error) {
		assert.Equal(t, int64(3), in.SubmitterID)
		assert.Equal(t, "250.5", in.AmountClaimed.String())
		assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), in.Date)
		return &service.SubmitResult{Claim: sampleClaim(7), Stalled: true}, nil
	}

	rec := a.do(http.MethodPost, "/api/claims", 3, map[string]interface{}{
		"amount_claimed":   "250.50",
		"currency_claimed": "EUR",
		"category":         "Travel",
		"date":             "2026-03-04",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	data := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, true, data["stalled"])
	assert.Equal(t, []interface{}{}, data["steps"])
	claim := data["claim"].(map[string]interface{})
	assert.Equal(t, "271.05", claim["amount_in_company_currency"])
	assert.Equal(t, "2026-03-04", claim["date"])
}

func TestSubmitClaim_BadRequests(t *testing.T) {
	a := newTestAPI()
	a.claims.submitFunc = func(ctx context.Context, in service.SubmitClaimInput) (*service.SubmitResult, error) {
		return nil, fmt.Errorf("%w: amount must be positive", service.ErrValidation)
	}

	rec := a.do(http.MethodPost, "/api/claims", 3, map[string]interface{}{"category": "Travel"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/api/claims", 3, map[string]interface{}{
		"amount_claimed": 10, "currency_claimed": "EUR", "category": "Travel", "date": "04/03/2026",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/api/claims", 3, map[string]interface{}{
		"amount_claimed": -1, "currency_claimed": "EUR", "category": "Travel", "date": "2026-03-04",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "amount must be positive")
}

func TestSubmitClaim_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("%w: rate unavailable", port.ErrConversionFailed), http.StatusBadGateway},
		{service.ErrUserNotFound, http.StatusNotFound},
		{fmt.Errorf("failed to create claim: %w", assert.AnError), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		a := newTestAPI()
		a.claims.submitFunc = func(ctx context.Context, in service.SubmitClaimInput) (*service.SubmitResult, error) {
			return nil, tt.err
		}
		rec := a.do(http.MethodPost, "/api/claims", 3, map[string]interface{}{
			"amount_claimed": 10, "currency_claimed": "EUR", "category": "Travel", "date": "2026-03-04",
		})
		assert.Equal(t, tt.code, rec.Code, tt.err.Error())
	}
}

func TestListEndpoints(t *testing.T) {
	a := newTestAPI()

	for _, path := range []string{"/api/claims", "/api/claims/mine", "/api/claims/team", "/api/claims/pending"} {
		rec := a.do(http.MethodGet, path, 2, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.IsType(t, []interface{}{}, decode(t, rec)["data"], path)
	}
	assert.Equal(t, []string{"scoped", "mine", "team", "pending"}, a.claims.listed)
	assert.Equal(t, int64(2), a.claims.listedFor)

	rec := a.do(http.MethodGet, "/api/claims", 404, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetClaim(t *testing.T) {
	a := newTestAPI()
	a.claims.detailFunc = func(ctx context.Context, claimID int64) (*service.ClaimDetail, error) {
		if claimID != 7 {
			return nil, domainwf.ErrClaimNotFound
		}
		return &service.ClaimDetail{
			Claim:   sampleClaim(7),
			Steps:   []*entity.ApprovalStep{{ClaimID: 7, Sequence: 1, Status: entity.StepStatusPending}},
			History: []*entity.ClaimHistory{{ClaimID: 7, ActionType: entity.ActionSubmit}},
		}, nil
	}

	rec := a.do(http.MethodGet, "/api/claims/7", 3, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]interface{})
	assert.Len(t, data["steps"], 1)
	assert.Len(t, data["history"], 1)

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/claims/8", 3, nil).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/api/claims/abc", 3, nil).Code)
}

func TestDecideClaim(t *testing.T) {
	a := newTestAPI()
	a.claims.decideFunc = func(ctx context.Context, claimID, approverID int64, action, comment string) (*entity.Claim, error) {
		switch action {
		case "APPROVE":
			assert.Equal(t, int64(2), approverID)
			assert.Equal(t, "looks fine", comment)
			c := sampleClaim(claimID)
			c.Status = entity.ClaimStatusApproved
			return c, nil
		case "HOLD":
			return nil, domainwf.ErrInvalidAction
		default:
			return nil, domainwf.ErrNotAwaitingApproval
		}
	}

	rec := a.do(http.MethodPut, "/api/claims/7/decision", 2, map[string]string{"action": "APPROVE", "comments": "looks fine"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "APPROVED", decode(t, rec)["data"].(map[string]interface{})["status"])

	rec = a.do(http.MethodPut, "/api/claims/7/decision", 2, map[string]string{"action": "HOLD"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPut, "/api/claims/7/decision", 2, map[string]string{"action": "REJECT"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domainwf.ErrNotAwaitingApproval.Error(), decode(t, rec)["error"])

	rec = a.do(http.MethodPut, "/api/claims/7/decision", 2, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssignApprover(t *testing.T) {
	a := newTestAPI()
	a.claims.assignFunc = func(ctx context.Context, claimID, approverID, actorID int64) (*entity.ApprovalStep, error) {
		switch {
		case actorID != 1:
			// employees and admins of other companies
			return nil, service.ErrForbidden
		case claimID == 8:
			return nil, domainwf.ErrNotStalled
		}
		return &entity.ApprovalStep{ClaimID: claimID, ApproverID: approverID, Sequence: 1}, nil
	}

	rec := a.do(http.MethodPost, "/api/claims/7/assign", 1, map[string]int64{"approver_id": 2})
	assert.Equal(t, http.StatusCreated, rec.Code)

	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/api/claims/7/assign", 3, map[string]int64{"approver_id": 2}).Code)
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/api/claims/7/assign", 9, map[string]int64{"approver_id": 2}).Code)
	assert.Equal(t, http.StatusConflict, a.do(http.MethodPost, "/api/claims/8/assign", 1, map[string]int64{"approver_id": 2}).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/claims/7/assign", 1, map[string]int64{}).Code)
}

func TestExportClaims(t *testing.T) {
	a := newTestAPI()

	rec := a.do(http.MethodGet, "/api/claims/export", 1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	assert.Equal(t, "2", rec.Header().Get("X-Row-Count"))
	assert.Equal(t, "PK-xlsx", rec.Body.String())

	a.reports.err = assert.AnError
	assert.Equal(t, http.StatusInternalServerError, a.do(http.MethodGet, "/api/claims/export", 1, nil).Code)
}

func TestExtractReceipt(t *testing.T) {
	a := newTestAPI()
	a.claims.extractFunc = func(ctx context.Context, data []byte, mimeType string) (*port.ReceiptData, error) {
		assert.Equal(t, "receipt-bytes", string(data))
		return &port.ReceiptData{AmountClaimed: decimal.RequireFromString("42.5"), CurrencyClaimed: "EUR"}, nil
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "receipt.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("receipt-bytes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/receipts/extract", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(UserIDHeader, "3")
	rec := httptest.NewRecorder()
	a.server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "EUR", decode(t, rec)["data"].(map[string]interface{})["currency_claimed"])

	req = httptest.NewRequest(http.MethodPost, "/api/receipts/extract", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(UserIDHeader, "3")
	rec = httptest.NewRecorder()
	a.server.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExtractReceipt_Unavailable(t *testing.T) {
	a := newTestAPI()
	a.claims.extractFunc = func(ctx context.Context, data []byte, mimeType string) (*port.ReceiptData, error) {
		return nil, port.ErrExtractorUnavailable
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("file", "receipt.pdf")
	_, _ = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/receipts/extract", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(UserIDHeader, "3")
	rec := httptest.NewRecorder()
	a.server.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestApprovalRuleEndpoints(t *testing.T) {
	a := newTestAPI()

	rec := a.do(http.MethodGet, "/api/companies/1/approval-rule", 3, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "NONE", decode(t, rec)["data"].(map[string]interface{})["rule_type"])
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/companies/2/approval-rule", 3, nil).Code)

	rec = a.do(http.MethodPut, "/api/companies/1/approval-rule", 1, map[string]interface{}{
		"rule_type":       "PERCENTAGE",
		"threshold_value": 60,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, a.rules.configured.IsManagerFirstApprover)
	assert.Equal(t, "60", a.rules.configured.ThresholdValue.String())

	rec = a.do(http.MethodPut, "/api/companies/1/approval-rule", 1, map[string]interface{}{
		"rule_type":                 "NONE",
		"is_manager_first_approver": false,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, a.rules.configured.IsManagerFirstApprover)

	rec = a.do(http.MethodPut, "/api/companies/1/approval-rule", 2, map[string]interface{}{"rule_type": "NONE"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
