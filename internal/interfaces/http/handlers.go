package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/application/service"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	domainwf "github.com/garyjia/expense-approval/internal/domain/workflow"
)

const (
	// UserIDHeader carries the caller's user ID
	UserIDHeader = "X-User-ID"

	userIDKey = "user_id"
	xlsxType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	claims         service.ClaimService
	rules          service.RuleService
	reports        service.ReportService
	maxUploadBytes int64
	logger         Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, maxUploadBytes int64, logger Logger) *Handlers {
	return &Handlers{
		claims:         services.Claims,
		rules:          services.Rules,
		reports:        services.Reports,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// SubmitClaimRequest is the body of POST /api/claims
type SubmitClaimRequest struct {
	Amount      decimal.Decimal `json:"amount_claimed"`
	Currency    string          `json:"currency_claimed" binding:"required"`
	Category    string          `json:"category" binding:"required"`
	Description string          `json:"description"`
	Date        string          `json:"date" binding:"required"`
}

// DecisionRequest is the body of PUT /api/claims/:id/decision
type DecisionRequest struct {
	Action   string `json:"action" binding:"required"`
	Comments string `json:"comments"`
}

// AssignRequest is the body of POST /api/claims/:id/assign
type AssignRequest struct {
	ApproverID int64 `json:"approver_id" binding:"required"`
}

// RuleRequest is the body of PUT /api/companies/:id/approval-rule
type RuleRequest struct {
	IsManagerFirstApprover *bool            `json:"is_manager_first_approver"`
	RuleType               string           `json:"rule_type"`
	ThresholdValue         *decimal.Decimal `json:"threshold_value"`
	SpecificApproverRole   string           `json:"specific_approver_role"`
}

// ClaimResponse represents a claim in API responses
type ClaimResponse struct {
	ID                      int64  `json:"id"`
	SubmitterID             int64  `json:"submitter_id"`
	CompanyID               int64  `json:"company_id"`
	AmountClaimed           string `json:"amount_claimed"`
	CurrencyClaimed         string `json:"currency_claimed"`
	AmountInCompanyCurrency string `json:"amount_in_company_currency"`
	Category                string `json:"category"`
	Description             string `json:"description,omitempty"`
	Date                    string `json:"date"`
	Status                  string `json:"status"`
	CreatedAt               string `json:"created_at"`
	UpdatedAt               string `json:"updated_at"`
}

// SubmitResponse is returned by POST /api/claims
type SubmitResponse struct {
	Claim   ClaimResponse          `json:"claim"`
	Steps   []*entity.ApprovalStep `json:"steps"`
	Stalled bool                   `json:"stalled"`
}

// ClaimDetailResponse is returned by GET /api/claims/:id
type ClaimDetailResponse struct {
	Claim   ClaimResponse          `json:"claim"`
	Steps   []*entity.ApprovalStep `json:"steps"`
	History []*entity.ClaimHistory `json:"history"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// RequireUser reads the caller's identity from the X-User-ID header
func (h *Handlers) RequireUser(c *gin.Context) {
	raw := c.GetHeader(UserIDHeader)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
			Success: false,
			Error:   "missing or invalid " + UserIDHeader + " header",
		})
		return
	}
	c.Set(userIDKey, id)
	c.Next()
}

// SubmitClaim handles POST /api/claims
func (h *Handlers) SubmitClaim(c *gin.Context) {
	var req SubmitClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		h.badRequest(c, "date must be formatted as YYYY-MM-DD", err)
		return
	}

	result, err := h.claims.SubmitClaim(c.Request.Context(), service.SubmitClaimInput{
		SubmitterID:     callerID(c),
		AmountClaimed:   req.Amount,
		CurrencyClaimed: req.Currency,
		Category:        req.Category,
		Description:     req.Description,
		Date:            date,
	})
	if err != nil {
		h.writeError(c, "Failed to submit claim", err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data: SubmitResponse{
			Claim:   toClaimResponse(result.Claim),
			Steps:   nonNilSteps(result.Steps),
			Stalled: result.Stalled,
		},
	})
}

// ListClaims handles GET /api/claims
func (h *Handlers) ListClaims(c *gin.Context) {
	claims, err := h.claims.ListClaimsForUser(c.Request.Context(), callerID(c))
	h.writeClaims(c, claims, err)
}

// ListMyClaims handles GET /api/claims/mine
func (h *Handlers) ListMyClaims(c *gin.Context) {
	claims, err := h.claims.ListMyClaims(c.Request.Context(), callerID(c))
	h.writeClaims(c, claims, err)
}

// ListTeamClaims handles GET /api/claims/team
func (h *Handlers) ListTeamClaims(c *gin.Context) {
	claims, err := h.claims.ListTeamClaims(c.Request.Context(), callerID(c))
	h.writeClaims(c, claims, err)
}

// ListPendingClaims handles GET /api/claims/pending
func (h *Handlers) ListPendingClaims(c *gin.Context) {
	claims, err := h.claims.ListPendingForApprover(c.Request.Context(), callerID(c))
	h.writeClaims(c, claims, err)
}

// GetClaim handles GET /api/claims/:id
func (h *Handlers) GetClaim(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	detail, err := h.claims.GetClaimDetail(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "Failed to get claim", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: ClaimDetailResponse{
			Claim:   toClaimResponse(detail.Claim),
			Steps:   nonNilSteps(detail.Steps),
			History: detail.History,
		},
	})
}

// DecideClaim handles PUT /api/claims/:id/decision
func (h *Handlers) DecideClaim(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	claim, err := h.claims.Decide(c.Request.Context(), id, callerID(c), req.Action, req.Comments)
	if err != nil {
		h.writeError(c, "Failed to record decision", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: toClaimResponse(claim)})
}

// AssignApprover handles POST /api/claims/:id/assign
func (h *Handlers) AssignApprover(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	step, err := h.claims.AssignApprover(c.Request.Context(), id, req.ApproverID, callerID(c))
	if err != nil {
		h.writeError(c, "Failed to assign approver", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: step})
}

// ExportClaims handles GET /api/claims/export
func (h *Handlers) ExportClaims(c *gin.Context) {
	var buf bytes.Buffer
	rows, err := h.reports.ExportClaims(c.Request.Context(), &buf)
	if err != nil {
		h.writeError(c, "Failed to export claims", err)
		return
	}

	filename := fmt.Sprintf("claims-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("X-Row-Count", strconv.Itoa(rows))
	c.Data(http.StatusOK, xlsxType, buf.Bytes())
}

// ExtractReceipt handles POST /api/receipts/extract (multipart field "file")
func (h *Handlers) ExtractReceipt(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.badRequest(c, "multipart field \"file\" is required", err)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.badRequest(c, "failed to read upload", err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.badRequest(c, "failed to read upload", err)
		return
	}

	receipt, err := h.claims.ExtractReceipt(c.Request.Context(), data, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		h.writeError(c, "Failed to extract receipt", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: receipt})
}

// GetApprovalRule handles GET /api/companies/:id/approval-rule
func (h *Handlers) GetApprovalRule(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	rule, err := h.rules.GetRule(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "Failed to get approval rule", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: rule})
}

// ConfigureApprovalRule handles PUT /api/companies/:id/approval-rule
func (h *Handlers) ConfigureApprovalRule(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	input := service.RuleInput{
		IsManagerFirstApprover: true,
		RuleType:               entity.RuleType(req.RuleType),
		ThresholdValue:         req.ThresholdValue,
		SpecificApproverRole:   entity.Role(req.SpecificApproverRole),
	}
	if req.IsManagerFirstApprover != nil {
		input.IsManagerFirstApprover = *req.IsManagerFirstApprover
	}

	rule, err := h.rules.ConfigureRule(c.Request.Context(), callerID(c), id, input)
	if err != nil {
		h.writeError(c, "Failed to configure approval rule", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: rule})
}

func (h *Handlers) writeClaims(c *gin.Context, claims []*entity.Claim, err error) {
	if err != nil {
		h.writeError(c, "Failed to list claims", err)
		return
	}

	resp := make([]ClaimResponse, 0, len(claims))
	for _, claim := range claims {
		resp = append(resp, toClaimResponse(claim))
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: resp})
}

func (h *Handlers) pathID(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.badRequest(c, "invalid ID", err)
		return 0, false
	}
	return id, true
}

func (h *Handlers) badRequest(c *gin.Context, msg string, err error) {
	h.logger.Warn("Bad request", "path", c.FullPath(), "message", msg, "error", err)
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// writeError maps service and domain errors to HTTP status codes
func (h *Handlers) writeError(c *gin.Context, logMsg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(logMsg, "path", c.FullPath(), "error", err)
	} else {
		h.logger.Info(logMsg, "path", c.FullPath(), "status", status, "error", err)
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	c.JSON(status, Response{Success: false, Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, domainwf.ErrInvalidAction),
		errors.Is(err, domainwf.ErrNotAwaitingApproval),
		errors.Is(err, domainwf.ErrInvalidApprover):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domainwf.ErrClaimNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrCompanyNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainwf.ErrNotStalled):
		return http.StatusConflict
	case errors.Is(err, port.ErrConversionFailed):
		return http.StatusBadGateway
	case errors.Is(err, port.ErrExtractorUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func callerID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}

func nonNilSteps(steps []*entity.ApprovalStep) []*entity.ApprovalStep {
	if steps == nil {
		return []*entity.ApprovalStep{}
	}
	return steps
}

func toClaimResponse(claim *entity.Claim) ClaimResponse {
	return ClaimResponse{
		ID:                      claim.ID,
		SubmitterID:             claim.SubmitterID,
		CompanyID:               claim.CompanyID,
		AmountClaimed:           claim.AmountClaimed.StringFixed(2),
		CurrencyClaimed:         claim.CurrencyClaimed,
		AmountInCompanyCurrency: claim.AmountInCompanyCurrency.StringFixed(2),
		Category:                claim.Category,
		Description:             claim.Description,
		Date:                    claim.ExpenseDate.Format("2006-01-02"),
		Status:                  claim.Status.String(),
		CreatedAt:               claim.CreatedAt.Format(time.RFC3339),
		UpdatedAt:               claim.UpdatedAt.Format(time.RFC3339),
	}
}
