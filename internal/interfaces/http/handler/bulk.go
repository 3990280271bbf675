package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	appbulk "github.com/retailops/backend/internal/application/bulk"
	"github.com/retailops/backend/internal/interfaces/http/dto"
	"github.com/retailops/backend/internal/interfaces/http/middleware"
)

// BulkHandler exposes the bulk operation safety gate
type BulkHandler struct {
	BaseHandler
	gate *appbulk.Gate
}

// NewBulkHandler creates a new BulkHandler
func NewBulkHandler(gate *appbulk.Gate) *BulkHandler {
	return &BulkHandler{gate: gate}
}

// RegisterRoutes registers the bulk safety gate endpoints
func (h *BulkHandler) RegisterRoutes(rg *gin.RouterGroup) {
	bulk := rg.Group("/bulk")
	{
		bulk.POST("/assess", h.Assess)
		bulk.POST("/confirm", h.Confirm)
		bulk.GET("/audit", h.AuditTrail)
	}
}

// Assess evaluates a proposed bulk operation. Destructive operations and
// bulk operations at or above the threshold get a confirmation token.
func (h *BulkHandler) Assess(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identification required")
		return
	}

	var req dto.BulkAssessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	assessment, err := h.gate.Assess(c.Request.Context(), tenantID, req.Operation, req.RecordCount, req.Destructive)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, assessment)
}

// Confirm consumes a confirmation token for the named operation. The token
// is single use; expired, consumed or mismatched tokens are rejected and a
// fresh assessment is needed.
func (h *BulkHandler) Confirm(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identification required")
		return
	}

	var req dto.BulkConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	if err := h.gate.Confirm(c.Request.Context(), tenantID, req.Token, req.Operation); err != nil {
		if err == appbulk.ErrOperationMismatch {
			h.ErrorWithCode(c, dto.ErrCodeConfirmationInvalid, err.Error())
			return
		}
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"confirmed": true})
}

// AuditTrail returns the tenant's confirmed bulk operations, newest first
func (h *BulkHandler) AuditTrail(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identification required")
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			h.BadRequest(c, "Invalid limit")
			return
		}
		limit = parsed
	}

	entries, err := h.gate.AuditTrail(c.Request.Context(), tenantID, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]dto.AuditEntryResponse, 0, len(entries))
	for i := range entries {
		responses = append(responses, dto.NewAuditEntryResponse(&entries[i]))
	}
	h.Success(c, responses)
}
