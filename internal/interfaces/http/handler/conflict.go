package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appsync "github.com/retailops/backend/internal/application/sync"
	"github.com/retailops/backend/internal/domain/sync"
	"github.com/retailops/backend/internal/interfaces/http/dto"
	"github.com/retailops/backend/internal/interfaces/http/middleware"
)

// ConflictHandler exposes sync conflict review endpoints
type ConflictHandler struct {
	BaseHandler
	service *appsync.ConflictService
}

// NewConflictHandler creates a new ConflictHandler
func NewConflictHandler(service *appsync.ConflictService) *ConflictHandler {
	return &ConflictHandler{service: service}
}

// RegisterRoutes registers the conflict endpoints
func (h *ConflictHandler) RegisterRoutes(rg *gin.RouterGroup) {
	conflicts := rg.Group("/sync/conflicts")
	{
		conflicts.GET("", h.ListPending)
		conflicts.GET("/:id", h.GetConflict)
		conflicts.POST("/:id/resolve", h.ResolveConflict)
	}
}

// ListPending returns the tenant's pending conflicts, oldest first
func (h *ConflictHandler) ListPending(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identification required")
		return
	}

	conflicts, err := h.service.ListPending(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]dto.ConflictResponse, 0, len(conflicts))
	for i := range conflicts {
		responses = append(responses, dto.NewConflictResponse(&conflicts[i]))
	}
	h.Success(c, responses)
}

// GetConflict returns a conflict by id
func (h *ConflictHandler) GetConflict(c *gin.Context) {
	tenantID, conflictID, ok := h.tenantAndConflictID(c)
	if !ok {
		return
	}

	conflict, err := h.service.GetConflict(c.Request.Context(), tenantID, conflictID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewConflictResponse(conflict))
}

// ResolveConflict settles a pending conflict. A conflict resolves exactly
// once; resolving again is a 409.
func (h *ConflictHandler) ResolveConflict(c *gin.Context) {
	tenantID, conflictID, ok := h.tenantAndConflictID(c)
	if !ok {
		return
	}

	var req dto.ResolveConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	conflict, err := h.service.Resolve(c.Request.Context(), tenantID, conflictID, sync.ConflictResolution(req.Resolution))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewConflictResponse(conflict))
}

// tenantAndConflictID extracts the tenant and the :id path parameter
func (h *ConflictHandler) tenantAndConflictID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identification required")
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid conflict ID")
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, id, true
}
