package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appmapping "github.com/retailops/backend/internal/application/mapping"
	"github.com/retailops/backend/internal/domain/mapping"
	"github.com/retailops/backend/internal/domain/sync"
	"github.com/retailops/backend/internal/interfaces/http/dto"
	"github.com/retailops/backend/internal/interfaces/http/middleware"
)

// MappingHandler exposes field mapping configuration endpoints
type MappingHandler struct {
	BaseHandler
	service *appmapping.Service
}

// NewMappingHandler creates a new MappingHandler
func NewMappingHandler(service *appmapping.Service) *MappingHandler {
	return &MappingHandler{service: service}
}

// RegisterRoutes registers the mapping endpoints
func (h *MappingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	mappings := rg.Group("/mappings")
	{
		mappings.POST("", h.CreateMapping)
		mappings.GET("", h.ListMappings)
		mappings.GET("/:id", h.GetMapping)
		mappings.POST("/:id/activate", h.ActivateMapping)
		mappings.POST("/:id/deactivate", h.DeactivateMapping)
		mappings.DELETE("/:id", h.DeleteMapping)
	}
}

// CreateMapping creates a new, inactive field mapping. Validation defects
// are returned with the defect list; nothing is saved.
func (h *MappingHandler) CreateMapping(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identification required")
		return
	}

	var req dto.CreateMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	route := sync.Route{
		Source: sync.Platform(req.SourcePlatform),
		Target: sync.Platform(req.TargetPlatform),
	}
	if err := route.Validate(); err != nil {
		h.ErrorWithCode(c, dto.ErrCodeInvalidInput, err.Error())
		return
	}
	entityType := sync.EntityType(req.EntityType)
	if !entityType.IsValid() {
		h.ErrorWithCode(c, dto.ErrCodeInvalidInput, "unknown entity type")
		return
	}

	m, verrs, err := h.service.CreateMapping(c.Request.Context(), tenantID, req.Name, route, entityType, req.ToFieldMaps(), req.ToTransformations())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if len(verrs) > 0 {
		h.mappingInvalid(c, verrs)
		return
	}

	h.Created(c, dto.NewMappingResponse(m))
}

// ListMappings returns all mappings for the tenant
func (h *MappingHandler) ListMappings(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identification required")
		return
	}

	mappings, err := h.service.ListMappings(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]dto.MappingResponse, 0, len(mappings))
	for i := range mappings {
		responses = append(responses, dto.NewMappingResponse(&mappings[i]))
	}
	h.Success(c, responses)
}

// GetMapping returns a mapping by id
func (h *MappingHandler) GetMapping(c *gin.Context) {
	tenantID, mappingID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	m, err := h.service.GetMapping(c.Request.Context(), tenantID, mappingID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewMappingResponse(m))
}

// ActivateMapping activates a mapping after re-validating it. Activation
// fails while a different active mapping exists for the same scope.
func (h *MappingHandler) ActivateMapping(c *gin.Context) {
	tenantID, mappingID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	verrs, err := h.service.ActivateMapping(c.Request.Context(), tenantID, mappingID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if len(verrs) > 0 {
		h.mappingInvalid(c, verrs)
		return
	}
	h.NoContent(c)
}

// DeactivateMapping deactivates a mapping
func (h *MappingHandler) DeactivateMapping(c *gin.Context) {
	tenantID, mappingID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	if err := h.service.DeactivateMapping(c.Request.Context(), tenantID, mappingID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// DeleteMapping removes a mapping
func (h *MappingHandler) DeleteMapping(c *gin.Context) {
	tenantID, mappingID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteMapping(c.Request.Context(), tenantID, mappingID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// tenantAndID extracts the tenant and the :id path parameter
func (h *MappingHandler) tenantAndID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identification required")
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid mapping ID")
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, id, true
}

// mappingInvalid returns mapping validation defects as response details
func (h *MappingHandler) mappingInvalid(c *gin.Context, verrs []mapping.ValidationError) {
	details := make([]dto.ValidationDetail, 0, len(verrs))
	for _, v := range verrs {
		details = append(details, dto.ValidationDetail{Field: v.Field, Message: v.Message})
	}
	requestID := getRequestID(c)
	c.JSON(dto.GetHTTPStatus(dto.ErrCodeMappingInvalid), dto.Response{
		Success: false,
		Error: &dto.ErrorInfo{
			Code:      dto.ErrCodeMappingInvalid,
			Message:   "Field mapping validation failed",
			RequestID: requestID,
			Details:   details,
		},
	})
}
