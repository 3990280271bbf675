package handler

import (
	"github.com/gin-gonic/gin"

	appsync "github.com/retailops/backend/internal/application/sync"
	"github.com/retailops/backend/internal/domain/sync"
	"github.com/retailops/backend/internal/interfaces/http/dto"
	"github.com/retailops/backend/internal/interfaces/http/middleware"
)

// SyncConfigHandler exposes per-entity sync behavior endpoints
type SyncConfigHandler struct {
	BaseHandler
	service *appsync.ConfigService
}

// NewSyncConfigHandler creates a new SyncConfigHandler
func NewSyncConfigHandler(service *appsync.ConfigService) *SyncConfigHandler {
	return &SyncConfigHandler{service: service}
}

// RegisterRoutes registers the sync config endpoints
func (h *SyncConfigHandler) RegisterRoutes(rg *gin.RouterGroup) {
	configs := rg.Group("/sync/configs")
	{
		configs.GET("", h.ListConfigs)
		configs.GET("/:entityType", h.GetConfig)
		configs.PUT("/:entityType", h.UpdateConfig)
	}
}

// ListConfigs returns the tenant's configured entity types
func (h *SyncConfigHandler) ListConfigs(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identification required")
		return
	}

	configs, err := h.service.ListConfigs(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]dto.SyncConfigResponse, 0, len(configs))
	for i := range configs {
		responses = append(responses, dto.NewSyncConfigResponse(&configs[i]))
	}
	h.Success(c, responses)
}

// GetConfig returns the effective config for an entity type. Unconfigured
// entity types report the defaults.
func (h *SyncConfigHandler) GetConfig(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identification required")
		return
	}

	entityType := sync.EntityType(c.Param("entityType"))
	if !entityType.IsValid() {
		h.ErrorWithCode(c, dto.ErrCodeInvalidInput, "unknown entity type")
		return
	}

	cfg, err := h.service.GetConfig(c.Request.Context(), tenantID, entityType)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewSyncConfigResponse(cfg))
}

// UpdateConfig updates the config for an entity type. The change applies
// from the next run; runs in flight keep the config they started with.
func (h *SyncConfigHandler) UpdateConfig(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identification required")
		return
	}

	entityType := sync.EntityType(c.Param("entityType"))
	if !entityType.IsValid() {
		h.ErrorWithCode(c, dto.ErrCodeInvalidInput, "unknown entity type")
		return
	}

	var req dto.UpdateSyncConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	cfg, err := h.service.GetConfig(c.Request.Context(), tenantID, entityType)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	cfg.Direction = sync.Direction(req.Direction)
	cfg.SourceOfTruth = sync.SourceOfTruth(req.SourceOfTruth)
	cfg.ConflictStrategy = sync.ConflictStrategy(req.ConflictStrategy)
	if req.ClockAuthority != "" {
		cfg.ClockAuthority = sync.ClockAuthority(req.ClockAuthority)
	}

	if err := h.service.UpdateConfig(c.Request.Context(), cfg); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewSyncConfigResponse(cfg))
}
