package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/retailops/backend/internal/domain/sync"
	"github.com/retailops/backend/internal/infrastructure/scheduler"
	"github.com/retailops/backend/internal/interfaces/http/dto"
	"github.com/retailops/backend/internal/interfaces/http/middleware"
)

// WebhookHandler receives change notifications from external platforms
type WebhookHandler struct {
	BaseHandler
	queue *scheduler.WebhookQueue
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(queue *scheduler.WebhookQueue) *WebhookHandler {
	return &WebhookHandler{queue: queue}
}

// RegisterRoutes registers the webhook intake endpoint
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/events", h.Receive)
}

// Receive enqueues a webhook event. Redelivered event ids are acknowledged
// without reprocessing so platforms stop retrying; a full queue is also
// acknowledged because the interval trigger covers the change later.
func (h *WebhookHandler) Receive(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identification required")
		return
	}

	var req dto.WebhookEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	platform := sync.Platform(req.Platform)
	if !platform.IsValid() {
		h.ErrorWithCode(c, dto.ErrCodeInvalidInput, "unknown platform")
		return
	}
	entityType := sync.EntityType(req.EntityType)
	if !entityType.IsValid() {
		h.ErrorWithCode(c, dto.ErrCodeInvalidInput, "unknown entity type")
		return
	}

	err = h.queue.Enqueue(c.Request.Context(), scheduler.WebhookEvent{
		EventID:    req.EventID,
		TenantID:   tenantID,
		Platform:   platform,
		EntityType: entityType,
		EntityID:   req.EntityID,
	})
	switch {
	case err == nil:
		h.Accepted(c, gin.H{"accepted": true})
	case errors.Is(err, scheduler.ErrDuplicateEvent):
		h.Success(c, gin.H{"accepted": true, "duplicate": true})
	case errors.Is(err, scheduler.ErrJobQueueFull):
		h.Accepted(c, gin.H{"accepted": true, "deferred": true})
	default:
		h.HandleError(c, err)
	}
}
