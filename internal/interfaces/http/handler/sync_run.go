package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appsync "github.com/retailops/backend/internal/application/sync"
	"github.com/retailops/backend/internal/domain/sync"
	"github.com/retailops/backend/internal/interfaces/http/dto"
	"github.com/retailops/backend/internal/interfaces/http/middleware"
)

// SyncRunHandler exposes sync run endpoints
type SyncRunHandler struct {
	BaseHandler
	orchestrator *appsync.Orchestrator
	dryRuns      *appsync.DryRunExecutor
}

// NewSyncRunHandler creates a new SyncRunHandler
func NewSyncRunHandler(orchestrator *appsync.Orchestrator, dryRuns *appsync.DryRunExecutor) *SyncRunHandler {
	return &SyncRunHandler{orchestrator: orchestrator, dryRuns: dryRuns}
}

// RegisterRoutes registers the sync run endpoints
func (h *SyncRunHandler) RegisterRoutes(rg *gin.RouterGroup) {
	runs := rg.Group("/sync/runs")
	{
		runs.POST("", h.TriggerRun)
		runs.POST("/dry-run", h.DryRun)
		runs.GET("", h.ListRuns)
		runs.GET("/:id", h.GetRun)
		runs.POST("/:id/cancel", h.CancelRun)
		runs.POST("/:id/retry", h.RetryRun)
	}
}

// TriggerRun starts a sync run. The call blocks until the run finishes; a
// run already in flight for the same tenant and route is a 409.
func (h *SyncRunHandler) TriggerRun(c *gin.Context) {
	req, ok := h.bindRunRequest(c)
	if !ok {
		return
	}

	result, err := h.orchestrator.Run(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewRunResponse(result.Run))
}

// DryRun executes the pipeline without writing and returns the change report
func (h *SyncRunHandler) DryRun(c *gin.Context) {
	req, ok := h.bindRunRequest(c)
	if !ok {
		return
	}

	result, err := h.dryRuns.Execute(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.DryRunResponse{
		Run:     dto.NewRunResponse(result.Run),
		Summary: appsync.Summarize(result),
		Changes: result.Previews,
	})
}

// GetRun returns a run by id
func (h *SyncRunHandler) GetRun(c *gin.Context) {
	tenantID, runID, ok := h.tenantAndRunID(c)
	if !ok {
		return
	}

	run, err := h.orchestrator.GetRun(c.Request.Context(), tenantID, runID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewRunResponse(run))
}

// ListRuns returns run history for the tenant
func (h *SyncRunHandler) ListRuns(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identification required")
		return
	}

	var req dto.RunListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	req.Normalize()

	filter := sync.RunListFilter{Page: req.Page, PageSize: req.PageSize}
	if req.Route != "" {
		route, err := sync.ParseRoute(req.Route)
		if err != nil {
			h.ErrorWithCode(c, dto.ErrCodeInvalidInput, err.Error())
			return
		}
		filter.Route = &route
	}
	if req.EntityType != "" {
		et := sync.EntityType(req.EntityType)
		if !et.IsValid() {
			h.ErrorWithCode(c, dto.ErrCodeInvalidInput, "unknown entity type")
			return
		}
		filter.EntityType = &et
	}
	if req.Status != "" {
		status := sync.RunStatus(req.Status)
		if !status.IsValid() {
			h.ErrorWithCode(c, dto.ErrCodeInvalidInput, "unknown run status")
			return
		}
		filter.Status = &status
	}

	runs, total, err := h.orchestrator.ListRuns(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]dto.RunResponse, 0, len(runs))
	for i := range runs {
		responses = append(responses, dto.NewRunResponse(&runs[i]))
	}
	h.SuccessWithMeta(c, responses, total, req.Page, req.PageSize)
}

// CancelRun requests cancellation of a running sync. Entities already
// written stay written; the run finishes as CANCELLED.
func (h *SyncRunHandler) CancelRun(c *gin.Context) {
	tenantID, runID, ok := h.tenantAndRunID(c)
	if !ok {
		return
	}

	if err := h.orchestrator.Cancel(c.Request.Context(), tenantID, runID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, gin.H{"run_id": runID})
}

// RetryRun re-runs only the failed entities of a finished run
func (h *SyncRunHandler) RetryRun(c *gin.Context) {
	tenantID, runID, ok := h.tenantAndRunID(c)
	if !ok {
		return
	}

	result, err := h.orchestrator.RetryFailed(c.Request.Context(), tenantID, runID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewRunResponse(result.Run))
}

// bindRunRequest binds and validates a run trigger request
func (h *SyncRunHandler) bindRunRequest(c *gin.Context) (appsync.RunRequest, bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identification required")
		return appsync.RunRequest{}, false
	}

	var req dto.TriggerRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return appsync.RunRequest{}, false
	}

	route := sync.Route{
		Source: sync.Platform(req.SourcePlatform),
		Target: sync.Platform(req.TargetPlatform),
	}
	if err := route.Validate(); err != nil {
		h.ErrorWithCode(c, dto.ErrCodeInvalidInput, err.Error())
		return appsync.RunRequest{}, false
	}
	entityType := sync.EntityType(req.EntityType)
	if !entityType.IsValid() {
		h.ErrorWithCode(c, dto.ErrCodeInvalidInput, "unknown entity type")
		return appsync.RunRequest{}, false
	}

	mode := sync.SyncModeIncremental
	if req.Mode != "" {
		mode = sync.SyncMode(req.Mode)
	}

	return appsync.RunRequest{
		TenantID:   tenantID,
		Route:      route,
		EntityType: entityType,
		Mode:       mode,
		DryRun:     req.DryRun,
		Filters: sync.RunFilters{
			EntityIDs:   req.EntityIDs,
			CreatedFrom: req.From,
			CreatedTo:   req.To,
		},
	}, true
}

// tenantAndRunID extracts the tenant and the :id path parameter
func (h *SyncRunHandler) tenantAndRunID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identification required")
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid run ID")
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, id, true
}
