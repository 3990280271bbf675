package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/retailops/backend/internal/domain/sync"
	"github.com/retailops/backend/internal/infrastructure/persistence/models"
)

// MappingScheduleSource derives the scheduler's sync scopes from the
// field_mappings table: every (tenant, route) with at least one active
// mapping is a scheduled scope, and its entity types are the ones with
// active mappings.
type MappingScheduleSource struct {
	db *gorm.DB
}

// NewMappingScheduleSource creates a schedule source backed by active mappings
func NewMappingScheduleSource(db *gorm.DB) *MappingScheduleSource {
	return &MappingScheduleSource{db: db}
}

type scheduleRow struct {
	TenantID       uuid.UUID
	SourcePlatform sync.Platform
	TargetPlatform sync.Platform
	EntityType     sync.EntityType
}

// ListSchedules enumerates scopes with active mappings, grouped by
// (tenant, route)
func (s *MappingScheduleSource) ListSchedules(ctx context.Context) ([]sync.SyncSchedule, error) {
	var rows []scheduleRow
	if err := s.db.WithContext(ctx).
		Model(&models.FieldMappingModel{}).
		Distinct("tenant_id", "source_platform", "target_platform", "entity_type").
		Where("is_active = ?", true).
		Order("tenant_id, source_platform, target_platform, entity_type").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	type scopeKey struct {
		tenantID uuid.UUID
		route    sync.Route
	}
	grouped := make(map[scopeKey]*sync.SyncSchedule)
	var order []scopeKey

	for _, row := range rows {
		key := scopeKey{
			tenantID: row.TenantID,
			route:    sync.Route{Source: row.SourcePlatform, Target: row.TargetPlatform},
		}
		sched, ok := grouped[key]
		if !ok {
			sched = &sync.SyncSchedule{TenantID: row.TenantID, Route: key.route}
			grouped[key] = sched
			order = append(order, key)
		}
		sched.EntityTypes = append(sched.EntityTypes, row.EntityType)
	}

	schedules := make([]sync.SyncSchedule, 0, len(order))
	for _, key := range order {
		schedules = append(schedules, *grouped[key])
	}
	return schedules, nil
}

// Ensure MappingScheduleSource implements ScheduleSource
var _ sync.ScheduleSource = (*MappingScheduleSource)(nil)
