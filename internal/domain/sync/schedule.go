package sync

import (
	"context"

	"github.com/google/uuid"
)

// SyncSchedule declares one scheduled sync scope: every entity type of a
// (tenant, route) that has an active mapping.
type SyncSchedule struct {
	TenantID    uuid.UUID
	Route       Route
	EntityTypes []EntityType
}

// ScheduleSource lists the sync scopes the scheduler should trigger.
type ScheduleSource interface {
	ListSchedules(ctx context.Context) ([]SyncSchedule, error)
}
