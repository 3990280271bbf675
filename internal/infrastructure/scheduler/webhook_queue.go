package scheduler

import (
	"context"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appsync "github.com/retailops/backend/internal/application/sync"
	"github.com/retailops/backend/internal/domain/shared"
	"github.com/retailops/backend/internal/domain/sync"
)

// WebhookEvent is a change notification delivered by an external platform.
// EventID is the platform's delivery id and is the dedup key: platforms
// redeliver on timeout, so the same id can arrive more than once.
type WebhookEvent struct {
	EventID    string
	TenantID   uuid.UUID
	Platform   sync.Platform
	EntityType sync.EntityType
	EntityID   string
	ReceivedAt time.Time
}

// WebhookQueueConfig holds configuration for the webhook queue
type WebhookQueueConfig struct {
	// Enabled indicates if webhook intake is enabled
	Enabled bool
	// DedupTTL is how long processed event ids are remembered
	DedupTTL time.Duration
	// QueueSize is the event buffer capacity
	QueueSize int
	// Workers is the number of event processing goroutines
	Workers int
}

// DefaultWebhookQueueConfig returns default configuration
func DefaultWebhookQueueConfig() WebhookQueueConfig {
	return WebhookQueueConfig{
		Enabled:   true,
		DedupTTL:  24 * time.Hour,
		QueueSize: 1024,
		Workers:   2,
	}
}

// Validate validates the configuration
func (c *WebhookQueueConfig) Validate() error {
	if c.DedupTTL <= 0 {
		return ErrInvalidConfig
	}
	if c.QueueSize <= 0 {
		return ErrInvalidConfig
	}
	if c.Workers <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// WebhookQueue accepts webhook events, drops redelivered event ids, and
// turns the rest into targeted incremental runs scoped to the notified
// entity. The HTTP handler enqueues and returns immediately so platform
// delivery timeouts never depend on sync latency.
type WebhookQueue struct {
	config    WebhookQueueConfig
	dedup     shared.IdempotencyStore
	scheduler *SyncScheduler
	source    sync.ScheduleSource
	logger    *zap.Logger

	events    chan WebhookEvent
	cancel    context.CancelFunc
	wg        gosync.WaitGroup
	mu        gosync.Mutex
	isRunning bool
}

// NewWebhookQueue creates a new webhook queue
func NewWebhookQueue(
	config WebhookQueueConfig,
	dedup shared.IdempotencyStore,
	scheduler *SyncScheduler,
	source sync.ScheduleSource,
	logger *zap.Logger,
) (*WebhookQueue, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &WebhookQueue{
		config:    config,
		dedup:     dedup,
		scheduler: scheduler,
		source:    source,
		logger:    logger,
		events:    make(chan WebhookEvent, config.QueueSize),
	}, nil
}

// Start starts the event workers
func (q *WebhookQueue) Start(ctx context.Context) error {
	q.mu.Lock()
	if q.isRunning {
		q.mu.Unlock()
		return nil
	}
	q.isRunning = true
	q.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	q.cancel = cancel

	for i := 0; i < q.config.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}

	q.logger.Info("Webhook queue started",
		zap.Int("workers", q.config.Workers),
		zap.Duration("dedup_ttl", q.config.DedupTTL),
	)
	return nil
}

// Stop drains the workers
func (q *WebhookQueue) Stop() {
	q.mu.Lock()
	if !q.isRunning {
		q.mu.Unlock()
		return
	}
	q.isRunning = false
	q.mu.Unlock()

	if q.cancel != nil {
		q.cancel()
	}
	close(q.events)
	q.wg.Wait()
	q.logger.Info("Webhook queue stopped")
}

// Enqueue accepts an event for processing. Redelivered event ids return
// ErrDuplicateEvent; the caller still acknowledges the delivery so the
// platform stops retrying.
func (q *WebhookQueue) Enqueue(ctx context.Context, event WebhookEvent) error {
	q.mu.Lock()
	if !q.isRunning {
		q.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	q.mu.Unlock()

	fresh, err := q.dedup.MarkProcessed(ctx, event.EventID, q.config.DedupTTL)
	if err != nil {
		return err
	}
	if !fresh {
		q.logger.Debug("Duplicate webhook delivery dropped",
			zap.String("event_id", event.EventID),
			zap.String("tenant_id", event.TenantID.String()),
			zap.String("platform", event.Platform.String()),
		)
		return ErrDuplicateEvent
	}

	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now()
	}

	select {
	case q.events <- event:
		return nil
	default:
		// The interval trigger covers the change on its next round.
		q.logger.Warn("Webhook queue full, event dropped",
			zap.String("event_id", event.EventID),
			zap.String("tenant_id", event.TenantID.String()),
		)
		return ErrJobQueueFull
	}
}

// worker processes queued events
func (q *WebhookQueue) worker(ctx context.Context) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-q.events:
			if !ok {
				return
			}
			q.processEvent(ctx, event)
		}
	}
}

// processEvent submits a targeted run for every schedule that sources from
// the notifying platform for the event's tenant and entity type.
func (q *WebhookQueue) processEvent(ctx context.Context, event WebhookEvent) {
	schedules, err := q.source.ListSchedules(ctx)
	if err != nil {
		q.logger.Error("Failed to resolve schedules for webhook event",
			zap.String("event_id", event.EventID),
			zap.Error(err),
		)
		return
	}

	matched := 0
	for _, sched := range schedules {
		if sched.TenantID != event.TenantID || sched.Route.Source != event.Platform {
			continue
		}
		if !containsEntityType(sched.EntityTypes, event.EntityType) {
			continue
		}
		matched++

		err := q.scheduler.Submit(appsync.RunRequest{
			TenantID:   event.TenantID,
			Route:      sched.Route,
			EntityType: event.EntityType,
			Mode:       sync.SyncModeIncremental,
			Filters:    sync.RunFilters{EntityIDs: []string{event.EntityID}},
		})
		if err != nil {
			q.logger.Warn("Failed to submit webhook-triggered sync",
				zap.String("event_id", event.EventID),
				zap.String("route", sched.Route.String()),
				zap.Error(err),
			)
		}
	}

	if matched == 0 {
		q.logger.Debug("Webhook event matched no active sync scope",
			zap.String("event_id", event.EventID),
			zap.String("tenant_id", event.TenantID.String()),
			zap.String("platform", event.Platform.String()),
			zap.String("entity_type", event.EntityType.String()),
		)
	}
}

func containsEntityType(types []sync.EntityType, t sync.EntityType) bool {
	for _, et := range types {
		if et == t {
			return true
		}
	}
	return false
}
