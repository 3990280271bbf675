package scheduler

import (
	"context"
	"errors"
	"sort"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appsync "github.com/retailops/backend/internal/application/sync"
	"github.com/retailops/backend/internal/domain/sync"
)

// RunExecutor executes sync runs. The application orchestrator implements it.
type RunExecutor interface {
	Run(ctx context.Context, req appsync.RunRequest) (*appsync.RunResult, error)
}

// SyncSchedulerConfig holds configuration for the sync scheduler
type SyncSchedulerConfig struct {
	// Enabled indicates if the scheduler is enabled
	Enabled bool
	// MaxConcurrentJobs is the maximum number of concurrent sync jobs
	MaxConcurrentJobs int
	// JobTimeout is the maximum time a scheduled run can take
	JobTimeout time.Duration
	// QueueSize is the job queue capacity
	QueueSize int
}

// DefaultSyncSchedulerConfig returns default configuration
func DefaultSyncSchedulerConfig() SyncSchedulerConfig {
	return SyncSchedulerConfig{
		Enabled:           true,
		MaxConcurrentJobs: 3,
		JobTimeout:        30 * time.Minute,
		QueueSize:         100,
	}
}

// Validate validates the configuration
func (c *SyncSchedulerConfig) Validate() error {
	if c.MaxConcurrentJobs <= 0 {
		return ErrInvalidConfig
	}
	if c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.QueueSize <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// SyncJob is one queued run request.
type SyncJob struct {
	ID      uuid.UUID
	Request appsync.RunRequest
}

// SyncScheduler runs queued sync jobs on a bounded worker pool. A run that
// finds its (tenant, route) lock held is dropped, not queued: the run in
// flight already covers the scope and the next interval will catch up.
type SyncScheduler struct {
	config   SyncSchedulerConfig
	executor RunExecutor
	logger   *zap.Logger

	jobs      chan *SyncJob
	cancel    context.CancelFunc
	wg        gosync.WaitGroup
	mu        gosync.Mutex
	isRunning bool
}

// NewSyncScheduler creates a new sync scheduler
func NewSyncScheduler(config SyncSchedulerConfig, executor RunExecutor, logger *zap.Logger) (*SyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &SyncScheduler{
		config:   config,
		executor: executor,
		logger:   logger,
		jobs:     make(chan *SyncJob, config.QueueSize),
	}, nil
}

// Start starts the worker pool
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.MaxConcurrentJobs; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("Sync scheduler started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop gracefully stops the scheduler
func (s *SyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	close(s.jobs)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sync scheduler stop timed out")
		return ctx.Err()
	}
}

// Submit queues one run request
func (s *SyncScheduler) Submit(req appsync.RunRequest) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	job := &SyncJob{ID: uuid.New(), Request: req}
	select {
	case s.jobs <- job:
		return nil
	default:
		return ErrJobQueueFull
	}
}

// SubmitSchedule queues incremental runs for every entity type of a
// schedule, parents before children per the static dependency order.
func (s *SyncScheduler) SubmitSchedule(sched sync.SyncSchedule, mode sync.SyncMode) error {
	types := append([]sync.EntityType(nil), sched.EntityTypes...)
	sort.SliceStable(types, func(i, j int) bool {
		return types[i].DependencyRank() < types[j].DependencyRank()
	})
	for _, entityType := range types {
		err := s.Submit(appsync.RunRequest{
			TenantID:   sched.TenantID,
			Route:      sched.Route,
			EntityType: entityType,
			Mode:       mode,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// worker processes jobs from the queue
func (s *SyncScheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-s.jobs:
			if !ok {
				return
			}
			s.processJob(ctx, job, workerID)
		}
	}
}

// processJob executes a single run
func (s *SyncScheduler) processJob(ctx context.Context, job *SyncJob, workerID int) {
	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	result, err := s.executor.Run(jobCtx, job.Request)
	if err != nil {
		if errors.Is(err, sync.ErrRunAlreadyRunning) {
			s.logger.Debug("Scheduled sync skipped, run already in progress",
				zap.Int("worker_id", workerID),
				zap.String("tenant_id", job.Request.TenantID.String()),
				zap.String("route", job.Request.Route.String()),
				zap.String("entity_type", job.Request.EntityType.String()),
			)
			return
		}
		s.logger.Error("Scheduled sync run failed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", job.ID.String()),
			zap.String("tenant_id", job.Request.TenantID.String()),
			zap.String("route", job.Request.Route.String()),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("Scheduled sync run finished",
		zap.Int("worker_id", workerID),
		zap.String("run_id", result.Run.ID.String()),
		zap.String("status", string(result.Run.Status)),
		zap.Int("fetched", result.Run.Counts.Fetched),
		zap.Int("failed", result.Run.Counts.Failed),
	)
}
