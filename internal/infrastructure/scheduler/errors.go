package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when submitting to a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler: not running")
	// ErrJobQueueFull is returned when the job queue is at capacity
	ErrJobQueueFull = errors.New("scheduler: job queue full")
	// ErrInvalidConfig is returned for invalid scheduler configuration
	ErrInvalidConfig = errors.New("scheduler: invalid configuration")
	// ErrDuplicateEvent is returned when a webhook event id was already processed
	ErrDuplicateEvent = errors.New("scheduler: duplicate webhook event")
)
