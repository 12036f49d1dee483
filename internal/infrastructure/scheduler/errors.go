package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned for closes submitted before Start or after Stop
	ErrSchedulerNotRunning = errors.New("closing scheduler is not running")

	// ErrJobQueueFull is returned when every queue slot holds a pending close
	ErrJobQueueFull = errors.New("closing job queue is full")

	// ErrAlreadyQueued is returned for a business date whose close is still in progress
	ErrAlreadyQueued = errors.New("business date close already in progress")

	ErrInvalidJobKind = errors.New("invalid job kind")
	ErrInvalidConfig  = errors.New("invalid scheduler configuration")
)
