package simtime

import "errors"

var (
	// ErrCancelled is the value every suspended operation observes once its
	// owning activity (or the scope containing it) has been cancelled.
	ErrCancelled = errors.New("simtime: activity cancelled")

	// ErrSchedulerStopped names a scheduler that has stopped running. No
	// function in this package returns it; an activity left suspended
	// after Run or RunUntil returns simply stays suspended.
	ErrSchedulerStopped = errors.New("simtime: scheduler stopped")
)
