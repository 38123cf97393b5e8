package core

import "errors"

// Sentinel errors returned by the scheduler core. Callers use errors.Is to
// distinguish fatal-at-load conditions from transient runtime ones.
var (
	// ErrDuplicateJobID is returned when two jobs in the same crontab share an id.
	ErrDuplicateJobID = errors.New("duplicate job id")
	// ErrMissingCommand is returned when a job record never set "command".
	ErrMissingCommand = errors.New("job has no command")
	// ErrNoSchedule is returned when a job has neither interval nor exectime.
	ErrNoSchedule = errors.New("job has neither interval nor exectime")
	// ErrRunAtWithInterval is returned when a runat job also sets interval.
	ErrRunAtWithInterval = errors.New("runat job may not set an interval")
	// ErrInvalidJobID is returned when a job header line names a non-positive id.
	ErrInvalidJobID = errors.New("job id must be positive")
	// ErrUnschedulable is returned by constrain_time when no admissible time
	// is found within COUNT_THRESH iterations.
	ErrUnschedulable = errors.New("job constraints admit no time")
	// ErrEmptyQueue is returned when the dispatcher is asked to run with no
	// live jobs at all.
	ErrEmptyQueue = errors.New("no jobs to schedule")
)
