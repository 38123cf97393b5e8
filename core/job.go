package core

import (
	"fmt"
	"time"
)

// countThresh bounds ConstrainTime's iteration count; ncron's C original
// names this COUNT_THRESH and calls the value "arbitrary and untested" —
// carried forward unchanged.
const countThresh = 500

// Job is one scheduled task: identity, command+arguments, a ConstraintSet,
// a minimum inter-run interval, run-count bookkeeping and the computed
// next-execution timestamp.
type Job struct {
	ID      int
	Command string
	Args    string

	Interval time.Duration
	ExecTime int64 // unix seconds; 0 means "never" (retired)
	LastTime int64 // unix seconds; 0 means "never run"
	NumRuns  uint64
	MaxRuns  uint64 // 0 means unlimited

	Journal bool
	RunAt   bool

	Constraints *ConstraintSet
}

// NewJob returns a Job with an unrestricted ConstraintSet and the given id.
func NewJob(id int) *Job {
	return &Job{ID: id, Constraints: NewConstraintSet()}
}

// Validate checks the load-time invariants a Job must satisfy before it can
// enter the run queue. The crontab parser calls this once per finished
// record; violations are fatal and abort startup.
func (j *Job) Validate() error {
	if j.ID <= 0 {
		return fmt.Errorf("job %d: %w", j.ID, ErrInvalidJobID)
	}
	if j.Command == "" {
		return fmt.Errorf("job %d: %w", j.ID, ErrMissingCommand)
	}
	if j.Interval <= 0 && j.ExecTime <= 0 {
		return fmt.Errorf("job %d: %w", j.ID, ErrNoSchedule)
	}
	if j.RunAt {
		if j.Interval != 0 {
			return fmt.Errorf("job %d: %w", j.ID, ErrRunAtWithInterval)
		}
		if j.MaxRuns == 0 {
			j.MaxRuns = 1
		}
	}
	if j.MaxRuns > 0 && j.NumRuns > j.MaxRuns {
		return fmt.Errorf("job %d: numruns %d exceeds maxruns %d", j.ID, j.NumRuns, j.MaxRuns)
	}
	return nil
}

// ConstrainTime returns the earliest time t' >= t admitted by j's
// ConstraintSet, or ErrUnschedulable if none is found within countThresh
// iterations. Candidate times are evaluated in local time, the Go analogue
// of localtime/mktime, so the same DST duplication/skipping the C original
// exhibits can occur here too.
func (j *Job) ConstrainTime(t time.Time) (time.Time, error) {
	cs := j.Constraints
	cur := t.In(time.Local)

	for count := 0; count < countThresh; count++ {
		year, mon, day := cur.Date()
		hour, min, _ := cur.Clock()
		hhmm := hour*60 + min

		// Step 1: minute-of-day window.
		if !cs.HHMMAdmitted(hhmm) {
			if next, ok := cs.NextHHMM(hhmm); ok {
				cur = time.Date(year, mon, day, next/60, next%60, 0, 0, time.Local)
			} else {
				first := cs.FirstHHMM()
				cur = time.Date(year, mon, day+1, first/60, first%60, 0, 0, time.Local)
			}
			continue
		}

		// Step 2: day-of-month.
		if !cs.MDayAdmitted(day) {
			first := cs.FirstHHMM()
			cur = time.Date(year, mon, day+1, first/60, first%60, 0, 0, time.Local)
			continue
		}

		// Step 3: day-of-week, independent of step 2.
		if !cs.WDayAdmitted(isoWeekday(cur)) {
			first := cs.FirstHHMM()
			cur = time.Date(year, mon, day+1, first/60, first%60, 0, 0, time.Local)
			continue
		}

		// Step 4: month.
		if !cs.MonthAdmitted(int(mon)) {
			first := cs.FirstHHMM()
			cur = time.Date(year, mon+1, 1, first/60, first%60, 0, 0, time.Local)
			continue
		}

		// Step 5: year — no explicit constraint, accepted unconditionally.
		return cur, nil
	}
	return time.Time{}, fmt.Errorf("job %d: %w", j.ID, ErrUnschedulable)
}

// SetInitialExecTime computes the first exectime for a non-runat job after
// load. Called once per job, after history overlay.
func (j *Job) SetInitialExecTime(now time.Time) error {
	if j.RunAt {
		return nil
	}
	candidate, err := j.ConstrainTime(now)
	if err != nil {
		return err
	}
	if candidate.Unix()-j.LastTime < int64(j.Interval.Seconds()) {
		delta := int64(j.Interval.Seconds()) - (candidate.Unix() - j.LastTime)
		candidate, err = j.ConstrainTime(candidate.Add(time.Duration(delta) * time.Second))
		if err != nil {
			return err
		}
	}
	j.ExecTime = candidate.Unix()
	return nil
}

// Advance updates bookkeeping after a dispatch and reports whether the job
// should be retired (true) or reinserted into the live queue (false).
func (j *Job) Advance(now time.Time) (retire bool) {
	j.NumRuns++
	j.LastTime = now.Unix()

	next, err := j.ConstrainTime(now.Add(j.Interval))
	if err != nil || !next.After(now) {
		j.ExecTime = 0
	} else {
		j.ExecTime = next.Unix()
	}

	if (j.MaxRuns > 0 && j.NumRuns >= j.MaxRuns) || j.ExecTime == 0 {
		return true
	}
	return false
}

// Alive reports whether the job belongs in the live queue: a non-runat job
// that hasn't exhausted maxruns and has a nonzero exectime, or a runat job
// that hasn't fired yet.
func (j *Job) Alive() bool {
	if j.RunAt {
		return j.NumRuns == 0
	}
	return (j.MaxRuns == 0 || j.NumRuns < j.MaxRuns) && j.ExecTime != 0
}
