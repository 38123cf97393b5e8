package core

import (
	"sync"
	"time"
)

// Spawner is the "spawn this job" collaborator. The core never execs or
// waits on a process itself; it only reports the outcome.
type Spawner interface {
	Spawn(j *Job) error
}

// HistorySaver is the "append/commit history" collaborator, implemented
// durably by config.HistoryStore.
type HistorySaver interface {
	Save(live, dead []*Job) error
}

// Dispatcher is the top-level loop that sleeps until the RunQueue's head is
// due, executes all due jobs in time order, reinserts or retires them, and
// terminates cleanly on request with a final save.
type Dispatcher struct {
	Queue   *RunQueue
	Clock   Clock
	Spawner Spawner
	History HistorySaver
	Logger  Logger

	// JournalAll forces a history save after every dispatch, regardless of
	// each job's own Journal flag ("--journal" in the CLI surface).
	JournalAll bool
	// NoSave suppresses the final save on shutdown ("--noexecsave").
	NoSave bool
	// Verbose enables per-dispatch DEBUG tracing.
	Verbose bool
	// InitialSleep delays entry into the dispatch loop by this much, so as
	// not to compete with boot-time workloads.
	InitialSleep time.Duration

	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewDispatcher wires a RunQueue together with its three external
// collaborators.
func NewDispatcher(q *RunQueue, clock Clock, spawner Spawner, history HistorySaver, logger Logger) *Dispatcher {
	return &Dispatcher{
		Queue:    q,
		Clock:    clock,
		Spawner:  spawner,
		History:  history,
		Logger:   logger,
		shutdown: make(chan struct{}),
	}
}

// RequestShutdown latches the shutdown flag the Run loop observes at its
// next sleep boundary; nothing else about scheduler state is touched. Safe
// to call from a signal handler goroutine, and safe to call more than once.
func (d *Dispatcher) RequestShutdown() {
	d.shutdownOnce.Do(func() { close(d.shutdown) })
}

// Run executes the dispatch loop until the live queue drains naturally or a
// shutdown is requested. It returns ErrEmptyQueue if started with no live
// jobs, the save error if the final save on drain or shutdown fails, and nil
// otherwise. Failures of the saves that journalled dispatches trigger are
// logged and retried on the next tick rather than treated as fatal.
func (d *Dispatcher) Run() error {
	if d.Queue.IsEmptyLive() {
		return ErrEmptyQueue
	}

	if d.InitialSleep > 0 {
		if !d.Clock.Sleep(d.Clock.Now().Add(d.InitialSleep), d.shutdown) {
			return d.shutdownSave()
		}
	}

	pendingSave := false
	for {
		if pendingSave {
			if err := d.saveHistory(); err != nil {
				d.Logger.Errorf("history save failed, will retry next tick: %v", err)
			} else {
				pendingSave = false
			}
		}

		head := d.Queue.PeekHead()
		if head == nil {
			return d.finalSave()
		}

		wakeAt := time.Unix(head.ExecTime, 0)
		if !d.Clock.Sleep(wakeAt, d.shutdown) {
			return d.shutdownSave()
		}

		now := d.Clock.Now()
		for {
			head := d.Queue.PeekHead()
			if head == nil || head.ExecTime > now.Unix() {
				break
			}
			j := d.Queue.PopHead()

			if d.Verbose {
				d.Logger.Debugf("DISPATCH %d (%d <= %d)", j.ID, j.ExecTime, now.Unix())
			}

			if err := d.Spawner.Spawn(j); err != nil {
				d.Logger.Errorf("job %d spawn failed: %v", j.ID, err)
			}

			retired := j.Advance(now)
			if j.Journal || d.JournalAll {
				pendingSave = true
			}
			if retired {
				d.Queue.InsertDead(j)
			} else {
				d.Queue.Insert(j)
			}
		}

		if d.Queue.IsEmptyLive() {
			return d.finalSave()
		}

		select {
		case <-d.shutdown:
			return d.shutdownSave()
		default:
		}
	}
}

func (d *Dispatcher) saveHistory() error {
	return d.History.Save(d.Queue.Live(), d.Queue.Dead())
}

// finalSave always persists: exhausting the live queue means there is
// nothing left to schedule, so the save here is unconditional.
func (d *Dispatcher) finalSave() error {
	if err := d.saveHistory(); err != nil {
		d.Logger.Errorf("final history save failed: %v", err)
		return err
	}
	d.Logger.Noticef("live queue exhausted, exiting")
	return nil
}

// shutdownSave persists unless NoSave is set.
func (d *Dispatcher) shutdownSave() error {
	if d.NoSave {
		d.Logger.Noticef("shutdown requested, skipping save (--noexecsave)")
		return nil
	}
	if err := d.saveHistory(); err != nil {
		d.Logger.Errorf("shutdown history save failed: %v", err)
		return err
	}
	d.Logger.Noticef("shutdown requested, history saved")
	return nil
}
