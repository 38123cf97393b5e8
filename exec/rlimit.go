package exec

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// rlimitNames maps the "rlimit.<name>" crontab key suffixes to their
// RLIMIT_* constant, covering the resource limits original ncron's
// operators were most likely to set on a spawned job.
var rlimitNames = map[string]int{
	"cpu":    unix.RLIMIT_CPU,
	"fsize":  unix.RLIMIT_FSIZE,
	"data":   unix.RLIMIT_DATA,
	"stack":  unix.RLIMIT_STACK,
	"as":     unix.RLIMIT_AS,
	"nofile": unix.RLIMIT_NOFILE,
	"nproc":  unix.RLIMIT_NPROC,
	"core":   unix.RLIMIT_CORE,
}

// applyRLimits sets the process's own rlimits to the requested values and
// returns a restore function. Since the Dispatcher loop is single-threaded,
// it is safe to narrow the daemon's limits for the brief window between
// Setrlimit and the child's fork+exec, then widen them back immediately
// after: the child inherits the narrowed limits at fork time, and no other
// goroutine observes the daemon's limits in between.
func applyRLimits(limits map[string]uint64) (restore func(), err error) {
	if len(limits) == 0 {
		return func() {}, nil
	}

	type saved struct {
		resource int
		prior    unix.Rlimit
	}
	var applied []saved

	restoreAll := func() {
		for i := len(applied) - 1; i >= 0; i-- {
			_ = unix.Setrlimit(applied[i].resource, &applied[i].prior)
		}
	}

	for name, value := range limits {
		resource, ok := rlimitNames[name]
		if !ok {
			continue // unrecognised rlimit.* key: skipped, not fatal
		}
		var prior unix.Rlimit
		if err := unix.Getrlimit(resource, &prior); err != nil {
			restoreAll()
			return nil, fmt.Errorf("getrlimit %q: %w", name, err)
		}
		next := unix.Rlimit{Cur: value, Max: prior.Max}
		if value > prior.Max {
			next.Max = value
		}
		if err := unix.Setrlimit(resource, &next); err != nil {
			restoreAll()
			return nil, fmt.Errorf("setrlimit %q to %d: %w", name, value, err)
		}
		applied = append(applied, saved{resource: resource, prior: prior})
	}

	return restoreAll, nil
}
