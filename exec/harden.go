package exec

import (
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// Harden applies the process-wide hardening the original ncron does once at
// startup, before entering the dispatch loop: a restrictive umask, Linux
// prctl flags that disable core dumps and keep-caps, and a SIGCHLD
// disposition that discards children without requiring an explicit wait().
// The prctl calls are best-effort, mirroring the original's unconditional-
// but-unchecked prctl calls.
func Harden() error {
	unix.Umask(0o077)

	_ = unix.Prctl(unix.PR_SET_DUMPABLE, 0, 0, 0, 0)
	_ = unix.Prctl(unix.PR_SET_KEEPCAPS, 0, 0, 0, 0)
	_ = unix.Prctl(unix.PR_SET_CHILD_SUBREAPER, 1, 0, 0, 0)

	// Ignoring SIGCHLD outright tells the kernel to reap children itself, so
	// they never become zombies and the daemon never needs to wait() on them.
	signal.Ignore(syscall.SIGCHLD)
	return nil
}
