// Package exec turns a core.Job's command/args strings into a running child
// process, applying whatever optional user/chroot/rlimit enforcement a
// crontab record requests. The scheduler core never imports this package;
// it only depends on the core.Spawner interface.
package exec

import "github.com/google/shlex"

// SplitArgs splits a Job's single Args string into an argv tail, honoring
// shell-style quoting and backslash escapes. An empty string yields a nil
// (zero-length) slice.
func SplitArgs(args string) ([]string, error) {
	if args == "" {
		return nil, nil
	}
	return shlex.Split(args)
}
