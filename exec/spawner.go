package exec

import (
	"fmt"
	"os"
	osexec "os/exec"
	"syscall"

	"github.com/niklata/ncrond/config"
	"github.com/niklata/ncrond/core"
)

// Spawner implements core.Spawner: fire-and-forget process launch — the
// daemon never wait()s on children; SIGCHLD disposition is set up once at
// startup by Harden. Extras carries the per-job user/chroot/rlimit
// enforcement hints the crontab parser collected; a job absent from Extras
// spawns with the daemon's own environment and no confinement, exactly like
// upstream ncron's default.
type Spawner struct {
	Extras map[int]*config.JobExtra
	Logger core.Logger
}

// NewSpawner wires a Spawner against the extras collected at load time.
func NewSpawner(extras map[int]*config.JobExtra, logger core.Logger) *Spawner {
	return &Spawner{Extras: extras, Logger: logger}
}

// Spawn builds and starts the child process for j, applying whatever
// extras were recorded for its id, and returns once the child has started
// (not once it has exited — fire-and-forget).
func (s *Spawner) Spawn(j *core.Job) error {
	argv, err := SplitArgs(j.Args)
	if err != nil {
		return fmt.Errorf("job %d: split args %q: %w", j.ID, j.Args, err)
	}

	cmd := &osexec.Cmd{
		Path: j.Command,
		Args: append([]string{j.Command}, argv...),
		Env:  os.Environ(),
	}

	extra := s.Extras[j.ID]
	var restoreRLimits func()
	if extra != nil {
		restore, err := applyRLimits(extra.RLimits)
		if err != nil {
			return fmt.Errorf("job %d: %w", j.ID, err)
		}
		restoreRLimits = restore
		defer restoreRLimits()

		attr := &syscall.SysProcAttr{}
		if extra.Chroot != "" {
			attr.Chroot = extra.Chroot
		}
		if extra.User != "" {
			env, homeDir, uid, gid, err := UserEnv(extra.User)
			if err != nil {
				return fmt.Errorf("job %d: %w", j.ID, err)
			}
			cmd.Env = env
			cmd.Dir = homeDir
			attr.Credential = &syscall.Credential{Uid: uint32(uid), Gid: uint32(gid)}
		}
		cmd.SysProcAttr = attr
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("job %d: start %q: %w", j.ID, j.Command, err)
	}
	if s.Logger != nil {
		s.Logger.Debugf("job %d: spawned pid %d", j.ID, cmd.Process.Pid)
	}
	// The child is intentionally not waited on: zombie reaping is delegated
	// to the OS via the SIGCHLD disposition set up in Harden.
	return nil
}
