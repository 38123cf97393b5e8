package exec

import (
	"fmt"
	"os/user"
	"strconv"
)

// defaultPath mirrors the original DEFAULT_PATH constant ncm_fix_env sets
// for a sanitized child environment (original_source/exec.c).
const defaultPath = "/usr/bin:/bin:/usr/sbin:/sbin"

// UserEnv looks up username and builds the sanitized environment a child
// process running as that user should see: UID/USER/USERNAME/LOGNAME/HOME/
// PWD/SHELL/PATH, nothing inherited from the daemon (original_source/exec.c
// ncm_fix_env, which clearenv()s before setting these eight variables).
func UserEnv(username string) (env []string, homeDir string, uid, gid int, err error) {
	u, err := user.Lookup(username)
	if err != nil {
		return nil, "", 0, 0, fmt.Errorf("lookup user %q: %w", username, err)
	}
	uid, err = strconv.Atoi(u.Uid)
	if err != nil {
		return nil, "", 0, 0, fmt.Errorf("user %q has non-numeric uid %q: %w", username, u.Uid, err)
	}
	gid, err = strconv.Atoi(u.Gid)
	if err != nil {
		return nil, "", 0, 0, fmt.Errorf("user %q has non-numeric gid %q: %w", username, u.Gid, err)
	}

	shell := "/bin/sh"
	env = []string{
		"UID=" + u.Uid,
		"USER=" + u.Username,
		"USERNAME=" + u.Username,
		"LOGNAME=" + u.Username,
		"HOME=" + u.HomeDir,
		"PWD=" + u.HomeDir,
		"SHELL=" + shell,
		"PATH=" + defaultPath,
	}
	return env, u.HomeDir, uid, gid, nil
}
