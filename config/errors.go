package config

import "errors"

// Fatal crontab-parsing errors: ParseCrontab wraps these with the
// offending line number and aborts startup.
var (
	ErrDuplicateCommand = errors.New("duplicate command key for job")
	ErrNoJobHeaderYet   = errors.New("key=value line before any !<id> header")
	ErrBadHeader        = errors.New("malformed job header line")
)
