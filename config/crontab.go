// Package config reads the two on-disk text formats the scheduler core
// consumes at startup: the crontab (job definitions) and the history file
// (persisted exectime/numruns/lasttime). Both grammars are line-oriented and
// regular enough that a plain recursive-descent line scanner handles them;
// there's no need for a generated parser here.
package config

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/niklata/ncrond/core"
)

// JobExtra carries the per-job fields the external spawn collaborator needs
// but that core.Job itself has no business knowing about: optional chroot,
// rlimit and uid/gid enforcement applied inside a spawned child. Populated
// from the "user", "chroot" and "rlimit.*" crontab keys.
type JobExtra struct {
	User    string
	Chroot  string
	RLimits map[string]uint64
}

// Crontab is the result of parsing a crontab file: the job table and any
// per-job external-collaborator hints.
type Crontab struct {
	Jobs   []*core.Job
	Extras map[int]*JobExtra
}

var headerRe = regexp.MustCompile(`^!(-?\d+)\s*$`)

// CountJobHeaders is a cheap pre-scan so the caller can preallocate the job
// slice. It tolerates the same input ParseCrontab does; a malformed header
// is simply not counted here (ParseCrontab will reject it properly).
func CountJobHeaders(r io.Reader) int {
	scanner := bufio.NewScanner(r)
	n := 0
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if len(line) > 0 && line[0] == '!' {
			if _, err := strconv.Atoi(strings.TrimSpace(line[1:])); err == nil {
				n++
			}
		}
	}
	return n
}

// ParseCrontabFile opens path and parses it with ParseCrontab.
func ParseCrontabFile(path string) (*Crontab, error) {
	f, err := os.Open(path) //nolint:gosec // path is an operator-supplied config path, not user input
	if err != nil {
		return nil, fmt.Errorf("open crontab %q: %w", path, err)
	}
	defer f.Close()
	return ParseCrontab(f)
}

// ParseCrontab streams the crontab line by line, building one core.Job per
// "!<id>" header and applying "key=value" lines to the job currently open.
// Fatal configuration errors are returned with the offending line number.
func ParseCrontab(r io.Reader) (*Crontab, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read crontab: %w", err)
	}

	jobCount := CountJobHeaders(bytes.NewReader(data))

	p := &parser{
		jobs:   make([]*core.Job, 0, jobCount),
		extras: make(map[int]*JobExtra),
		seen:   make(map[int]bool),
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		p.line++
		raw := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(raw)

		switch {
		case trimmed == "" || strings.HasPrefix(trimmed, "#"):
			continue
		case strings.HasPrefix(trimmed, "!"):
			if err := p.finishJob(); err != nil {
				return nil, err
			}
			if err := p.startJob(trimmed); err != nil {
				return nil, err
			}
		default:
			if err := p.applyKV(trimmed); err != nil {
				return nil, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan crontab: %w", err)
	}
	if err := p.finishJob(); err != nil {
		return nil, err
	}

	return &Crontab{Jobs: p.jobs, Extras: p.extras}, nil
}

type parser struct {
	jobs   []*core.Job
	extras map[int]*JobExtra
	seen   map[int]bool
	line   int

	cur         *core.Job
	curExtra    *JobExtra
	haveJob     bool
	haveCommand bool
	// lastHour remembers the most recently parsed "hour" key's (lo,hi), so
	// any later "minute" key on the same job can refine it.
	lastHour *[2]int
}

func (p *parser) startJob(line string) error {
	m := headerRe.FindStringSubmatch(line)
	if m == nil {
		return fmt.Errorf("crontab line %d: %w: %q", p.line, ErrBadHeader, line)
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return fmt.Errorf("crontab line %d: %w: %q", p.line, ErrBadHeader, line)
	}
	p.cur = core.NewJob(id)
	p.curExtra = &JobExtra{RLimits: make(map[string]uint64)}
	p.haveJob = true
	p.haveCommand = false
	p.lastHour = nil
	return nil
}

func (p *parser) finishJob() error {
	if !p.haveJob {
		return nil
	}
	j := p.cur
	if err := j.Validate(); err != nil {
		return fmt.Errorf("crontab line %d: %w", p.line, err)
	}
	if p.seen[j.ID] {
		return fmt.Errorf("crontab line %d: %w: id %d", p.line, core.ErrDuplicateJobID, j.ID)
	}
	p.seen[j.ID] = true
	p.jobs = append(p.jobs, j)
	if len(p.curExtra.RLimits) > 0 || p.curExtra.User != "" || p.curExtra.Chroot != "" {
		p.extras[j.ID] = p.curExtra
	}
	p.haveJob = false
	return nil
}

func (p *parser) applyKV(line string) error {
	if !p.haveJob {
		return fmt.Errorf("crontab line %d: %w", p.line, ErrNoJobHeaderYet)
	}
	eq := strings.IndexByte(line, '=')
	if eq < 0 {
		return nil // unrecognised line shape: skipped, not fatal
	}
	key := strings.TrimSpace(line[:eq])
	val := strings.TrimSpace(line[eq+1:])

	switch key {
	case "command":
		if p.haveCommand {
			return fmt.Errorf("crontab line %d: %w: id %d", p.line, ErrDuplicateCommand, p.cur.ID)
		}
		cmd, args := splitCommandLine(val)
		p.cur.Command = cmd
		p.cur.Args = args
		p.haveCommand = true
	case "interval":
		d, err := parseInterval(val)
		if err != nil {
			return nil // malformed interval: skippable-at-load
		}
		p.cur.Interval = d
	case "runat":
		ts, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return nil
		}
		p.cur.RunAt = true
		p.cur.ExecTime = ts
		p.cur.MaxRuns = 1
		p.cur.Journal = true
	case "maxruns":
		if p.cur.RunAt {
			return nil
		}
		n, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return nil
		}
		p.cur.MaxRuns = n
	case "journal":
		p.cur.Journal = true
	case "month":
		applyLoHi(val, func(lo, hi int) error { return p.cur.Constraints.AddRange(core.CategoryMonth, lo, hi) })
	case "day":
		applyLoHi(val, func(lo, hi int) error { return p.cur.Constraints.AddRange(core.CategoryMDay, lo, hi) })
	case "weekday":
		applyLoHi(val, func(lo, hi int) error { return p.cur.Constraints.AddRange(core.CategoryWDay, lo, hi) })
	case "hour":
		var hourLo, hourHi int
		err := applyLoHi(val, func(lo, hi int) error {
			hourLo, hourHi = lo, hi
			return p.cur.Constraints.AddHourRange(lo, hi)
		})
		if err == nil {
			p.lastHour = &[2]int{hourLo, hourHi}
		}
	case "minute":
		applyLoHi(val, func(lo, hi int) error {
			if p.lastHour != nil {
				return p.cur.Constraints.RestrictMinuteWithinHours(p.lastHour[0], p.lastHour[1], lo, hi)
			}
			return p.cur.Constraints.AddMinuteEveryHour(lo, hi)
		})
	case "user":
		p.curExtra.User = val
	case "chroot":
		p.curExtra.Chroot = val
	default:
		if strings.HasPrefix(key, "rlimit.") {
			n, err := strconv.ParseUint(val, 10, 64)
			if err == nil {
				p.curExtra.RLimits[strings.TrimPrefix(key, "rlimit.")] = n
			}
		}
		// any other unknown key is ignored.
	}
	return nil
}

// applyLoHi parses a "lo[,hi]" value and invokes fn(lo,hi). A bare "lo"
// means hi=lo. Parse failures are skippable-at-load: fn is simply not
// called and no error propagates out of ParseCrontab.
func applyLoHi(val string, fn func(lo, hi int) error) error {
	parts := strings.SplitN(val, ",", 2)
	lo, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return err
	}
	hi := lo
	if len(parts) == 2 {
		hi, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return err
		}
	}
	return fn(lo, hi)
}

// splitCommandLine splits a crontab "command" value into the program path
// and its remaining argument string, honoring "\ " and "\\" escapes in the
// command token itself.
func splitCommandLine(val string) (command, args string) {
	var cmd strings.Builder
	i := 0
	for i < len(val) {
		c := val[i]
		if c == '\\' && i+1 < len(val) {
			switch val[i+1] {
			case ' ', '\\':
				cmd.WriteByte(val[i+1])
				i += 2
				continue
			}
		}
		if c == ' ' || c == '\t' {
			break
		}
		cmd.WriteByte(c)
		i++
	}
	return cmd.String(), strings.TrimSpace(val[i:])
}

var intervalTermRe = regexp.MustCompile(`(\d+)([smhdw])`)

// parseInterval parses the "interval" crontab value: a bare decimal number
// of seconds, or a sequence of unit-suffixed numbers (s,m,h,d,w) that are
// summed.
func parseInterval(val string) (time.Duration, error) {
	val = strings.TrimSpace(val)
	if n, err := strconv.ParseInt(val, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	matches := intervalTermRe.FindAllStringSubmatch(val, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("invalid interval %q", val)
	}
	var total int64
	for _, m := range matches {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, err
		}
		switch m[2] {
		case "s":
			total += n
		case "m":
			total += n * 60
		case "h":
			total += n * 3600
		case "d":
			total += n * 86400
		case "w":
			total += n * 604800
		}
	}
	return time.Duration(total) * time.Second, nil
}
