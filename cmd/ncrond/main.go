// Command ncrond is a cron-and-at hybrid scheduling daemon: it loads a
// crontab and a history file, then runs jobs at their computed times until
// the live queue drains or it receives a shutdown signal.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	"github.com/niklata/ncrond/config"
	"github.com/niklata/ncrond/core"
	"github.com/niklata/ncrond/exec"
)

const (
	defaultCrontab = "/var/lib/ncrond/crontab"
	defaultHistory = "/var/lib/ncrond/history"
)

// version is set by the release build; unset in development builds.
var version = "unreleased"

type options struct {
	Sleep      uint   `long:"sleep" description:"initial startup sleep, in seconds, before entering the dispatch loop"`
	NoExecSave bool   `long:"noexecsave" description:"suppress history writes on shutdown"`
	Journal    bool   `long:"journal" description:"persist history after every dispatch, regardless of each job's own journal setting"`
	Crontab    string `long:"crontab" description:"path to the crontab file" default:"/var/lib/ncrond/crontab"`
	History    string `long:"history" description:"path to the history file" default:"/var/lib/ncrond/history"`
	S6Notify   int    `long:"s6-notify" description:"write one byte to this fd and close it once startup has succeeded" default:"-1"`
	Verbose    bool   `long:"verbose" description:"log each dispatch at debug level"`
	Version    bool   `long:"version" description:"print the version and exit"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.LongDescription = "ncrond holds a set of scheduled jobs, dispatches each at its computed next-execution time, and persists run history across restarts."
	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Println("ncrond", version)
		os.Exit(0)
	}

	logger := core.NewLogrusAdapter(logrus.InfoLevel)
	if opts.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	if err := exec.Harden(); err != nil {
		logger.Criticalf("hardening the process failed: %v", err)
		os.Exit(1)
	}

	os.Exit(run(&opts, logger))
}

// run loads the crontab and history, builds the run queue, and then drives
// the Dispatcher; it returns the process exit code rather than calling
// os.Exit itself, so tests can exercise it directly.
func run(opts *options, logger *core.LogrusAdapter) int {
	if err := failOnUnreadable(opts.Crontab); err != nil {
		logger.Criticalf("%v", err)
		return 1
	}
	if err := config.EnsureWritable(opts.History); err != nil {
		logger.Criticalf("%v", err)
		return 1
	}

	crontab, err := config.ParseCrontabFile(opts.Crontab)
	if err != nil {
		logger.Criticalf("loading crontab %q: %v", opts.Crontab, err)
		return 1
	}

	records, err := config.ParseHistoryFile(opts.History)
	if err != nil {
		logger.Warningf("loading history %q: %v", opts.History, err)
	}
	config.ApplyHistory(crontab.Jobs, records)

	now := time.Now()
	queue := core.NewRunQueue()
	for _, j := range crontab.Jobs {
		if !j.RunAt {
			if err := j.SetInitialExecTime(now); err != nil {
				logger.Warningf("job %d: %v, retiring", j.ID, err)
				j.ExecTime = 0
			}
		}
		if j.Alive() {
			queue.Insert(j)
		} else {
			queue.InsertDead(j)
		}
	}

	if queue.IsEmptyLive() {
		logger.Criticalf("no jobs, exiting")
		return 1
	}

	history := config.NewHistoryStore(opts.History)
	spawner := exec.NewSpawner(crontab.Extras, logger)
	dispatcher := core.NewDispatcher(queue, core.RealClock{}, spawner, history, logger)
	dispatcher.Verbose = opts.Verbose
	dispatcher.NoSave = opts.NoExecSave
	dispatcher.JournalAll = opts.Journal
	dispatcher.InitialSleep = time.Duration(opts.Sleep) * time.Second

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		s := <-sig
		logger.Noticef("received signal %v, shutting down", s)
		dispatcher.RequestShutdown()
	}()

	if opts.S6Notify >= 0 {
		if err := exec.S6Notify(opts.S6Notify); err != nil {
			logger.Warningf("s6 readiness notification failed: %v", err)
		}
	}

	if err := dispatcher.Run(); err != nil {
		logger.Criticalf("dispatch loop exited: %v", err)
		return 1
	}
	return 0
}

func failOnUnreadable(path string) error {
	f, err := os.Open(path) //nolint:gosec // operator-supplied config path
	if err != nil {
		return fmt.Errorf("crontab %q does not exist or is not readable: %w", path, err)
	}
	return f.Close()
}
