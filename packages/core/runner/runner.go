package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/partest/packages/core/capture"
	"github.com/abdul-hamid-achik/partest/packages/core/filter"
	"github.com/abdul-hamid-achik/partest/packages/core/registry"
	"github.com/abdul-hamid-achik/partest/packages/core/status"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// Flags modify how Run behaves.
type Flags uint

const (
	// FlagDryRun lists eligible tests and exits the process.
	FlagDryRun Flags = 1 << iota

	knownFlags = FlagDryRun
)

type Runner struct {
	config   *Config
	log      hclog.Logger
	out      io.Writer
	launcher Launcher
	exit     func(int)
}

type Config struct {
	// Registry defaults to registry.Default.
	Registry *registry.Registry
	Flags    Flags
	MinLevel int
	Pattern  string

	// Output receives the dry-run listing and messages printed by tests.
	// Defaults to os.Stdout.
	Output io.Writer
	Logger hclog.Logger

	Launcher         Launcher
	AssertionHandler capture.AssertionHandler

	// Exit terminates the process after a dry run. Defaults to os.Exit.
	Exit func(code int)

	// OnComplete is called on the dispatching goroutine as each launched
	// test finishes.
	OnComplete func(*TestResult)
}

func NewRunner(cfg *Config) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Registry == nil {
		cfg.Registry = registry.Default
	}

	r := &Runner{
		config:   cfg,
		log:      cfg.Logger,
		out:      cfg.Output,
		launcher: cfg.Launcher,
		exit:     cfg.Exit,
	}
	if r.log == nil {
		r.log = hclog.New(&hclog.LoggerOptions{
			Name:   "partest",
			Level:  hclog.Warn,
			Output: os.Stderr,
		})
	}
	if r.out == nil {
		r.out = os.Stdout
	}
	r.out = &syncWriter{w: r.out}
	if r.launcher == nil {
		r.launcher = GoLauncher
	}
	if r.exit == nil {
		r.exit = os.Exit
	}
	return r
}

type RunResult struct {
	ID       string
	Started  time.Time
	Duration time.Duration
	MinLevel int
	Pattern  string

	// Results holds one entry per registered test, in registry order.
	Results []*TestResult

	Passed   int
	Failed   int
	Skipped  int
	Panicked int
	// Invalid counts tests that ended with a state outside the four outcomes.
	Invalid int

	Launched  int
	Completed int
}

type TestResult struct {
	Name       string
	Level      int
	State      status.State
	SkipReason string
	Duration   time.Duration
	Messages   []string
	// Panic is set when the body panicked outside the abort helpers.
	Panic       string
	LaunchError error
}

func (r *RunResult) Total() int {
	return len(r.Results)
}

// HasFailures reports whether any test failed, panicked or ended invalid.
func (r *RunResult) HasFailures() bool {
	return r.Failed > 0 || r.Panicked > 0 || r.Invalid > 0
}

func (r *RunResult) tally() {
	r.Passed, r.Failed, r.Skipped, r.Panicked, r.Invalid = 0, 0, 0, 0, 0
	for _, res := range r.Results {
		switch res.State {
		case status.Passed:
			r.Passed++
		case status.Failed:
			r.Failed++
		case status.Skipped:
			r.Skipped++
		case status.Panicked:
			r.Panicked++
		default:
			r.Invalid++
		}
	}
}

// Run filters the registry, runs every eligible test concurrently and waits
// for all of them. With FlagDryRun it prints the eligible names, one per
// line, and exits the process instead.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	cfg := r.config
	if cfg.Flags&^knownFlags != 0 {
		return nil, fmt.Errorf("%w: unknown flags %#x", ErrInvalidArgument, uint(cfg.Flags&^knownFlags))
	}

	f, err := filter.New(cfg.MinLevel, cfg.Pattern)
	if err != nil {
		return nil, err
	}

	result := &RunResult{
		ID:       uuid.New().String(),
		Started:  time.Now(),
		MinLevel: cfg.MinLevel,
		Pattern:  cfg.Pattern,
	}

	if cfg.Flags&FlagDryRun != 0 {
		return r.listAndExit(f, result)
	}

	return r.dispatch(ctx, f, result)
}

func (r *Runner) listAndExit(f *filter.Filter, result *RunResult) (*RunResult, error) {
	reg := r.config.Registry
	if err := reg.Begin(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPrimitive, err)
	}
	defer reg.End()

	for t := range reg.All() {
		res := &TestResult{Name: t.Name, Level: t.Level}
		result.Results = append(result.Results, res)

		if !f.Eligible(t) {
			res.State = status.Skipped
			res.SkipReason = f.Reason(t).String()
			continue
		}
		fmt.Fprintln(r.out, t.Name)
	}

	r.exit(0)

	result.Duration = time.Since(result.Started)
	return result, ErrDryRunExit
}

func (r *Runner) dispatch(ctx context.Context, f *filter.Filter, result *RunResult) (*RunResult, error) {
	reg := r.config.Registry
	if err := reg.Begin(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPrimitive, err)
	}
	defer reg.End()

	r.log.Info("starting run", "run_id", result.ID, "tests", reg.Len(),
		"min_level", f.MinLevel(), "pattern", f.Pattern())

	coord := newCoordinator(reg.Len())
	byTest := make(map[*registry.Test]*TestResult, reg.Len())

	for t := range reg.All() {
		res := &TestResult{Name: t.Name, Level: t.Level}
		result.Results = append(result.Results, res)
		byTest[t] = res

		if !f.Eligible(t) {
			res.State = status.Skipped
			res.SkipReason = f.Reason(t).String()
			continue
		}

		ct := capture.New(t.Name, t.Arg,
			capture.WithOutput(r.out),
			capture.WithAssertionHandler(r.config.AssertionHandler),
		)
		w := newWorker(reg, t, ct, coord, r.log)

		reg.Launched()
		if err := r.launcher.Launch(w.run); err != nil {
			reg.Finished()
			r.log.Error("failed to launch test", "test", t.Name, "error", err)
			t.SetState(status.Failed)
			res.State = status.Failed
			res.LaunchError = err
			continue
		}
		coord.Expect()
		result.Launched++
	}

	err := coord.Wait(ctx, func(done completion) {
		res := byTest[done.test]
		res.State = done.outcome.State
		res.Duration = done.outcome.Duration
		res.Messages = done.messages
		if done.outcome.Recovered != nil {
			res.Panic = fmt.Sprint(done.outcome.Recovered)
		}
		result.Completed++

		if r.config.OnComplete != nil {
			r.config.OnComplete(res)
		}
	})

	result.Duration = time.Since(result.Started)
	result.tally()

	if err != nil {
		r.log.Error("run interrupted", "run_id", result.ID, "error", err)
		return result, err
	}

	r.log.Info("run finished", "run_id", result.ID, "duration", result.Duration,
		"passed", result.Passed, "failed", result.Failed,
		"panicked", result.Panicked, "skipped", result.Skipped)
	return result, nil
}

// syncWriter serializes writes from concurrently running tests.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
