package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/partest/packages/core/capture"
	"github.com/abdul-hamid-achik/partest/packages/core/registry"
	"github.com/abdul-hamid-achik/partest/packages/core/status"
	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ua "go.uber.org/atomic"
)

// signalBody asserts its argument is not Panicked, then finishes with it.
func signalBody(t *capture.T, arg any) {
	state := arg.(status.State)
	t.Assert(state != status.Panicked, "state != status.Panicked")
	t.Done(state)
	panic("unreachable")
}

func demoRegistry() *registry.Registry {
	reg := registry.New()
	reg.MustRegister(registry.Test{Name: "panicked", Func: signalBody, Arg: status.Panicked, Level: 0})
	reg.MustRegister(registry.Test{Name: "failed", Func: signalBody, Arg: status.Failed, Level: 0})
	reg.MustRegister(registry.Test{Name: "passed", Func: signalBody, Arg: status.Passed, Level: 0})
	reg.MustRegister(registry.Test{Name: "skip-lvl", Func: signalBody, Arg: status.State(-1), Level: -1})
	reg.MustRegister(registry.Test{Name: "skip-re", Func: signalBody, Arg: status.State(-1), Level: 49})
	return reg
}

func states(reg *registry.Registry) []status.State {
	var out []status.State
	for t := range reg.All() {
		out = append(out, t.State())
	}
	return out
}

func newTestRunner(cfg *Config) *Runner {
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}
	if cfg.Output == nil {
		cfg.Output = &bytes.Buffer{}
	}
	return NewRunner(cfg)
}

func TestNewRunner(t *testing.T) {
	t.Run("with nil config", func(t *testing.T) {
		r := NewRunner(nil)
		assert.NotNil(t, r)
		assert.Same(t, registry.Default, r.config.Registry)
		assert.NotNil(t, r.log)
		assert.NotNil(t, r.launcher)
		assert.NotNil(t, r.exit)
	})

	t.Run("with custom config", func(t *testing.T) {
		reg := registry.New()
		r := NewRunner(&Config{Registry: reg, MinLevel: 3, Pattern: "x"})
		assert.Same(t, reg, r.config.Registry)
		assert.Equal(t, 3, r.config.MinLevel)
	})
}

func TestRunner_Run_DemoSuite(t *testing.T) {
	reg := demoRegistry()
	var out bytes.Buffer

	r := newTestRunner(&Config{
		Registry: reg,
		MinLevel: 0,
		Pattern:  "passed|failed|panicked|skip-lvl",
		Output:   &out,
	})
	result, err := r.Run(context.Background())
	require.NoError(t, err)

	want := []status.State{status.Panicked, status.Failed, status.Passed, status.Skipped, status.Skipped}
	if diff := cmp.Diff(want, states(reg)); diff != "" {
		t.Fatalf("states mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Panicked)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, 3, result.Launched)
	assert.Equal(t, 3, result.Completed)
	assert.True(t, result.HasFailures())
	assert.NotEmpty(t, result.ID)

	require.Len(t, result.Results, 5)
	assert.Equal(t, "below level threshold", result.Results[3].SkipReason)
	assert.Equal(t, "name does not match pattern", result.Results[4].SkipReason)
	assert.Equal(t, []string{`Assertion of "state != status.Panicked" failed!`}, result.Results[0].Messages)
	assert.Contains(t, out.String(), "panicked: Assertion of \"state != status.Panicked\" failed!\n")
}

func TestRunner_Run_NeverLeavesUnset(t *testing.T) {
	reg := demoRegistry()
	reg.MustRegister(registry.Test{Name: "returns", Func: func(t *capture.T, arg any) {}})
	reg.MustRegister(registry.Test{Name: "go-panic", Func: func(t *capture.T, arg any) {
		var m map[string]int
		m["x"] = 1
	}})

	_, err := newTestRunner(&Config{Registry: reg, MinLevel: 0, Pattern: "passed|failed|panicked|skip-lvl|returns|go-panic"}).
		Run(context.Background())
	require.NoError(t, err)

	for tt := range reg.All() {
		assert.True(t, tt.State().Valid(), "%s ended %v", tt.Name, tt.State())
	}
	got, _ := reg.Lookup("returns")
	assert.Equal(t, status.Passed, got.State())
	got, _ = reg.Lookup("go-panic")
	assert.Equal(t, status.Panicked, got.State())
}

func TestRunner_Run_LaunchesExactlyN(t *testing.T) {
	const n = 200
	reg := registry.New()
	var started ua.Int64
	for i := 0; i < n; i++ {
		reg.MustRegister(registry.Test{
			Name:  fmt.Sprintf("t%03d", i),
			Level: i % 7,
			Func: func(t *capture.T, arg any) {
				started.Inc()
				if arg.(int)%2 == 0 {
					t.Done(status.Passed)
				}
			},
			Arg: i,
		})
	}

	var completed ua.Int64
	r := newTestRunner(&Config{
		Registry:   reg,
		MinLevel:   -1 << 31,
		OnComplete: func(*TestResult) { completed.Inc() },
	})
	result, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(n), started.Load())
	assert.Equal(t, int64(n), completed.Load())
	assert.Equal(t, n, result.Launched)
	assert.Equal(t, n, result.Completed)
	assert.Equal(t, n, result.Passed)
}

func TestRunner_Run_OutOfRangeState(t *testing.T) {
	reg := registry.New()
	tt := reg.MustRegister(registry.Test{Name: "weird", Func: func(t *capture.T, arg any) {
		t.Done(status.State(99))
	}})

	result, err := newTestRunner(&Config{Registry: reg}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, status.State(99), tt.State())
	assert.Equal(t, status.InvalidMarker, tt.State().String())
	assert.Equal(t, 1, result.Invalid)
	assert.True(t, result.HasFailures())
}

func TestRunner_Run_PatternError(t *testing.T) {
	reg := demoRegistry()
	first, _ := reg.Lookup("passed")
	first.SetState(status.Passed)

	result, err := newTestRunner(&Config{Registry: reg, Pattern: "("}).Run(context.Background())
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrPattern)

	want := []status.State{status.Unset, status.Unset, status.Passed, status.Unset, status.Unset}
	assert.Equal(t, want, states(reg))
	assert.False(t, reg.Sealed())
}

func TestRunner_Run_UnknownFlags(t *testing.T) {
	reg := demoRegistry()
	_, err := newTestRunner(&Config{Registry: reg, Flags: 0x4}).Run(context.Background())
	assert.ErrorIs(t, err, ErrInvalidArgument)
	for _, s := range states(reg) {
		assert.Equal(t, status.Unset, s)
	}
}

func TestRunner_Run_DryRun(t *testing.T) {
	reg := demoRegistry()
	ran := false
	reg.MustRegister(registry.Test{Name: "body-must-not-run", Func: func(t *capture.T, arg any) { ran = true }})

	var out bytes.Buffer
	exitCode := -1
	r := newTestRunner(&Config{
		Registry: reg,
		Flags:    FlagDryRun,
		Output:   &out,
		Exit:     func(code int) { exitCode = code },
	})
	result, err := r.Run(context.Background())
	assert.ErrorIs(t, err, ErrDryRunExit)
	require.NotNil(t, result)

	assert.Equal(t, 0, exitCode)
	assert.False(t, ran)
	assert.Equal(t, "panicked\nfailed\npassed\nskip-re\nbody-must-not-run\n", out.String())

	for tt := range reg.All() {
		assert.NotContains(t, []status.State{status.Passed, status.Failed, status.Panicked}, tt.State())
	}
	skip, _ := reg.Lookup("skip-lvl")
	assert.Equal(t, status.Skipped, skip.State())
}

func TestRunner_Run_DryRunWithPattern(t *testing.T) {
	var out bytes.Buffer
	reg := demoRegistry()
	r := newTestRunner(&Config{
		Registry: reg,
		Flags:    FlagDryRun,
		Pattern:  "^SKIP",
		MinLevel: 0,
		Output:   &out,
		Exit:     func(int) {},
	})
	_, _ = r.Run(context.Background())
	assert.Equal(t, "skip-re\n", out.String())
}

func TestRunner_Run_LaunchFailure(t *testing.T) {
	reg := demoRegistry()
	launches := 0
	launcher := LauncherFunc(func(fn func()) error {
		launches++
		if launches == 2 {
			return errors.New("resource temporarily unavailable")
		}
		go fn()
		return nil
	})

	done := make(chan *RunResult, 1)
	go func() {
		result, err := newTestRunner(&Config{Registry: reg, Launcher: launcher}).Run(context.Background())
		assert.NoError(t, err)
		done <- result
	}()

	select {
	case result := <-done:
		failed, _ := reg.Lookup("failed")
		assert.Equal(t, status.Failed, failed.State())
		require.Error(t, result.Results[1].LaunchError)
		assert.Equal(t, 3, result.Launched)
		assert.Equal(t, 3, result.Completed)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after a launch failure")
	}
}

func TestRunner_Run_ContextCancelled(t *testing.T) {
	reg := registry.New()
	release := make(chan struct{})
	reg.MustRegister(registry.Test{Name: "quick", Func: func(t *capture.T, arg any) {}})
	reg.MustRegister(registry.Test{Name: "stuck", Func: func(t *capture.T, arg any) { <-release }})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result, err := newTestRunner(&Config{Registry: reg}).Run(ctx)
	assert.ErrorIs(t, err, ErrPrimitive)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotNil(t, result)
	assert.Equal(t, 2, result.Launched)
	assert.Equal(t, 1, result.Completed)
}

func TestRunner_Run_AssertionHandler(t *testing.T) {
	reg := demoRegistry()
	r := newTestRunner(&Config{
		Registry: reg,
		Pattern:  "panicked",
		AssertionHandler: func(t *capture.T, expr string) {
			t.Fail("custom: %s", expr)
		},
	})
	result, err := r.Run(context.Background())
	require.NoError(t, err)

	p, _ := reg.Lookup("panicked")
	assert.Equal(t, status.Failed, p.State())
	assert.Equal(t, []string{"custom: state != status.Panicked"}, result.Results[0].Messages)
}

func TestRunner_Run_SealsRegistry(t *testing.T) {
	reg := demoRegistry()
	_, err := newTestRunner(&Config{Registry: reg}).Run(context.Background())
	require.NoError(t, err)

	_, err = reg.Add(registry.Test{Name: "late", Func: func(t *capture.T, arg any) {}})
	assert.ErrorIs(t, err, registry.ErrSealed)
}

func TestRunner_Run_Rerun(t *testing.T) {
	reg := demoRegistry()
	r := newTestRunner(&Config{Registry: reg, Pattern: "passed|failed|panicked|skip-lvl"})

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	first := states(reg)

	_, err = r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, states(reg))
}

func TestRunner_Run_GoPanicRecorded(t *testing.T) {
	reg := registry.New()
	reg.MustRegister(registry.Test{Name: "boom", Func: func(t *capture.T, arg any) {
		panic("kaboom")
	}})

	var logs bytes.Buffer
	logger := hclog.New(&hclog.LoggerOptions{Output: &logs, Level: hclog.Error})

	result, err := newTestRunner(&Config{Registry: reg, Logger: logger}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, status.Panicked, result.Results[0].State)
	assert.Equal(t, "kaboom", result.Results[0].Panic)
	assert.True(t, strings.Contains(logs.String(), "test panicked"))
}

func TestRunner_Run_RerunAfterCancelledWait(t *testing.T) {
	reg := registry.New()
	release := make(chan struct{})
	started := make(chan struct{})
	var rerun ua.Bool
	slow := reg.MustRegister(registry.Test{Name: "slow", Func: func(t *capture.T, arg any) {
		if rerun.Load() {
			t.Done(status.Passed)
		}
		close(started)
		<-release
		t.Done(status.Failed)
	}})
	r := newTestRunner(&Config{Registry: reg})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-started
		cancel()
	}()
	_, err := r.Run(ctx)
	require.ErrorIs(t, err, ErrPrimitive)

	rerun.Store(true)
	result, err := r.Run(context.Background())
	assert.ErrorIs(t, err, ErrPrimitive)
	assert.ErrorIs(t, err, registry.ErrBusy)
	assert.Nil(t, result)
	assert.Equal(t, 1, reg.InFlight())

	close(release)
	require.Eventually(t, func() bool { return reg.InFlight() == 0 }, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, status.Failed, slow.State())

	result, err = r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, status.Passed, result.Results[0].State)
	assert.Equal(t, status.Passed, slow.State())
}

func TestRunner_Run_DryRunAfterRun(t *testing.T) {
	reg := demoRegistry()
	_, err := newTestRunner(&Config{Registry: reg, Pattern: "passed|failed|panicked"}).Run(context.Background())
	require.NoError(t, err)

	_, err = newTestRunner(&Config{
		Registry: reg,
		Flags:    FlagDryRun,
		Exit:     func(int) {},
	}).Run(context.Background())
	require.ErrorIs(t, err, ErrDryRunExit)

	assert.Equal(t, []status.State{
		status.Unset, status.Unset, status.Unset, status.Skipped, status.Unset,
	}, states(reg))
}
