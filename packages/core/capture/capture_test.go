package capture

import (
	"bytes"
	"errors"
	"runtime"
	"sync"
	"testing"

	"github.com/abdul-hamid-achik/partest/packages/core/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runSync runs fn on its own goroutine and waits for the outcome.
func runSync(t *T, fn Func) Outcome {
	var (
		out Outcome
		wg  sync.WaitGroup
	)
	wg.Add(1)
	go Run(t, fn, func(o Outcome) {
		out = o
		wg.Done()
	})
	wg.Wait()
	return out
}

func TestRun_NormalReturnPasses(t *testing.T) {
	ct := New("ok", nil, WithOutput(&bytes.Buffer{}))
	out := runSync(ct, func(t *T, arg any) {})
	assert.Equal(t, status.Passed, out.State)
	assert.Nil(t, out.Recovered)
	assert.False(t, out.Goexit)
}

func TestRun_AbortHelpers(t *testing.T) {
	tests := []struct {
		name    string
		body    Func
		want    status.State
		message string
	}{
		{
			name: "done with state",
			body: func(t *T, arg any) { t.Done(status.Skipped) },
			want: status.Skipped,
		},
		{
			name: "done with unset resumes as passed",
			body: func(t *T, arg any) { t.Done(status.Unset) },
			want: status.Passed,
		},
		{
			name:    "fail",
			body:    func(t *T, arg any) { t.Fail("bad value %d", 3) },
			want:    status.Failed,
			message: "fail: bad value 3\n",
		},
		{
			name:    "panic",
			body:    func(t *T, arg any) { t.Panic("boom") },
			want:    status.Panicked,
			message: "panic: boom\n",
		},
		{
			name: "fail now",
			body: func(t *T, arg any) { t.FailNow() },
			want: status.Failed,
		},
		{
			name: "out of range status is kept",
			body: func(t *T, arg any) { t.Done(status.State(99)) },
			want: status.State(99),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			reached := false
			out := runSync(New(tt.name, nil, WithOutput(&buf)), func(ct *T, arg any) {
				tt.body(ct, arg)
				reached = true
			})
			assert.Equal(t, tt.want, out.State)
			assert.False(t, reached, "code after an abort must not run")
			assert.Equal(t, tt.message, buf.String())
		})
	}
}

func TestRun_AbortFromNestedCall(t *testing.T) {
	deep := func(ct *T) {
		func() {
			ct.Fail("deep")
		}()
	}
	out := runSync(New("nested", nil, WithOutput(&bytes.Buffer{})), func(ct *T, arg any) {
		deep(ct)
		ct.Done(status.Passed)
	})
	assert.Equal(t, status.Failed, out.State)
}

func TestRun_RecoveredAbortKeepsSignalledState(t *testing.T) {
	t.Run("fail under recover", func(t *testing.T) {
		ct := New("guarded", nil, WithOutput(&bytes.Buffer{}))
		out := runSync(ct, func(t *T, arg any) {
			defer func() { recover() }()
			t.Fail("boom")
		})
		assert.Equal(t, status.Failed, out.State)
		assert.Nil(t, out.Recovered)
		assert.Equal(t, []string{"boom"}, ct.Messages())
	})

	t.Run("helper swallows abort and body returns", func(t *testing.T) {
		swallow := func(t *T) {
			defer func() { recover() }()
			t.Done(status.Skipped)
		}
		out := runSync(New("helper", nil, WithOutput(&bytes.Buffer{})), func(t *T, arg any) {
			swallow(t)
		})
		assert.Equal(t, status.Skipped, out.State)
	})

	t.Run("first signal wins", func(t *testing.T) {
		out := runSync(New("twice", nil, WithOutput(&bytes.Buffer{})), func(t *T, arg any) {
			func() {
				defer func() { recover() }()
				t.Fail("first")
			}()
			t.Panic("second")
		})
		assert.Equal(t, status.Failed, out.State)
	})

	t.Run("go panic after swallowed abort", func(t *testing.T) {
		out := runSync(New("mixed", nil, WithOutput(&bytes.Buffer{})), func(t *T, arg any) {
			func() {
				defer func() { recover() }()
				t.FailNow()
			}()
			panic("later")
		})
		assert.Equal(t, status.Failed, out.State)
		assert.Nil(t, out.Recovered)
	})
}

func TestRun_GoPanicIsPanicked(t *testing.T) {
	out := runSync(New("crash", nil), func(ct *T, arg any) {
		var m map[string]int
		m["x"] = 1
	})
	assert.Equal(t, status.Panicked, out.State)
	require.NotNil(t, out.Recovered)
	assert.NotEmpty(t, out.Stack)

	out = runSync(New("crash", nil), func(ct *T, arg any) {
		panic(errors.New("plain"))
	})
	assert.Equal(t, status.Panicked, out.State)
	assert.EqualError(t, out.Recovered.(error), "plain")
}

func TestRun_GoexitIsFailed(t *testing.T) {
	out := runSync(New("goexit", nil), func(ct *T, arg any) {
		runtime.Goexit()
	})
	assert.Equal(t, status.Failed, out.State)
	assert.True(t, out.Goexit)
}

func TestAssert(t *testing.T) {
	t.Run("default handler panics with predicate text", func(t *testing.T) {
		var buf bytes.Buffer
		out := runSync(New("assert", nil, WithOutput(&buf)), func(ct *T, arg any) {
			ct.Assert(1+1 == 3, "1+1 == 3")
		})
		assert.Equal(t, status.Panicked, out.State)
		assert.Equal(t, "assert: Assertion of \"1+1 == 3\" failed!\n", buf.String())
	})

	t.Run("true predicate continues", func(t *testing.T) {
		out := runSync(New("assert", nil), func(ct *T, arg any) {
			ct.Assert(true, "true")
		})
		assert.Equal(t, status.Passed, out.State)
	})

	t.Run("custom handler", func(t *testing.T) {
		var seen string
		handler := func(ct *T, expr string) {
			seen = expr
			ct.Done(status.Failed)
		}
		out := runSync(New("assert", nil, WithAssertionHandler(handler)), func(ct *T, arg any) {
			ct.Assert(false, "x > 0")
		})
		assert.Equal(t, status.Failed, out.State)
		assert.Equal(t, "x > 0", seen)
	})

	t.Run("handler may return", func(t *testing.T) {
		handler := func(ct *T, expr string) {}
		out := runSync(New("assert", nil, WithAssertionHandler(handler)), func(ct *T, arg any) {
			ct.Assert(false, "ignored")
		})
		assert.Equal(t, status.Passed, out.State)
	})
}

func TestT_TestifyBridge(t *testing.T) {
	t.Run("assert records and continues", func(t *testing.T) {
		var buf bytes.Buffer
		reached := false
		ct := New("testify", nil, WithOutput(&buf))
		out := runSync(ct, func(ct *T, arg any) {
			assert.Equal(ct, 1, 2)
			reached = true
		})
		assert.Equal(t, status.Failed, out.State)
		assert.True(t, reached)
		assert.True(t, ct.Failed())
		assert.Contains(t, buf.String(), "testify: ")
		require.Len(t, ct.Messages(), 1)
	})

	t.Run("require aborts", func(t *testing.T) {
		reached := false
		out := runSync(New("testify", nil, WithOutput(&bytes.Buffer{})), func(ct *T, arg any) {
			require.NoError(ct, errors.New("nope"))
			reached = true
		})
		assert.Equal(t, status.Failed, out.State)
		assert.False(t, reached)
	})
}

func TestT_Accessors(t *testing.T) {
	ct := New("name", 42)
	assert.Equal(t, "name", ct.Name())
	assert.Equal(t, 42, ct.Arg())

	var got any
	runSync(ct, func(ct *T, arg any) { got = arg })
	assert.Equal(t, 42, got)
}
