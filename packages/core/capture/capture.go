package capture

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/partest/packages/core/status"
)

// Func is the entry point of a registered test.
type Func func(t *T, arg any)

// AssertionHandler is called when Assert sees a false predicate. It may abort
// the test through t or return to let the body continue.
type AssertionHandler func(t *T, expr string)

// DefaultAssertionHandler panics the test, naming the failed predicate.
func DefaultAssertionHandler(t *T, expr string) {
	t.Panic("Assertion of %q failed!", expr)
}

// abort is the value carried from an abort helper to the capture point.
type abort struct {
	state status.State
}

// T is the current-test binding handed to a test body. It must only be used
// from the goroutine running that body.
type T struct {
	name     string
	arg      any
	out      io.Writer
	onAssert AssertionHandler

	mu       sync.Mutex
	messages []string
	failed   bool
	// signaled is the first state passed to an abort helper. It survives a
	// recover inside the body.
	signaled *status.State
}

type Option func(*T)

// WithOutput sets where Printf and the failing helpers write. Callers running
// many tests at once should pass a writer that serializes writes.
func WithOutput(w io.Writer) Option {
	return func(t *T) {
		t.out = w
	}
}

func WithAssertionHandler(h AssertionHandler) Option {
	return func(t *T) {
		if h != nil {
			t.onAssert = h
		}
	}
}

func New(name string, arg any, opts ...Option) *T {
	t := &T{
		name:     name,
		arg:      arg,
		out:      os.Stdout,
		onAssert: DefaultAssertionHandler,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *T) Name() string { return t.name }

func (t *T) Arg() any { return t.arg }

// Messages returns everything printed through T, without the name prefix.
func (t *T) Messages() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.messages...)
}

// Failed reports whether Errorf was called.
func (t *T) Failed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failed
}

// signal records state if no outcome was signalled yet and unwinds to the
// capture point.
func (t *T) signal(state status.State) {
	t.mu.Lock()
	if t.signaled == nil {
		t.signaled = &state
	}
	t.mu.Unlock()

	panic(abort{state: state})
}

// Signaled returns the first outcome passed to an abort helper.
func (t *T) Signaled() (status.State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.signaled == nil {
		return status.Unset, false
	}
	return *t.signaled, true
}

// Printf prints a message prefixed by the test name.
func (t *T) Printf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	t.mu.Lock()
	t.messages = append(t.messages, msg)
	t.mu.Unlock()

	fmt.Fprintf(t.out, "%s: %s\n", t.name, msg)
}

// Done stops the test with the given state. Unset resumes as Passed. Values
// outside the known states are stored as given.
func (t *T) Done(state status.State) {
	if state == status.Unset {
		state = status.Passed
	}
	t.signal(state)
}

// Fail prints the message and stops the test as Failed.
func (t *T) Fail(format string, args ...any) {
	t.Printf(format, args...)
	t.signal(status.Failed)
}

// Panic prints the message and stops the test as Panicked.
func (t *T) Panic(format string, args ...any) {
	t.Printf(format, args...)
	t.signal(status.Panicked)
}

// Assert hands a false predicate to the assertion handler. expr is the source
// text of the predicate, used in the failure message.
func (t *T) Assert(ok bool, expr string) {
	if !ok {
		t.onAssert(t, expr)
	}
}

// Errorf records a failure and lets the body continue.
func (t *T) Errorf(format string, args ...any) {
	t.mu.Lock()
	t.failed = true
	t.mu.Unlock()

	t.Printf("%s", strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// FailNow stops the test as Failed without a message.
func (t *T) FailNow() {
	t.signal(status.Failed)
}

// Outcome is what the capture point saw when the body stopped.
type Outcome struct {
	State    status.State
	Duration time.Duration
	// Recovered holds a panic value that did not come from an abort helper.
	Recovered any
	Stack     []byte
	// Goexit is set when the body called runtime.Goexit.
	Goexit bool
}

// Run executes fn under a capture point and reports the outcome to done
// exactly once, on every path, before returning. done is also called when the
// body ends the goroutine through runtime.Goexit; Run does not return then.
// The first outcome signalled through an abort helper wins, even when the
// body recovered it and went on.
func Run(t *T, fn Func, done func(Outcome)) {
	start := time.Now()
	returned := false

	defer func() {
		out := Outcome{}
		switch r := recover().(type) {
		case nil:
			switch {
			case !returned:
				out.State = status.Failed
				out.Goexit = true
			case t.Failed():
				out.State = status.Failed
			default:
				out.State = status.Passed
			}
		case abort:
			out.State = r.state
		default:
			out.State = status.Panicked
			out.Recovered = r
			out.Stack = debug.Stack()
		}
		if state, ok := t.Signaled(); ok {
			out.State = state
			out.Recovered = nil
			out.Stack = nil
		}
		out.Duration = time.Since(start)
		done(out)
	}()

	fn(t, t.arg)
	returned = true
}
