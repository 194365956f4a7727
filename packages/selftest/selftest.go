// Package selftest registers a small suite that exercises every outcome the
// runner can record. Importing it for side effects adds the suite to
// registry.Default:
//
//	import _ "github.com/abdul-hamid-achik/partest/packages/selftest"
package selftest

import (
	"github.com/abdul-hamid-achik/partest/packages/core/capture"
	"github.com/abdul-hamid-achik/partest/packages/core/registry"
	"github.com/abdul-hamid-achik/partest/packages/core/status"
)

// DefaultPattern selects every self-test that is expected to run, plus
// skip-lvl which the level threshold excludes first.
const DefaultPattern = "passed|failed|panicked|skip-lvl"

// Tests lists the suite in registration order. The skip-* tests carry an
// invalid state and would record it if they ever ran.
var Tests = []registry.Test{
	{Name: "panicked", Func: signal, Arg: status.Panicked, Level: 0},
	{Name: "failed", Func: signal, Arg: status.Failed, Level: 0},
	{Name: "passed", Func: signal, Arg: status.Passed, Level: 0},
	{Name: "skip-lvl", Func: signal, Arg: status.State(-1), Level: -1},
	{Name: "skip-re", Func: signal, Arg: status.State(-1), Level: 49},
}

func init() {
	RegisterInto(registry.Default)
}

// RegisterInto adds the suite to reg.
func RegisterInto(reg *registry.Registry) {
	for _, t := range Tests {
		reg.MustRegister(t)
	}
}

// signal finishes the test with the state passed as its argument.
func signal(t *capture.T, arg any) {
	state := arg.(status.State)

	t.Assert(state != status.Panicked, "state != status.Panicked")
	t.Done(state)
	t.Printf("NEVER REACHED")
}
