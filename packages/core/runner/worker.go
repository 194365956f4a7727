package runner

import (
	"fmt"

	"github.com/abdul-hamid-achik/partest/packages/core/capture"
	"github.com/abdul-hamid-achik/partest/packages/core/registry"
	"github.com/hashicorp/go-hclog"
)

// worker runs one test body and records its outcome.
type worker struct {
	reg   *registry.Registry
	test  *registry.Test
	t     *capture.T
	coord *coordinator
	log   hclog.Logger
}

func newWorker(reg *registry.Registry, test *registry.Test, t *capture.T, coord *coordinator, log hclog.Logger) *worker {
	return &worker{
		reg:   reg,
		test:  test,
		t:     t,
		coord: coord,
		log:   log.With("test", test.Name),
	}
}

// run is the worker goroutine. The completion callback runs on every exit
// path, including runtime.Goexit inside the body.
func (w *worker) run() {
	w.log.Debug("test started")

	capture.Run(w.t, w.test.Func, func(out capture.Outcome) {
		w.test.SetState(out.State)

		switch {
		case out.Recovered != nil:
			w.log.Error("test panicked", "panic", fmt.Sprint(out.Recovered), "stack", string(out.Stack))
		case out.Goexit:
			w.log.Warn("test called runtime.Goexit")
		}
		w.log.Debug("test finished", "state", out.State, "duration", out.Duration)
		w.reg.Finished()

		w.coord.Post(completion{
			test:     w.test,
			outcome:  out,
			messages: w.t.Messages(),
		})
	})
}
