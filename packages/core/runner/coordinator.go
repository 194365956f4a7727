package runner

import (
	"context"
	"fmt"

	"github.com/abdul-hamid-achik/partest/packages/core/capture"
	"github.com/abdul-hamid-achik/partest/packages/core/registry"
	ua "go.uber.org/atomic"
)

// completion is posted once by every worker that was launched.
type completion struct {
	test     *registry.Test
	outcome  capture.Outcome
	messages []string
}

// coordinator counts expected completions and collects the posted ones.
type coordinator struct {
	posts    chan completion
	expected ua.Int64
	posted   ua.Int64
}

// newCoordinator sizes the post buffer so workers never block on Post.
func newCoordinator(capacity int) *coordinator {
	return &coordinator{
		posts: make(chan completion, capacity),
	}
}

// Expect registers one more completion to wait for.
func (c *coordinator) Expect() {
	c.expected.Inc()
}

// Post delivers a worker's completion. It is safe from any goroutine.
func (c *coordinator) Post(done completion) {
	c.posted.Inc()
	c.posts <- done
}

// Wait receives exactly one completion per Expect call, handing each to fn
// on the calling goroutine. Cancelling ctx abandons the wait; workers that
// are still running are not stopped.
func (c *coordinator) Wait(ctx context.Context, fn func(completion)) error {
	expected := c.expected.Load()
	for received := int64(0); received < expected; received++ {
		select {
		case done := <-c.posts:
			fn(done)
		case <-ctx.Done():
			return fmt.Errorf("%w: %d of %d tests still running: %w",
				ErrPrimitive, expected-received, expected, ctx.Err())
		}
	}
	return nil
}

func (c *coordinator) Expected() int64 { return c.expected.Load() }

func (c *coordinator) Posted() int64 { return c.posted.Load() }
