package runner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinator_WaitCollectsEveryPost(t *testing.T) {
	const n = 50
	c := newCoordinator(n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		c.Expect()
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Post(completion{})
		}()
	}

	received := 0
	err := c.Wait(context.Background(), func(completion) { received++ })
	require.NoError(t, err)
	wg.Wait()

	assert.Equal(t, n, received)
	assert.Equal(t, int64(n), c.Expected())
	assert.Equal(t, int64(n), c.Posted())
}

func TestCoordinator_WaitWithNothingExpected(t *testing.T) {
	c := newCoordinator(0)
	err := c.Wait(context.Background(), func(completion) {
		t.Fatal("no completion expected")
	})
	assert.NoError(t, err)
}

func TestCoordinator_WaitInterrupted(t *testing.T) {
	c := newCoordinator(2)
	c.Expect()
	c.Expect()
	c.Post(completion{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.Wait(ctx, func(completion) {})
	assert.ErrorIs(t, err, ErrPrimitive)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "1 of 2 tests still running")
}
