package selftest

import (
	"bytes"
	"context"
	"testing"

	"github.com/abdul-hamid-achik/partest/packages/core/registry"
	"github.com/abdul-hamid-achik/partest/packages/core/runner"
	"github.com/abdul-hamid-achik/partest/packages/core/status"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuite_DefaultPattern(t *testing.T) {
	reg := registry.New()
	RegisterInto(reg)

	var out bytes.Buffer
	result, err := runner.NewRunner(&runner.Config{
		Registry: reg,
		Pattern:  DefaultPattern,
		Output:   &out,
		Logger:   hclog.NewNullLogger(),
	}).Run(context.Background())
	require.NoError(t, err)

	want := map[string]status.State{
		"panicked": status.Panicked,
		"failed":   status.Failed,
		"passed":   status.Passed,
		"skip-lvl": status.Skipped,
		"skip-re":  status.Skipped,
	}
	for _, res := range result.Results {
		assert.Equal(t, want[res.Name], res.State, res.Name)
	}
	assert.NotContains(t, out.String(), "NEVER REACHED")
}

func TestSuite_RegisteredInDefault(t *testing.T) {
	for _, tt := range Tests {
		_, ok := registry.Default.Lookup(tt.Name)
		assert.True(t, ok, tt.Name)
	}
}
