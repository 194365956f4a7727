package filter

import (
	"testing"

	"github.com/abdul-hamid-achik/partest/packages/core/capture"
	"github.com/abdul-hamid-achik/partest/packages/core/registry"
	"github.com/abdul-hamid-achik/partest/packages/core/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func test(name string, level int) *registry.Test {
	return registry.New().MustRegister(registry.Test{
		Name:  name,
		Level: level,
		Func:  func(t *capture.T, arg any) {},
	})
}

func TestNew_InvalidPattern(t *testing.T) {
	for _, pattern := range []string{"(", "a[", "*x"} {
		_, err := New(0, pattern)
		assert.ErrorIs(t, err, ErrPattern, "pattern %q", pattern)
	}
}

func TestNew_PerlOnlySyntaxRejected(t *testing.T) {
	// inline flag groups are not extended regular expression syntax
	_, err := New(0, `(?i)abc`)
	assert.ErrorIs(t, err, ErrPattern)
}

func TestFilter_Level(t *testing.T) {
	f, err := New(0, "")
	require.NoError(t, err)

	low := test("low", -1)
	assert.False(t, f.Eligible(low))
	assert.Equal(t, status.Skipped, low.State())

	equal := test("equal", 0)
	assert.True(t, f.Eligible(equal))
	assert.Equal(t, status.Unset, equal.State())

	high := test("high", 49)
	assert.True(t, f.Eligible(high))
}

func TestFilter_Pattern(t *testing.T) {
	f, err := New(0, "passed|failed")
	require.NoError(t, err)
	assert.Equal(t, "passed|failed", f.Pattern())

	tests := []struct {
		name string
		want bool
	}{
		{"passed", true},
		{"FAILED", true},
		{"was-passed-before", true},
		{"panicked", false},
		{"skip-re", false},
	}
	for _, tt := range tests {
		d := test(tt.name, 0)
		assert.Equal(t, tt.want, f.Eligible(d), tt.name)
		if !tt.want {
			assert.Equal(t, status.Skipped, d.State(), tt.name)
		}
	}
}

func TestFilter_LevelBeforePattern(t *testing.T) {
	f, err := New(0, "skip-lvl")
	require.NoError(t, err)

	d := test("skip-lvl", -1)
	assert.Equal(t, SkipLevel, f.Reason(d))
	assert.False(t, f.Eligible(d))

	d = test("skip-re", 49)
	assert.Equal(t, SkipPattern, f.Reason(d))

	d = test("skip-lvl", 3)
	assert.Equal(t, SkipNone, f.Reason(d))
}

func TestSkipReason_String(t *testing.T) {
	assert.Equal(t, "", SkipNone.String())
	assert.Equal(t, "below level threshold", SkipLevel.String())
	assert.Equal(t, "name does not match pattern", SkipPattern.String())
}
