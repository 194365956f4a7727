// Package filter decides which registered tests are eligible to run.
package filter

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/abdul-hamid-achik/partest/packages/core/registry"
	"github.com/abdul-hamid-achik/partest/packages/core/status"
)

// ErrPattern is wrapped by every pattern compilation error.
var ErrPattern = errors.New("invalid name pattern")

// SkipReason records which rule excluded a test.
type SkipReason int

const (
	SkipNone SkipReason = iota
	SkipLevel
	SkipPattern
)

func (r SkipReason) String() string {
	switch r {
	case SkipLevel:
		return "below level threshold"
	case SkipPattern:
		return "name does not match pattern"
	default:
		return ""
	}
}

// Filter applies a minimum level and an optional name pattern.
type Filter struct {
	minLevel int
	pattern  *regexp.Regexp
}

// New compiles pattern once. An empty pattern matches every name. The pattern
// is a POSIX extended regular expression matched case-insensitively anywhere
// in the name.
func New(minLevel int, pattern string) (*Filter, error) {
	f := &Filter{minLevel: minLevel}
	if pattern == "" {
		return f, nil
	}

	if _, err := regexp.CompilePOSIX(pattern); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPattern, err)
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPattern, err)
	}
	f.pattern = re
	return f, nil
}

func (f *Filter) MinLevel() int { return f.minLevel }

// Pattern returns the source pattern, or "" when none is set.
func (f *Filter) Pattern() string {
	if f.pattern == nil {
		return ""
	}
	return f.pattern.String()[len("(?i)"):]
}

// Reason reports why t would be excluded, without touching its state. The
// level rule is checked before the pattern.
func (f *Filter) Reason(t *registry.Test) SkipReason {
	if t.Level < f.minLevel {
		return SkipLevel
	}
	if f.pattern != nil && !f.pattern.MatchString(t.Name) {
		return SkipPattern
	}
	return SkipNone
}

// Eligible reports whether t should run. Excluded tests are marked Skipped.
func (f *Filter) Eligible(t *registry.Test) bool {
	if f.Reason(t) != SkipNone {
		t.SetState(status.Skipped)
		return false
	}
	return true
}
