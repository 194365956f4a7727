// Package status defines the outcome of a single test execution and its
// display form.
package status

// State is the recorded outcome of a test. The numeric values are stable and
// are persisted by the history store.
type State int

const (
	Unset State = iota
	Passed
	Skipped
	Failed
	Panicked
)

// InvalidMarker is returned by String for values outside the four outcomes.
const InvalidMarker = "(invalid state)"

var stateNames = [...]string{
	Passed:   "PASSED",
	Skipped:  "SKIPPED",
	Failed:   "FAILED",
	Panicked: "PANICKED",
}

// String maps an outcome to its display form. Unset and out-of-range values
// yield InvalidMarker.
func (s State) String() string {
	return StateString(int(s))
}

// Valid reports whether s is one of the four run outcomes.
func (s State) Valid() bool {
	return s >= Passed && s <= Panicked
}

// Failing reports whether s counts against the run.
func (s State) Failing() bool {
	return s == Failed || s == Panicked
}

// StateString is the integer form of State.String.
func StateString(state int) string {
	if state <= int(Unset) || state >= len(stateNames) {
		return InvalidMarker
	}
	return stateNames[state]
}

// Parse is the inverse of String for the four valid outcomes.
func Parse(s string) (State, bool) {
	for i, name := range stateNames {
		if name != "" && name == s {
			return State(i), true
		}
	}
	return Unset, false
}
