// Package runner executes registered tests and collects their outcomes.
//
// It provides functionality for:
//   - Filtering the registry by level threshold and name pattern
//   - Launching one goroutine per eligible test, with no concurrency bound
//   - Capturing each test's outcome through the capture package
//   - Waiting for every launched test before returning
//   - Listing eligible tests without running them (dry run)
//
// Test-level failures never become run-level errors: Run only fails for
// invalid arguments, bad patterns or an interrupted wait. Callers inspect
// RunResult, or the registry, for per-test outcomes.
package runner
