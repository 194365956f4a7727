// Package output provides formatters for displaying run results.
//
// Supported output formats:
//   - Console: the colored SUMMARY listing
//   - Table: a bordered per-test table
//   - JSON: Machine-readable JSON output, described by JSONSchema
//   - JUnit: JUnit XML format for CI integration
//   - TAP: Test Anything Protocol format
//
// Console and table write as soon as a result arrives. The other formats
// accumulate results and write them on Flush.
package output
