// Package cmd implements the partest CLI commands using Cobra.
//
// Available commands:
//   - run: Execute the registered tests and print a summary
//   - list: Show every registered test and whether it would run
//   - history: Inspect runs recorded in a SQLite database
//   - validate: Check the effective configuration
//   - init: Write a default .partest.yaml
//   - schema: Print the JSON schema of the json report
//   - version: Show partest version information
//
// Settings come from defaults, a config file, PARTEST_* environment
// variables and flags, each overriding the one before.
package cmd
