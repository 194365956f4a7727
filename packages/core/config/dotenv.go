package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// EnvPrefix is the prefix of every variable FromEnv reads.
const EnvPrefix = "PARTEST_"

// LoadEnvFile parses a .env style file and returns the PARTEST_* entries.
// Lines look like KEY=value, optionally preceded by "export"; values may be
// single or double quoted, and unquoted values end at " #".
func LoadEnvFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open env file: %w", err)
	}
	defer file.Close()

	vars := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("%s:%d: expected KEY=value", path, lineNo)
		}
		key = strings.TrimSpace(key)
		if !strings.HasPrefix(key, EnvPrefix) {
			continue
		}

		vars[key] = unquote(strings.TrimSpace(value))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading env file: %w", err)
	}
	return vars, nil
}

func unquote(value string) string {
	if len(value) >= 2 {
		q := value[0]
		if (q == '"' || q == '\'') && value[len(value)-1] == q {
			return value[1 : len(value)-1]
		}
	}
	if i := strings.Index(value, " #"); i >= 0 {
		value = strings.TrimSpace(value[:i])
	}
	return value
}

// ExportEnvFile loads path and sets each variable that is not already
// present in the process environment, so FromEnv sees it.
func ExportEnvFile(path string) error {
	vars, err := LoadEnvFile(path)
	if err != nil {
		return err
	}
	for k, v := range vars {
		if _, ok := os.LookupEnv(k); ok {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return fmt.Errorf("setting %s: %w", k, err)
		}
	}
	return nil
}
