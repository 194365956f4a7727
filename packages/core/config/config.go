package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/abdul-hamid-achik/partest/packages/core/filter"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config represents the partest configuration
type Config struct {
	MinLevel    *int   `json:"minLevel,omitempty" yaml:"minLevel,omitempty" toml:"minLevel,omitempty"`
	Pattern     string `json:"pattern,omitempty" yaml:"pattern,omitempty" toml:"pattern,omitempty"`
	Output      string `json:"output,omitempty" yaml:"output,omitempty" toml:"output,omitempty"`
	OutputFile  string `json:"outputFile,omitempty" yaml:"outputFile,omitempty" toml:"outputFile,omitempty"`
	NoColor     *bool  `json:"noColor,omitempty" yaml:"noColor,omitempty" toml:"noColor,omitempty"`
	Verbose     *bool  `json:"verbose,omitempty" yaml:"verbose,omitempty" toml:"verbose,omitempty"`
	LogLevel    string `json:"logLevel,omitempty" yaml:"logLevel,omitempty" toml:"logLevel,omitempty"`
	MetricsFile string `json:"metricsFile,omitempty" yaml:"metricsFile,omitempty" toml:"metricsFile,omitempty"`
	HistoryDB   string `json:"historyDB,omitempty" yaml:"historyDB,omitempty" toml:"historyDB,omitempty"`
}

// OutputFormats lists the accepted values of Output.
var OutputFormats = []string{"console", "json", "junit", "tap", "table"}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

// IntPtr returns a pointer to i.
func IntPtr(i int) *int {
	return &i
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetMinLevel returns the level threshold, defaulting to 0
func (c *Config) GetMinLevel() int {
	if c.MinLevel == nil {
		return 0
	}
	return *c.MinLevel
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// ConfigFilenames contains the possible config file names, in search order
var ConfigFilenames = []string{
	".partest.yaml",
	".partest.yml",
	"partest.yaml",
	".partest.toml",
	"partest.toml",
	".partest.json",
	".partestrc",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	return DefaultConfig(), nil
}

// loadConfigFromFile decodes by extension; files without a known extension
// are read as YAML, which also accepts JSON.
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, config)
	case ".json":
		err = json.Unmarshal(data, config)
	default:
		err = yaml.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return config, nil
}

// envConfig mirrors Config for PARTEST_* environment variables.
type envConfig struct {
	MinLevel    *int   `envconfig:"LEVEL"`
	Pattern     string `envconfig:"PATTERN"`
	Output      string `envconfig:"OUTPUT"`
	OutputFile  string `envconfig:"OUTPUT_FILE"`
	NoColor     *bool  `envconfig:"NO_COLOR"`
	Verbose     *bool  `envconfig:"VERBOSE"`
	LogLevel    string `envconfig:"LOG_LEVEL"`
	MetricsFile string `envconfig:"METRICS_FILE"`
	HistoryDB   string `envconfig:"HISTORY_DB"`
}

// FromEnv reads PARTEST_* variables. Unset variables leave fields empty so
// the result can be merged over a file config.
func FromEnv() (*Config, error) {
	var e envConfig
	if err := envconfig.Process("partest", &e); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	return &Config{
		MinLevel:    e.MinLevel,
		Pattern:     e.Pattern,
		Output:      e.Output,
		OutputFile:  e.OutputFile,
		NoColor:     e.NoColor,
		Verbose:     e.Verbose,
		LogLevel:    e.LogLevel,
		MetricsFile: e.MetricsFile,
		HistoryDB:   e.HistoryDB,
	}, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c

	if other.Pattern != "" {
		result.Pattern = other.Pattern
	}
	if other.Output != "" {
		result.Output = other.Output
	}
	if other.OutputFile != "" {
		result.OutputFile = other.OutputFile
	}
	if other.LogLevel != "" {
		result.LogLevel = other.LogLevel
	}
	if other.MetricsFile != "" {
		result.MetricsFile = other.MetricsFile
	}
	if other.HistoryDB != "" {
		result.HistoryDB = other.HistoryDB
	}

	// Pointer fields only override when explicitly set in other
	if other.MinLevel != nil {
		result.MinLevel = other.MinLevel
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}

	return &result
}

// Validate reports every problem in c at once.
func (c *Config) Validate() error {
	var errs *multierror.Error

	if c.Output != "" && !slices.Contains(OutputFormats, strings.ToLower(c.Output)) {
		errs = multierror.Append(errs, fmt.Errorf("unknown output format %q (want one of %s)",
			c.Output, strings.Join(OutputFormats, ", ")))
	}
	if c.LogLevel != "" && hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		errs = multierror.Append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}
	if c.Pattern != "" {
		if _, err := filter.New(c.GetMinLevel(), c.Pattern); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	return errs.ErrorOrNil()
}

// SaveConfig saves the configuration to a YAML file
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
