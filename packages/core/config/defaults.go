package config

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		MinLevel: IntPtr(0),
		Output:   "console",
		NoColor:  BoolPtr(false),
		Verbose:  BoolPtr(false),
		LogLevel: "warn",
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.GetMinLevel() == defaults.GetMinLevel() &&
		c.Pattern == defaults.Pattern &&
		c.Output == defaults.Output &&
		c.OutputFile == defaults.OutputFile &&
		c.GetNoColor() == defaults.GetNoColor() &&
		c.GetVerbose() == defaults.GetVerbose() &&
		c.LogLevel == defaults.LogLevel &&
		c.MetricsFile == defaults.MetricsFile &&
		c.HistoryDB == defaults.HistoryDB
}
