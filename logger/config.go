package logger

import "fmt"

// Config describes one log channel.
type Config struct {
	Driver     string `mapstructure:"driver"`
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	NoColor    bool   `mapstructure:"no_color"`
	Timestamp  bool   `mapstructure:"timestamp"`
	Caller     bool   `mapstructure:"caller"`
	MaxSize    int    `mapstructure:"max_size"`    // megabytes
	MaxBackups int    `mapstructure:"max_backups"` // number of backups
	MaxAge     int    `mapstructure:"max_age"`     // days
	Compress   bool   `mapstructure:"compress"`
	LocalTime  bool   `mapstructure:"local_time"`
}

// ApplyDefaults applies default values to the channel configuration.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "debug"
	}
	if c.Format == "" {
		if c.Driver == DriverSingle {
			c.Format = "json"
		} else {
			c.Format = "console"
		}
	}
	if c.MaxSize == 0 {
		c.MaxSize = 100
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = 3
	}
	if c.MaxAge == 0 {
		c.MaxAge = 28
	}
	c.Timestamp = true
}

// Validate validates the channel configuration.
func (c *Config) Validate() error {
	validLevels := []string{"trace", "debug", "info", "warn", "error", "fatal", "disabled"}
	if !contains(validLevels, c.Level) {
		return fmt.Errorf("log level must be one of %v (got: %s)", validLevels, c.Level)
	}
	validFormats := []string{"json", "console"}
	if !contains(validFormats, c.Format) {
		return fmt.Errorf("log format must be one of %v (got: %s)", validFormats, c.Format)
	}
	if c.Driver == DriverSingle && c.Path == "" {
		return fmt.Errorf("log channel %q requires a path", c.Driver)
	}
	return nil
}

func contains(slice []string, val string) bool {
	for _, s := range slice {
		if s == val {
			return true
		}
	}
	return false
}
