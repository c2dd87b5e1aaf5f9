package config

import "fmt"

/* --------------------------------- Logger Config Defaults -------------------------------- */

const defaultLogLevel = "info"

var validLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

/* --------------------------------- Logger Config Struct -------------------------------- */

// LoggerConfig contains logging configuration.
type LoggerConfig struct {
	// Level is the minimum severity emitted: debug, info, warn or error.
	Level string `yaml:"level"`
}

/* --------------------------------- Logger Config Helpers -------------------------------- */

// hydrateLoggerDefaults assigns default values to LoggerConfig fields if they are not set.
func (c *LoggerConfig) hydrateLoggerDefaults() {
	if c.Level == "" {
		c.Level = defaultLogLevel
	}
}

// Validate checks the configured log level.
func (c *LoggerConfig) Validate() error {
	if _, ok := validLogLevels[c.Level]; !ok {
		return fmt.Errorf("logger_config.level %q is not one of debug, info, warn, error", c.Level)
	}
	return nil
}
