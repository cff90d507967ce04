package config

import (
	"fmt"
	"os"
	"strconv"
)

// applyEnv lets deployment override the file without editing it.
func (c *AppConfig) applyEnv() {
	c.Database.Driver = getEnv("REENTRY_DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("REENTRY_DB_DSN", c.Database.DSN)
	c.Log.Level = getEnv("REENTRY_LOG_LEVEL", c.Log.Level)
	c.Analysis.Concurrency = getEnvAsInt("REENTRY_CONCURRENCY", c.Analysis.Concurrency)
}

func (c *AppConfig) validate() error {
	switch c.Database.Driver {
	case "", "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Report.Format {
	case "", "markdown", "json":
	default:
		return fmt.Errorf("unsupported report format %q", c.Report.Format)
	}
	if c.Analysis.Concurrency < 0 {
		return fmt.Errorf("analysis.concurrency must not be negative")
	}
	if err := c.Severity.Validate(); err != nil {
		return err
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
