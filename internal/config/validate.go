package config

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	drivers    = []string{"mysql", "sqlite"}
	logLevels  = []string{"debug", "info", "warn", "warning", "error"}
	logFormats = []string{"console", "json"}
)

// Validate check the loaded configuration, Load calls it
func (c *Config) Validate() error {
	if err := c.Database.validate(); err != nil {
		return errors.Wrap(err, "database")
	}
	if err := c.Batch.validate(); err != nil {
		return errors.Wrap(err, "batch")
	}
	if c.Pool.MaxRunningBatches <= 0 {
		return errors.Errorf("pool: max_running_batches must be > 0 (got %d)", c.Pool.MaxRunningBatches)
	}
	if c.Pool.AttemptPoolSize <= 0 {
		return errors.Errorf("pool: attempt_pool_size must be > 0 (got %d)", c.Pool.AttemptPoolSize)
	}
	if !oneOf(c.Log.Level, logLevels) {
		return errors.Errorf("log: unknown level %q", c.Log.Level)
	}
	if !oneOf(c.Log.Format, logFormats) {
		return errors.Errorf("log: unknown format %q", c.Log.Format)
	}
	if c.FTP.Host != "" && (c.FTP.Port <= 0 || c.FTP.Port > 65535) {
		return errors.Errorf("ftp: port must be in 1-65535 (got %d)", c.FTP.Port)
	}
	return nil
}

func (d *DatabaseConfig) validate() error {
	if !oneOf(d.Driver, drivers) {
		return errors.Errorf("unsupported driver %q, expected one of %v", d.Driver, drivers)
	}
	if strings.TrimSpace(d.DSN) == "" {
		return errors.New("dsn is required")
	}
	if d.MaxOpenConns <= 0 {
		return errors.Errorf("max_open_conns must be > 0 (got %d)", d.MaxOpenConns)
	}
	return nil
}

func (b *BatchConfig) validate() error {
	if b.MaxRetries < 0 {
		return errors.Errorf("max_retries must be >= 0 (got %d)", b.MaxRetries)
	}
	if b.AttemptTimeout < 0 || b.RetryBackoff < 0 || b.ItemDelay < 0 || b.StartDelay < 0 || b.EstimatePerItem < 0 {
		return errors.New("durations must be >= 0")
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
