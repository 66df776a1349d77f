package config

import "time"

// Config root configuration of the bulkop command
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Batch    BatchConfig    `yaml:"batch"`
	Pool     PoolConfig     `yaml:"pool"`
	Log      LogConfig      `yaml:"log"`
	FTP      FTPConfig      `yaml:"ftp"`
}

// DatabaseConfig item store and run repository connection
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"            env:"BULKOP_DATABASE_DRIVER"            env-default:"mysql"`
	DSN             string        `yaml:"dsn"               env:"BULKOP_DATABASE_DSN"`
	MaxOpenConns    int           `yaml:"max_open_conns"    env:"BULKOP_DATABASE_MAX_OPEN_CONNS"    env-default:"10"`
	MaxIdleConns    int           `yaml:"max_idle_conns"    env:"BULKOP_DATABASE_MAX_IDLE_CONNS"    env-default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"BULKOP_DATABASE_CONN_MAX_LIFETIME" env-default:"1h"`
}

// BatchConfig retry, timeout and pacing of every bulk action
type BatchConfig struct {
	MaxRetries      int           `yaml:"max_retries"       env:"BULKOP_BATCH_MAX_RETRIES"       env-default:"2"`
	AttemptTimeout  time.Duration `yaml:"attempt_timeout"   env:"BULKOP_BATCH_ATTEMPT_TIMEOUT"   env-default:"15s"`
	RetryBackoff    time.Duration `yaml:"retry_backoff"     env:"BULKOP_BATCH_RETRY_BACKOFF"     env-default:"1s"`
	ItemDelay       time.Duration `yaml:"item_delay"        env:"BULKOP_BATCH_ITEM_DELAY"        env-default:"200ms"`
	StartDelay      time.Duration `yaml:"start_delay"       env:"BULKOP_BATCH_START_DELAY"       env-default:"0s"`
	EstimatePerItem time.Duration `yaml:"estimate_per_item" env:"BULKOP_BATCH_ESTIMATE_PER_ITEM" env-default:"2s"`
}

// PoolConfig goroutine pools of the engine
type PoolConfig struct {
	MaxRunningBatches int `yaml:"max_running_batches" env:"BULKOP_POOL_MAX_RUNNING_BATCHES" env-default:"10"`
	AttemptPoolSize   int `yaml:"attempt_pool_size"   env:"BULKOP_POOL_ATTEMPT_POOL_SIZE"   env-default:"100"`
}

// LogConfig log output
type LogConfig struct {
	Level  string `yaml:"level"  env:"BULKOP_LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"BULKOP_LOG_FORMAT" env-default:"console"`
}

// FTPConfig server manifests are read from with --ftp
type FTPConfig struct {
	Host     string        `yaml:"host"     env:"BULKOP_FTP_HOST"`
	Port     int           `yaml:"port"     env:"BULKOP_FTP_PORT"     env-default:"21"`
	User     string        `yaml:"user"     env:"BULKOP_FTP_USER"     env-default:"anonymous"`
	Password string        `yaml:"password" env:"BULKOP_FTP_PASSWORD"`
	Timeout  time.Duration `yaml:"timeout"  env:"BULKOP_FTP_TIMEOUT"  env-default:"10s"`
}
