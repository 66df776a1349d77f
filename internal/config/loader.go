package config

import (
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"
)

// DefaultPath file read when neither the path argument nor BULKOP_CONFIG is set
const DefaultPath = "./bulkop.yaml"

// Load read configuration from a YAML file and environment variables.
// Priority: ENV > YAML > defaults (env-default tags).
// The file is path, or BULKOP_CONFIG when path is empty, or DefaultPath.
// A missing DefaultPath is not an error, configuration then comes from ENV and defaults only.
func Load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		path = os.Getenv("BULKOP_CONFIG")
	}
	explicitPath := path != ""
	if !explicitPath {
		path = DefaultPath
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, errors.Wrapf(err, "config: read %s", path)
		}
	} else if explicitPath {
		return nil, errors.Wrapf(err, "config: file %s", path)
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, errors.Wrap(err, "config: read env")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config: validate")
	}
	return &cfg, nil
}
