package config

import (
	"github.com/yndnr/statekeep/internal/infra/confloader"
)

// Load reads the configuration from path (optional), STATEKEEP_ environment
// variables and overrides, on top of Default, and verifies the result.
func Load(path string, overrides map[string]any) (*Config, error) {
	return LoadWith(confloader.NewLoader(
		confloader.WithConfigFile(path),
		confloader.WithOverrides(overrides),
	))
}

// LoadWith is Load with a caller-built loader.
func LoadWith(l *confloader.Loader) (*Config, error) {
	cfg := Default()
	if err := l.Load(cfg); err != nil {
		return nil, err
	}
	if err := Verify(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
