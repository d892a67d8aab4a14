package config

import (
	"fmt"

	"github.com/yndnr/srvboot-go/internal/infra/confloader"
)

// Load builds a ServerConfig from defaults, the optional YAML file, the
// environment and flag overrides, then verifies it.
func Load(path string, overrides map[string]any) (*ServerConfig, error) {
	cfg := Default()
	loader := confloader.NewLoader(
		confloader.WithConfigFile(path),
		confloader.WithOverrides(overrides),
	)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	if err := Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
