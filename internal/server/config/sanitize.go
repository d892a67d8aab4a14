package config

import (
	"maps"
	"strings"
)

// Sanitize returns a copy of the config with sensitive fields masked.
//
// This is used for logging configuration without exposing secrets.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg

	if len(cfg.Interceptors.APIKeys.Keys) > 0 {
		keys := maps.Clone(cfg.Interceptors.APIKeys.Keys)
		for id, hash := range keys {
			keys[id] = maskSecret(hash)
		}
		sanitized.Interceptors.APIKeys.Keys = keys
	}

	return &sanitized
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
