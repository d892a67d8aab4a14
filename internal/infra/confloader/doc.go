// Package confloader provides configuration loading mechanism.
//
// This package implements a flexible configuration loader that supports
// multiple sources using koanf as the underlying library.
//
// Priority (highest to lowest):
//
//  1. Overrides (command-line flags)
//  2. Environment variables (SRVBOOT_ prefix, "__" between levels)
//  3. Configuration file (YAML)
//  4. Values already set in the target, usually config.Default()
//
// Watcher reports changes to a configuration file so that runtime
// settings such as the log level can be reapplied.
package confloader
