// Package output provides output formatting for srvboot-cli.
//
//   - formatter.go: Formatter interface and factory
//   - table.go: Table rendering with wide mode support
//   - json.go: JSON output formatting
//   - yaml.go: YAML output formatting (gopkg.in/yaml.v3)
//   - spinner.go: Animation while waiting on the server
//   - progress.go: Drain progress during shutdown
package output
