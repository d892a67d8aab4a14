// Package command provides CLI command definitions for srvboot-cli.
//
// This package defines all CLI commands using urfave/cli/v2:
//
//   - root.go: Root command, global flags, output helpers
//   - probe.go: HTTP probe forcing an address family
//   - server.go: status, shutdown and log-level over the local socket
//   - tls.go: TLS material check
//   - config.go: Configuration show and validate
//   - apikey.go: API key generation and hashing
//
// Commands follow a consistent pattern of parsing flags, doing the work
// and formatting output with the global --output format.
package command
