// Package localserver provides the local management socket.
//
// It serves a small HTTP API over a Unix domain socket for
// administrative operations that bypass the public listener:
//
//   - GET /state: lifecycle state, in-flight connections, build info
//   - POST /shutdown?grace=: graceful shutdown
//   - PUT /log-level?level=: change the process log level
//
// Access is controlled by file system permissions on the socket (0600).
// Client is used by srvboot-cli.
package localserver
