// Package main provides the entry point for srvboot-server.
//
// The server binds one dual-stack endpoint, optionally terminates TLS,
// serves HTTP/1.1 and HTTP/2 through the request interceptor chain and
// shuts down gracefully on SIGINT, SIGTERM or a request on the local
// management socket.
//
// Usage:
//
//	srvboot-server [flags]
//	srvboot-server -config /etc/srvboot/server.yaml -port 8443
//
// Configuration is merged from defaults, the YAML file, SRVBOOT_
// environment variables and flags, in that order.
package main
