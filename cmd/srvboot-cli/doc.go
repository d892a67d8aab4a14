// Package main provides the entry point for srvboot-cli.
//
// The CLI talks to a running srvboot-server over its local admin socket
// and probes public listeners over the network:
//
//	srvboot-cli status
//	srvboot-cli shutdown --grace 10s --wait
//	srvboot-cli probe -6 https://[::1]:8443/health --ca ca.pem
//	srvboot-cli tls check --cert server.crt --key server.key
//	srvboot-cli apikey generate
package main
