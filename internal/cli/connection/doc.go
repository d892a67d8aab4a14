// Package connection provides the HTTP prober used by srvboot-cli.
//
// A Prober forces an address family (tcp4 or tcp6), trusts an optional
// CA bundle and can speak cleartext HTTP/2, so one command can check that
// a dual-stack endpoint answers on both families and negotiates the
// expected protocol.
package connection
