// Package listener builds the server's listening endpoint.
//
// A dual-stack listener is one IPv6 socket bound to [::] with
// IPV6_V6ONLY cleared, so IPv4 peers arrive as v4-mapped addresses on the
// same accept queue. When the platform refuses that, the fallback policy
// decides whether to bind one socket per family and merge their accept
// streams into a single net.Listener.
//
// All bind failures are reported as domain.KindBind errors.
package listener
