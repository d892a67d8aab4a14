// Package bootstrap runs the accept loop and coordinates graceful
// shutdown.
//
// A Server owns a bound listener, a Transport (plain or TLS, fixed at
// construction) and an Engine that serves established connections. Every
// accepted socket is counted in flight from accept until its teardown is
// complete, wrapped in an idle guard, upgraded by the Transport and
// handed to the Engine.
//
// Lifecycle:
//
//	Running --Shutdown--> Draining --in flight == 0 or grace elapsed--> Stopped
//
// Draining closes the listener, tells the Engine to drain, and waits for
// the in-flight count to reach zero. At the grace deadline any remaining
// connection is force-closed.
package bootstrap
