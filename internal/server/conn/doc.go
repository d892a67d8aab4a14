// Package conn models a served connection.
//
// An accepted socket is wrapped first by IdleConn, which closes it after a
// period with no completed read or write, and then optionally by a TLS
// session. Conn ties the two together with an ID, a Plain or TLS mode
// that is set exactly once, and a Done channel that fires after the
// socket is fully closed.
package conn
