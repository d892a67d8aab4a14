// Package httpserver is the HTTP engine served by the bootstrap acceptor.
//
// Engine wraps net/http.Server. Connections arrive already accepted,
// idle-guarded and, for TLS, handshaken; TLS connections that negotiated
// h2 are served by golang.org/x/net/http2 and plaintext connections
// accept both HTTP/1.1 and h2c.
//
// Every request passes through:
//
//	Recover -> RequestID -> Instrument -> interceptors -> router
//
// Interceptors may let a request through, answer it, or drop the
// connection. Failures anywhere are written with the domain.Mapper
// JSON body.
package httpserver
