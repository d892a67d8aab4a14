package bootstrap

import (
	"context"

	"github.com/yndnr/srvboot-go/internal/server/conn"
)

// Engine serves established connections. ServeConn must not return
// before the connection is closed or handed off for closing; the server
// counts the connection in flight until it does.
type Engine interface {
	ServeConn(ctx context.Context, c *conn.Conn) error
}

// Drainer is implemented by engines that can stop keep-alives and close
// idle connections when the server starts draining. Drain should return
// when all connections finished or ctx expires.
type Drainer interface {
	Drain(ctx context.Context) error
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, c *conn.Conn) error

// ServeConn calls f(ctx, c).
func (f EngineFunc) ServeConn(ctx context.Context, c *conn.Conn) error {
	return f(ctx, c)
}
