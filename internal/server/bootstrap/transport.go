package bootstrap

import (
	"context"
	"crypto/tls"

	"github.com/yndnr/srvboot-go/internal/core/domain"
	"github.com/yndnr/srvboot-go/internal/infra/tlsroots"
	"github.com/yndnr/srvboot-go/internal/server/conn"
)

// Transport establishes the stream of an accepted connection. The choice
// between plain and TLS is made once, when the Server is built.
type Transport interface {
	Upgrade(ctx context.Context, c *conn.Conn) error
	Name() string
}

type plainTransport struct{}

// Plain returns a transport that serves the guarded socket as is.
func Plain() Transport {
	return plainTransport{}
}

func (plainTransport) Upgrade(_ context.Context, c *conn.Conn) error {
	return c.Establish(c.Guard(), conn.ModePlain)
}

func (plainTransport) Name() string { return "plain" }

type tlsTransport struct {
	holder *tlsroots.Holder
}

// TLS returns a transport that performs a server handshake over the
// guarded socket using the holder's current context.
func TLS(holder *tlsroots.Holder) Transport {
	return &tlsTransport{holder: holder}
}

func (t *tlsTransport) Upgrade(ctx context.Context, c *conn.Conn) error {
	// One snapshot per handshake; a concurrent rotation does not affect it.
	snapshot := t.holder.Load()
	tc := tls.Server(c.Guard(), snapshot.Config())
	if err := tc.HandshakeContext(ctx); err != nil {
		return domain.Wrap(domain.KindHandshake, "tls handshake failed", err)
	}
	return c.Establish(tc, conn.ModeTLS)
}

func (t *tlsTransport) Name() string { return "tls" }
