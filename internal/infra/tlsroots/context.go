package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/yndnr/srvboot-go/internal/core/domain"
)

// ClientAuth selects whether clients must present a certificate.
type ClientAuth string

const (
	ClientAuthNone    ClientAuth = "none"
	ClientAuthRequest ClientAuth = "request"
	ClientAuthRequire ClientAuth = "require"
)

// Valid reports whether a is a known mode. Empty means none.
func (a ClientAuth) Valid() bool {
	switch a {
	case "", ClientAuthNone, ClientAuthRequest, ClientAuthRequire:
		return true
	}
	return false
}

// ALPN protocols advertised by every server context, in preference order.
var NextProtos = []string{"h2", "http/1.1"}

// cipherSuites applies to TLS 1.2 only; TLS 1.3 suites are fixed by the
// runtime. ECDHE with AEAD only.
var cipherSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
}

// Source locates certificate and key material. Files take precedence
// over in-memory PEM.
type Source struct {
	CertFile string
	KeyFile  string
	CertPEM  []byte
	KeyPEM   []byte
}

// IsZero reports whether no material is configured.
func (s Source) IsZero() bool {
	return s.CertFile == "" && s.KeyFile == "" && len(s.CertPEM) == 0 && len(s.KeyPEM) == 0
}

// HasFiles reports whether the material is read from disk.
func (s Source) HasFiles() bool {
	return s.CertFile != "" || s.KeyFile != ""
}

func (s Source) load() (certPEM, keyPEM []byte, err error) {
	if !s.HasFiles() {
		return s.CertPEM, s.KeyPEM, nil
	}
	if s.CertFile == "" || s.KeyFile == "" {
		return nil, nil, errors.New("cert_file and key_file must both be set")
	}
	if certPEM, err = os.ReadFile(s.CertFile); err != nil {
		return nil, nil, fmt.Errorf("read cert file: %w", err)
	}
	if keyPEM, err = os.ReadFile(s.KeyFile); err != nil {
		return nil, nil, fmt.Errorf("read key file: %w", err)
	}
	return certPEM, keyPEM, nil
}

// Options tunes the server context.
type Options struct {
	ClientAuth   ClientAuth
	ClientCAFile string
	ClientCAPEM  []byte

	// now is overridden in tests.
	now func() time.Time
}

// Context is a validated, immutable server TLS configuration. It is
// shared by reference across all handshakes; rotation builds a new one.
type Context struct {
	config   *tls.Config
	leaf     *x509.Certificate
	chain    int
	loadedAt time.Time
}

// Build validates the material and constructs a Context. Every failure is
// a domain.KindTLSLoad error; nothing is deferred to the first handshake.
func Build(src Source, opts Options) (*Context, error) {
	if src.IsZero() {
		return nil, loadError("no certificate configured", nil)
	}
	if !opts.ClientAuth.Valid() {
		return nil, loadError(fmt.Sprintf("invalid client_auth %q", opts.ClientAuth), nil)
	}

	certPEM, keyPEM, err := src.load()
	if err != nil {
		return nil, loadError("cannot read tls material", err)
	}

	chain, err := parseChain(certPEM)
	if err != nil {
		return nil, loadError("invalid certificate chain", err)
	}

	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, loadError("certificate and key do not form a valid pair", err)
	}

	now := time.Now
	if opts.now != nil {
		now = opts.now
	}
	leaf := chain[0]
	if t := now(); t.Before(leaf.NotBefore) || t.After(leaf.NotAfter) {
		return nil, loadError(fmt.Sprintf("certificate not valid at %s (valid %s to %s)",
			t.Format(time.RFC3339), leaf.NotBefore.Format(time.RFC3339), leaf.NotAfter.Format(time.RFC3339)), nil)
	}
	pair.Leaf = leaf

	cfg := &tls.Config{
		Certificates:     []tls.Certificate{pair},
		MinVersion:       tls.VersionTLS12,
		CipherSuites:     cipherSuites,
		CurvePreferences: []tls.CurveID{tls.X25519, tls.CurveP256},
		NextProtos:       NextProtos,
	}

	if err := applyClientAuth(cfg, opts); err != nil {
		return nil, err
	}

	return &Context{
		config:   cfg,
		leaf:     leaf,
		chain:    len(chain),
		loadedAt: now(),
	}, nil
}

func applyClientAuth(cfg *tls.Config, opts Options) error {
	switch opts.ClientAuth {
	case "", ClientAuthNone:
		cfg.ClientAuth = tls.NoClientCert
		return nil
	case ClientAuthRequest:
		cfg.ClientAuth = tls.VerifyClientCertIfGiven
	case ClientAuthRequire:
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}

	pool := NewEmptyPool()
	var err error
	switch {
	case opts.ClientCAFile != "":
		err = pool.AddCertFile(opts.ClientCAFile)
	case len(opts.ClientCAPEM) > 0:
		err = pool.AddCertPEM(opts.ClientCAPEM)
	default:
		err = errors.New("client auth requires a CA bundle")
	}
	if err != nil {
		return loadError("invalid client CA bundle", err)
	}
	cfg.ClientCAs = pool.Pool()
	return nil
}

// parseChain decodes every CERTIFICATE block. Other block types are
// skipped so a combined cert+key file still parses.
func parseChain(data []byte) ([]*x509.Certificate, error) {
	var chain []*x509.Certificate
	for len(data) > 0 {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		chain = append(chain, cert)
	}
	if len(chain) == 0 {
		return nil, ErrNoCertsFound
	}
	return chain, nil
}

func loadError(msg string, cause error) error {
	return domain.Wrap(domain.KindTLSLoad, msg, cause)
}

// Config returns the shared tls.Config. Callers must not modify it.
func (c *Context) Config() *tls.Config {
	return c.config
}

// Leaf returns the server certificate.
func (c *Context) Leaf() *x509.Certificate {
	return c.leaf
}

// ChainLength returns the number of certificates presented.
func (c *Context) ChainLength() int {
	return c.chain
}

// LoadedAt returns when the context was built.
func (c *Context) LoadedAt() time.Time {
	return c.loadedAt
}

// Describe summarizes the certificate for logs and the CLI.
func (c *Context) Describe() string {
	names := c.leaf.DNSNames
	if len(names) == 0 {
		names = []string{c.leaf.Subject.CommonName}
	}
	return fmt.Sprintf("subject=%q names=%s not_after=%s chain=%d",
		c.leaf.Subject.String(), strings.Join(names, ","), c.leaf.NotAfter.Format(time.RFC3339), c.chain)
}

// Holder publishes the current Context. Readers take one snapshot per
// handshake, so a swap never affects sessions already negotiated.
type Holder struct {
	cur atomic.Pointer[Context]
}

// NewHolder creates a holder with an initial context.
func NewHolder(c *Context) *Holder {
	h := &Holder{}
	h.cur.Store(c)
	return h
}

// Load returns the current context.
func (h *Holder) Load() *Context {
	return h.cur.Load()
}

// Store replaces the current context.
func (h *Holder) Store(c *Context) {
	h.cur.Store(c)
}
