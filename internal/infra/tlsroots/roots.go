package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

var (
	// ErrNoCertsFound is returned when no certificates are found in PEM data.
	ErrNoCertsFound = errors.New("tlsroots: no certificates found in PEM data")
)

// Pool is a set of trusted certificates, used as the client CA bundle on
// the server and as root CAs by the CLI.
type Pool struct {
	certPool *x509.CertPool
}

// NewPool creates a pool seeded with the system roots, or an empty pool
// where the system roots are unavailable.
func NewPool() *Pool {
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	return &Pool{certPool: pool}
}

// NewEmptyPool creates a pool without system roots.
func NewEmptyPool() *Pool {
	return &Pool{certPool: x509.NewCertPool()}
}

// AddCertFile adds every certificate in a PEM file.
func (p *Pool) AddCertFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("tlsroots: read cert file %s: %w", path, err)
	}
	return p.AddCertPEM(data)
}

// AddCertPEM adds every certificate in PEM data.
func (p *Pool) AddCertPEM(pemData []byte) error {
	certs, err := parseChain(pemData)
	if err != nil {
		if errors.Is(err, ErrNoCertsFound) {
			return err
		}
		return fmt.Errorf("tlsroots: parse certificate: %w", err)
	}
	for _, c := range certs {
		p.certPool.AddCert(c)
	}
	return nil
}

// AddCert adds a certificate directly.
func (p *Pool) AddCert(cert *x509.Certificate) {
	p.certPool.AddCert(cert)
}

// Pool returns the underlying x509.CertPool.
func (p *Pool) Pool() *x509.CertPool {
	return p.certPool
}

// ClientConfig creates a client TLS config trusting this pool.
func (p *Pool) ClientConfig(serverName string, insecure bool) *tls.Config {
	return &tls.Config{
		RootCAs:            p.certPool,
		ServerName:         serverName,
		MinVersion:         tls.VersionTLS12,
		NextProtos:         NextProtos,
		InsecureSkipVerify: insecure,
	}
}
