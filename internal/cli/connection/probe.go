package connection

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/http2"

	"github.com/yndnr/srvboot-go/internal/infra/tlsroots"
	"github.com/yndnr/srvboot-go/internal/server/conn"
	"github.com/yndnr/srvboot-go/internal/server/httpserver"
)

// maxProbeBody caps how much of the response body is kept.
const maxProbeBody = 4 << 10

// ProbeOptions configures a Prober.
type ProbeOptions struct {
	// Network forces an address family: tcp, tcp4 or tcp6.
	Network string
	// CAFile is a PEM bundle trusted in addition to nothing else.
	// Empty uses the system roots.
	CAFile     string
	Insecure   bool
	ServerName string
	// H2C speaks cleartext HTTP/2 with prior knowledge.
	H2C     bool
	Timeout time.Duration
	// APIKey is sent as "Bearer <id>:<secret>" when set.
	APIKey string
}

// ProbeResult describes one probe request.
type ProbeResult struct {
	URL        string `json:"url" yaml:"url"`
	Status     int    `json:"status" yaml:"status"`
	Proto      string `json:"proto" yaml:"proto"`
	RemoteAddr string `json:"remote_addr" yaml:"remote_addr"`
	TLSVersion string `json:"tls_version,omitempty" yaml:"tls_version,omitempty"`
	ALPN       string `json:"alpn,omitempty" yaml:"alpn,omitempty"`
	RequestID  string `json:"request_id,omitempty" yaml:"request_id,omitempty"`
	Latency    string `json:"latency" yaml:"latency"`
	Body       string `json:"body" yaml:"body" table:"wide"`
}

// Prober issues single requests against a server and reports how they
// were carried.
type Prober struct {
	client *http.Client
	apiKey string
}

// NewProber creates a Prober.
func NewProber(opts ProbeOptions) (*Prober, error) {
	switch opts.Network {
	case "":
		opts.Network = "tcp"
	case "tcp", "tcp4", "tcp6":
	default:
		return nil, fmt.Errorf("unsupported network %q", opts.Network)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	pool := tlsroots.NewPool()
	if opts.CAFile != "" {
		pool = tlsroots.NewEmptyPool()
		if err := pool.AddCertFile(opts.CAFile); err != nil {
			return nil, err
		}
	}
	tlsCfg := pool.ClientConfig(opts.ServerName, opts.Insecure)

	dialer := &net.Dialer{Timeout: opts.Timeout}
	dial := func(ctx context.Context, _, addr string) (net.Conn, error) {
		return dialer.DialContext(ctx, opts.Network, addr)
	}

	var rt http.RoundTripper
	if opts.H2C {
		rt = &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				return dial(ctx, network, addr)
			},
		}
	} else {
		rt = &http.Transport{
			DialContext:       dial,
			TLSClientConfig:   tlsCfg,
			ForceAttemptHTTP2: true,
		}
	}

	return &Prober{
		client: &http.Client{Transport: rt, Timeout: opts.Timeout},
		apiKey: opts.APIKey,
	}, nil
}

// Probe sends GET rawURL. A missing scheme defaults to https.
func (p *Prober) Probe(ctx context.Context, rawURL string) (*ProbeResult, error) {
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	var remote net.Addr
	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			remote = info.Conn.RemoteAddr()
		},
	}
	req, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, trace), http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "srvboot-cli/1.0")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("probe %s: %w", u.Redacted(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	res := &ProbeResult{
		URL:       u.Redacted(),
		Status:    resp.StatusCode,
		Proto:     resp.Proto,
		RequestID: resp.Header.Get(httpserver.RequestIDHeader),
		Latency:   time.Since(start).Round(time.Microsecond).String(),
		Body:      strings.TrimSpace(string(body)),
	}
	if remote != nil {
		res.RemoteAddr = conn.CanonicalAddr(remote)
	}
	if resp.TLS != nil {
		res.TLSVersion = tls.VersionName(resp.TLS.Version)
		res.ALPN = resp.TLS.NegotiatedProtocol
	}
	return res, nil
}

// CloseIdleConnections releases pooled connections.
func (p *Prober) CloseIdleConnections() {
	p.client.CloseIdleConnections()
}
