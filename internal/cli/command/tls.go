package command

import (
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/srvboot-go/internal/infra/tlsroots"
)

// TLSCommand returns the tls subcommand group.
func TLSCommand() *cli.Command {
	return &cli.Command{
		Name:  "tls",
		Usage: "TLS material tools",
		Subcommands: []*cli.Command{
			{
				Name:  "check",
				Usage: "Validate a certificate and key the way the server loads them",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "cert", Usage: "PEM certificate chain file", Required: true},
					&cli.StringFlag{Name: "key", Usage: "PEM private key file", Required: true},
					&cli.StringFlag{Name: "client-auth", Usage: "none, request or require", Value: "none"},
					&cli.StringFlag{Name: "client-ca", Usage: "PEM CA bundle for client certificates"},
				},
				Action: tlsCheckAction,
			},
		},
	}
}

// CertificateInfo summarizes a validated TLS context.
type CertificateInfo struct {
	Subject   string    `json:"subject" yaml:"subject"`
	Issuer    string    `json:"issuer" yaml:"issuer"`
	Names     string    `json:"names" yaml:"names"`
	NotBefore time.Time `json:"not_before" yaml:"not_before"`
	NotAfter  time.Time `json:"not_after" yaml:"not_after"`
	ExpiresIn string    `json:"expires_in" yaml:"expires_in"`
	Chain     int       `json:"chain" yaml:"chain"`
	ALPN      string    `json:"alpn" yaml:"alpn"`
}

func tlsCheckAction(c *cli.Context) error {
	ctx, err := tlsroots.Build(
		tlsroots.Source{CertFile: c.String("cert"), KeyFile: c.String("key")},
		tlsroots.Options{
			ClientAuth:   tlsroots.ClientAuth(c.String("client-auth")),
			ClientCAFile: c.String("client-ca"),
		},
	)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	leaf := ctx.Leaf()
	names := append([]string{}, leaf.DNSNames...)
	for _, ip := range leaf.IPAddresses {
		names = append(names, ip.String())
	}
	return printResult(c, CertificateInfo{
		Subject:   leaf.Subject.String(),
		Issuer:    leaf.Issuer.String(),
		Names:     strings.Join(names, ","),
		NotBefore: leaf.NotBefore,
		NotAfter:  leaf.NotAfter,
		ExpiresIn: time.Until(leaf.NotAfter).Round(time.Minute).String(),
		Chain:     ctx.ChainLength(),
		ALPN:      strings.Join(ctx.Config().NextProtos, ","),
	})
}
