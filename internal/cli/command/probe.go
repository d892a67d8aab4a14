package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/srvboot-go/internal/cli/connection"
)

// ProbeCommand returns the probe command.
func ProbeCommand() *cli.Command {
	return &cli.Command{
		Name:      "probe",
		Usage:     "Send a GET request and report how it was served",
		ArgsUsage: "URL",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "ipv4", Aliases: []string{"4"}, Usage: "Connect over IPv4 only"},
			&cli.BoolFlag{Name: "ipv6", Aliases: []string{"6"}, Usage: "Connect over IPv6 only"},
			&cli.StringFlag{Name: "ca", Usage: "PEM CA bundle to trust instead of the system roots"},
			&cli.BoolFlag{Name: "insecure", Aliases: []string{"k"}, Usage: "Skip certificate verification"},
			&cli.StringFlag{Name: "server-name", Usage: "TLS server name override"},
			&cli.BoolFlag{Name: "h2c", Usage: "Use cleartext HTTP/2 with prior knowledge"},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "API key as <id>:<secret>",
				EnvVars: []string{"SRVBOOT_API_KEY"},
			},
			&cli.BoolFlag{Name: "fail", Aliases: []string{"f"}, Usage: "Exit non-zero on HTTP status >= 400"},
		},
		Action: probeAction,
	}
}

func probeAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("probe requires exactly one URL", 2)
	}
	if c.Bool("ipv4") && c.Bool("ipv6") {
		return cli.Exit("--ipv4 and --ipv6 are mutually exclusive", 2)
	}

	network := "tcp"
	switch {
	case c.Bool("ipv4"):
		network = "tcp4"
	case c.Bool("ipv6"):
		network = "tcp6"
	}

	flags := ParseGlobalFlags(c)
	p, err := connection.NewProber(connection.ProbeOptions{
		Network:    network,
		CAFile:     c.String("ca"),
		Insecure:   c.Bool("insecure"),
		ServerName: c.String("server-name"),
		H2C:        c.Bool("h2c"),
		Timeout:    flags.Timeout,
		APIKey:     c.String("api-key"),
	})
	if err != nil {
		return err
	}
	defer p.CloseIdleConnections()

	verbosef(c, "probing %s over %s", c.Args().First(), network)
	ctx, cancel := context.WithTimeout(contextOrBackground(c), flags.Timeout)
	defer cancel()

	res, err := p.Probe(ctx, c.Args().First())
	if err != nil {
		return err
	}
	if err := printResult(c, res); err != nil {
		return err
	}
	if c.Bool("fail") && res.Status >= 400 {
		return cli.Exit(fmt.Sprintf("server returned %d", res.Status), 1)
	}
	return nil
}

// contextOrBackground returns c.Context, which is nil when an action is
// invoked outside App.Run.
func contextOrBackground(c *cli.Context) context.Context {
	if c.Context != nil {
		return c.Context
	}
	return context.Background()
}
