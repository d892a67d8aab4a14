package command

import (
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/srvboot-go/internal/cli/output"
	"github.com/yndnr/srvboot-go/internal/infra/buildinfo"
	"github.com/yndnr/srvboot-go/internal/server/config"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "srvboot-cli",
		Usage:   "srvboot command-line management tool",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			ProbeCommand(),
			StatusCommand(),
			ShutdownCommand(),
			LogLevelCommand(),
			TLSCommand(),
			ConfigCommand(),
			APIKeyCommand(),
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "socket",
			Aliases: []string{"S"},
			Usage:   "Local management socket of srvboot-server",
			EnvVars: []string{"SRVBOOT_SOCKET"},
			Value:   config.DefaultLocalSocket,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   string(output.FormatTable),
			Action: func(_ *cli.Context, v string) error {
				if !output.Format(v).Valid() {
					return fmt.Errorf("unknown output format %q (want one of %v)", v, output.Formats())
				}
				return nil
			},
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Request timeout",
			Value: 10 * time.Second,
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Enable verbose output",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Socket  string
	Output  string // table, json, yaml
	Wide    bool
	Timeout time.Duration
	Verbose bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Socket:  c.String("socket"),
		Output:  c.String("output"),
		Wide:    c.Bool("wide"),
		Timeout: c.Duration("timeout"),
		Verbose: c.Bool("verbose"),
	}
}

// printResult writes data in the selected output format.
func printResult(c *cli.Context, data any) error {
	flags := ParseGlobalFlags(c)
	return output.NewFormatter(output.Format(flags.Output), flags.Wide).Format(stdout(c), data)
}

func stdout(c *cli.Context) io.Writer {
	return c.App.Writer
}

func stderr(c *cli.Context) io.Writer {
	return c.App.ErrWriter
}

// verbosef prints to stderr when --verbose is set.
func verbosef(c *cli.Context, format string, args ...any) {
	if c.Bool("verbose") {
		fmt.Fprintf(stderr(c), format+"\n", args...)
	}
}
