package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/srvboot-go/internal/cli/output"
	"github.com/yndnr/srvboot-go/internal/server/bootstrap"
	"github.com/yndnr/srvboot-go/internal/server/localserver"
)

// StatusCommand returns the status command.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show server state over the local socket",
		Action: statusAction,
	}
}

// ShutdownCommand returns the shutdown command.
func ShutdownCommand() *cli.Command {
	return &cli.Command{
		Name:  "shutdown",
		Usage: "Request a graceful shutdown",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "grace",
				Usage: "Grace period before connections are force-closed (0 = server default)",
			},
			&cli.BoolFlag{
				Name:  "wait",
				Usage: "Wait until the server has stopped",
			},
			&cli.DurationFlag{
				Name:  "wait-timeout",
				Usage: "Give up waiting after this long",
				Value: time.Minute,
			},
		},
		Action: shutdownAction,
	}
}

// LogLevelCommand returns the log-level command.
func LogLevelCommand() *cli.Command {
	return &cli.Command{
		Name:      "log-level",
		Usage:     "Change the server log level",
		ArgsUsage: "LEVEL",
		Action:    logLevelAction,
	}
}

func localClient(c *cli.Context) *localserver.Client {
	flags := ParseGlobalFlags(c)
	verbosef(c, "using socket %s", flags.Socket)
	return localserver.NewClient(flags.Socket, flags.Timeout)
}

func statusAction(c *cli.Context) error {
	client := localClient(c)
	defer client.CloseIdleConnections()

	ctx, cancel := context.WithTimeout(contextOrBackground(c), ParseGlobalFlags(c).Timeout)
	defer cancel()

	st, err := client.State(ctx)
	if err != nil {
		return fmt.Errorf("query server: %w", err)
	}
	return printResult(c, st)
}

func shutdownAction(c *cli.Context) error {
	client := localClient(c)
	defer client.CloseIdleConnections()

	ctx := contextOrBackground(c)
	reqCtx, cancel := context.WithTimeout(ctx, ParseGlobalFlags(c).Timeout)
	defer cancel()

	resp, err := client.Shutdown(reqCtx, c.Duration("grace"))
	if err != nil {
		return fmt.Errorf("request shutdown: %w", err)
	}
	if !c.Bool("wait") || !resp.Accepted {
		return printResult(c, resp)
	}
	return waitStopped(c, client, c.Duration("wait-timeout"))
}

// waitStopped polls the server until its socket disappears, showing how
// many connections have drained.
func waitStopped(c *cli.Context, client *localserver.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(contextOrBackground(c), timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var (
		bar     *output.ProgressBar
		spinner *output.Spinner
		total   int64 = -1
		last    string
	)
	finish := func() {
		if bar != nil {
			bar.Finish()
		}
		if spinner != nil {
			spinner.Stop()
		}
	}

	for {
		st, err := client.State(ctx)
		if err != nil {
			finish()
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("server did not stop within %s", timeout)
			}
			// The socket is removed once the server has stopped.
			fmt.Fprintln(stdout(c), "server stopped")
			return nil
		}

		if st.State != last {
			last = st.State
			fmt.Fprintf(stdout(c), "server %s\n", st.State)
		}
		if st.State == bootstrap.StateStopped.String() {
			finish()
			return nil
		}

		if total < 0 {
			total = st.InFlight
			if total > 0 {
				bar = output.NewProgressBar(stderr(c), "Draining", "connections")
				bar.SetTotal(total)
			} else {
				spinner = output.NewSpinner(stderr(c), waitMessage(st.State))
				spinner.Start()
			}
		}
		if spinner != nil {
			spinner.SetMessage(waitMessage(st.State))
		}
		if bar != nil {
			bar.Update(max(total-st.InFlight, 0), total)
		}
		// Idle connections from this client are not server work.
		client.CloseIdleConnections()

		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}
}

func waitMessage(state string) string {
	return "Waiting for server to stop (" + state + ")"
}

func logLevelAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("log-level requires exactly one LEVEL", 2)
	}
	client := localClient(c)
	defer client.CloseIdleConnections()

	ctx, cancel := context.WithTimeout(contextOrBackground(c), ParseGlobalFlags(c).Timeout)
	defer cancel()

	if err := client.SetLogLevel(ctx, c.Args().First()); err != nil {
		return err
	}
	fmt.Fprintf(stdout(c), "log level set to %s\n", c.Args().First())
	return nil
}
