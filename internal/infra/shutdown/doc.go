// Package shutdown provides graceful process shutdown for srvboot.
//
// Handler waits for SIGINT or SIGTERM, an explicit Trigger (for example
// from the local management socket) or context cancellation, then runs
// registered hooks in reverse order under a deadline. A second signal
// cancels the hooks' context so they can force-close.
//
// Usage:
//
//	h := shutdown.NewHandler(10*time.Second, log)
//	h.OnShutdown(func(ctx context.Context) error { return srv.Shutdown(...).Err() })
//	err := h.Wait(ctx)
package shutdown
