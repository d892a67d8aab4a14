package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/yndnr/srvboot-go/internal/telemetry/logger"
)

// Hook runs during shutdown. Its context expires when the grace period
// ends or a second signal arrives.
type Hook func(ctx context.Context) error

// Request describes why shutdown started.
type Request struct {
	Reason string
	// Grace overrides the handler's timeout when positive.
	Grace time.Duration
}

// Handler handles graceful shutdown.
type Handler struct {
	timeout time.Duration
	hooks   []Hook
	mu      sync.Mutex
	trigger chan Request
	done    chan struct{}
	logger  logger.Logger
}

// NewHandler creates a new shutdown handler.
func NewHandler(timeout time.Duration, l logger.Logger) *Handler {
	if l == nil {
		l = logger.Nop()
	}
	return &Handler{
		timeout: timeout,
		hooks:   make([]Hook, 0),
		trigger: make(chan Request, 1),
		done:    make(chan struct{}),
		logger:  l,
	}
}

// OnShutdown registers a shutdown hook.
// Hooks are called in reverse order of registration.
func (h *Handler) OnShutdown(hook Hook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, hook)
}

// Trigger starts shutdown without a signal. It reports false if shutdown
// was already requested.
func (h *Handler) Trigger(reason string, grace time.Duration) bool {
	select {
	case h.trigger <- Request{Reason: reason, Grace: grace}:
		return true
	default:
		return false
	}
}

// Wait blocks until SIGINT, SIGTERM, Trigger or ctx cancellation, then
// executes the hooks. A second signal while hooks run cancels their
// context.
func (h *Handler) Wait(ctx context.Context) error {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var req Request
	select {
	case sig := <-sigCh:
		req.Reason = sig.String()
	case req = <-h.trigger:
	case <-ctx.Done():
		req.Reason = "context canceled"
	}

	timeout := h.timeout
	if req.Grace > 0 {
		timeout = req.Grace
	}
	h.logger.Info("shutdown started",
		"reason", req.Reason,
		"grace", timeout.String(),
	)

	hookCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	go func() {
		select {
		case sig := <-sigCh:
			h.logger.Warn("second signal, forcing shutdown", "signal", sig.String())
			cancel()
		case <-hookCtx.Done():
		}
	}()

	// Execute hooks in reverse order
	h.mu.Lock()
	hooks := make([]Hook, len(h.hooks))
	copy(hooks, h.hooks)
	h.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](hookCtx); err != nil {
			errs = append(errs, err)
		}
	}

	close(h.done)
	return errors.Join(errs...)
}

// Done returns a channel that closes when shutdown is complete.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}

// Remaining returns the time left before ctx expires, or def when ctx
// has no deadline.
func Remaining(ctx context.Context, def time.Duration) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return def
	}
	if d := time.Until(deadline); d > 0 {
		return d
	}
	return 0
}
