package tlsroots

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yndnr/srvboot-go/internal/telemetry/logger"
)

// Watcher rebuilds a Context when its files change or on a fixed refresh
// interval, and publishes it through a Holder. A failed rebuild keeps the
// previous context.
type Watcher struct {
	src    Source
	opts   Options
	holder *Holder

	done     chan struct{}
	stopOnce sync.Once
	watcher  *fsnotify.Watcher
	logger   logger.Logger

	refresh  time.Duration
	onReload func(err error)

	// Debounce settings to avoid multiple reloads
	debounce   time.Duration
	lastReload time.Time
	reloadMu   sync.Mutex
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets the logger for the watcher.
func WithLogger(l logger.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = l
	}
}

// WithDebounce sets the debounce duration.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithRefreshInterval rebuilds the context periodically even without file
// events. Zero disables periodic refresh.
func WithRefreshInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.refresh = d
	}
}

// WithReloadHook is called after every rebuild attempt with its result.
func WithReloadHook(fn func(err error)) WatcherOption {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// NewWatcher creates a watcher over file-based material. The holder keeps
// whatever context it already has until the first successful rebuild.
func NewWatcher(src Source, opts Options, holder *Holder, wopts ...WatcherOption) (*Watcher, error) {
	if src.CertFile == "" || src.KeyFile == "" {
		return nil, errors.New("tlsroots: watcher requires cert and key files")
	}
	if holder == nil {
		return nil, errors.New("tlsroots: watcher requires a holder")
	}

	w := &Watcher{
		src:      src,
		opts:     opts,
		holder:   holder,
		done:     make(chan struct{}),
		logger:   logger.Nop(),
		debounce: 500 * time.Millisecond,
	}
	for _, opt := range wopts {
		opt(w)
	}
	return w, nil
}

// Start watches until Stop is called.
func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tlsroots: create watcher: %w", err)
	}
	w.watcher = watcher
	defer watcher.Close()

	// Watch directories rather than files so atomic renames are seen.
	certDir := filepath.Dir(w.src.CertFile)
	keyDir := filepath.Dir(w.src.KeyFile)
	if err := watcher.Add(certDir); err != nil {
		return fmt.Errorf("tlsroots: watch cert dir %s: %w", certDir, err)
	}
	if keyDir != certDir {
		if err := watcher.Add(keyDir); err != nil {
			return fmt.Errorf("tlsroots: watch key dir %s: %w", keyDir, err)
		}
	}

	var tick <-chan time.Time
	if w.refresh > 0 {
		ticker := time.NewTicker(w.refresh)
		defer ticker.Stop()
		tick = ticker.C
	}

	w.logger.Info("certificate watcher started",
		"cert_file", w.src.CertFile,
		"key_file", w.src.KeyFile,
		"refresh", w.refresh.String(),
	)

	certBase := filepath.Base(w.src.CertFile)
	keyBase := filepath.Base(w.src.KeyFile)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			changed := filepath.Base(event.Name)
			if changed != certBase && changed != keyBase {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("certificate file changed", "file", event.Name, "op", event.Op.String())
			w.debouncedReload()

		case <-tick:
			w.Reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("certificate watcher error", "error", err)

		case <-w.done:
			return nil
		}
	}
}

// StartAsync starts watching in a goroutine.
func (w *Watcher) StartAsync() {
	go func() {
		if err := w.Start(); err != nil {
			w.logger.Error("certificate watcher stopped with error", "error", err)
		}
	}()
}

// Stop stops watching. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

// Reload rebuilds the context now and publishes it on success.
func (w *Watcher) Reload() error {
	ctx, err := Build(w.src, w.opts)
	if w.onReload != nil {
		w.onReload(err)
	}
	if err != nil {
		w.logger.Error("certificate reload failed, keeping previous context",
			"error", err,
			"cert_file", w.src.CertFile,
		)
		return err
	}

	w.holder.Store(ctx)
	w.logger.Info("certificate reloaded", "cert", ctx.Describe())
	return nil
}

func (w *Watcher) debouncedReload() {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	now := time.Now()
	if now.Sub(w.lastReload) < w.debounce {
		return
	}
	w.lastReload = now

	// Writers often truncate then write; give them a moment.
	time.Sleep(100 * time.Millisecond)
	w.Reload()
}
