package output

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Spinner animates a status line while the server state is polled and
// the count of remaining work is unknown.
type Spinner struct {
	w       io.Writer
	frames  []string
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	started bool

	mu      sync.Mutex
	message string
}

// NewSpinner creates a spinner showing message.
func NewSpinner(w io.Writer, message string) *Spinner {
	return &Spinner{
		w:       w,
		message: message,
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// SetMessage replaces the text next to the animation, for example when
// the server moves from running to draining.
func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

func (s *Spinner) text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

// Start starts the animation. It must be called at most once.
func (s *Spinner) Start() {
	s.started = true
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			// Clear first: a shorter message must not leave a tail behind.
			fmt.Fprintf(s.w, "\r\033[K%s %s", s.frames[i%len(s.frames)], s.text())
			select {
			case <-s.done:
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop ends the animation and clears the line. It is safe to call more
// than once and without Start.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		close(s.done)
		if s.started {
			<-s.stopped
		}
		fmt.Fprint(s.w, "\r\033[K")
	})
}
