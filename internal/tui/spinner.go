package tui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// spinnerFrames are the animation frames for the spinner.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"} //nolint:gochecknoglobals // Package-level constant for spinner animation

// SpinnerInterval is the default update interval for spinner animation.
const SpinnerInterval = 100 * time.Millisecond

// ElapsedTimeThreshold is the duration after which elapsed time is shown.
// Activation scripts such as vcvarsall.bat routinely take this long.
const ElapsedTimeThreshold = 5 * time.Second

// safeWriter serializes writes from the animation goroutine and callers.
type safeWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (sw *safeWriter) Write(p []byte) (int, error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.w.Write(p)
}

// Spinner animates a single status line while slow work, such as toolchain
// detection, runs. It must only be used on a terminal.
type Spinner struct {
	w        *safeWriter
	styles   *OutputStyles
	interval time.Duration

	mu      sync.Mutex
	message string
	started time.Time
	done    chan struct{}
	exited  chan struct{}
	running bool
}

// NewSpinner creates a spinner writing to w.
func NewSpinner(w io.Writer) *Spinner {
	return &Spinner{
		w:        &safeWriter{w: w},
		styles:   NewOutputStyles(),
		interval: SpinnerInterval,
	}
}

// Start begins the animation. Calling Start on a running spinner only
// replaces the message.
func (s *Spinner) Start(ctx context.Context, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.message = message
	if s.running {
		return
	}
	s.running = true
	s.started = time.Now()
	s.done = make(chan struct{})
	s.exited = make(chan struct{})
	go s.animate(ctx, s.done, s.exited)
}

// UpdateMessage changes the message without restarting the animation.
func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
}

// Stop ends the animation and clears the line. It is safe to call more than once.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	done, exited := s.done, s.exited
	s.mu.Unlock()

	close(done)
	<-exited
	_, _ = fmt.Fprint(s.w, "\r\033[K")
}

// StopWithSuccess stops the spinner and prints a success line.
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	_, _ = fmt.Fprintln(s.w, s.styles.Success.Render("✓ "+message))
}

// StopWithWarning stops the spinner and prints a warning line.
func (s *Spinner) StopWithWarning(message string) {
	s.Stop()
	_, _ = fmt.Fprintln(s.w, s.styles.Warning.Render("⚠ "+message))
}

func (s *Spinner) animate(ctx context.Context, done <-chan struct{}, exited chan<- struct{}) {
	defer close(exited)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		msg := s.message
		if elapsed := time.Since(s.started); elapsed > ElapsedTimeThreshold {
			msg = fmt.Sprintf("%s (%ds)", msg, int(elapsed.Seconds()))
		}
		s.mu.Unlock()

		icon := s.styles.Info.Render(spinnerFrames[frame%len(spinnerFrames)])
		_, _ = fmt.Fprintf(s.w, "\r\033[K%s %s", icon, msg)
	}
}
