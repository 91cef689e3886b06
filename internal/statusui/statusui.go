// Package statusui owns the terminal presentation the CLI layer uses:
// a one-line animated spinner for long-running phases, and bracketed
// status tags. The engine packages never import this — they speak only
// through the log.Logger interface, and the CLI layer decides how to
// render that for a human watching a terminal.
package statusui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

var frames = []string{"|", "/", "-", "\\"}

const interval = 100 * time.Millisecond

// Spinner animates a one-line status message while a phase runs, or
// prints the message once in a non-TTY environment (CI logs, redirected
// output).
type Spinner struct {
	mu      sync.Mutex
	out     io.Writer
	message string
	done    chan struct{}
	isTTY   bool
}

// NewSpinner returns a Spinner writing to out (os.Stderr if nil).
func NewSpinner(out io.Writer) *Spinner {
	if out == nil {
		out = os.Stderr
	}
	isTTY := false
	if f, ok := out.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}
	return &Spinner{out: out, isTTY: isTTY}
}

// Start begins animating message. In a non-TTY environment it is printed
// once without animation.
func (s *Spinner) Start(message string) {
	s.mu.Lock()
	s.message = message
	s.done = make(chan struct{})
	s.mu.Unlock()

	if !s.isTTY {
		fmt.Fprintln(s.out, message)
		return
	}
	go s.animate()
}

func (s *Spinner) animate() {
	i := 0
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			fmt.Fprintf(s.out, "\r%s %s", frames[i%len(frames)], s.message)
			s.mu.Unlock()
			i++
		}
	}
}

// Stop ends the animation and clears the spinner line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return
	}
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	if s.isTTY {
		fmt.Fprint(s.out, "\r\033[K")
	}
}

// Tag renders a bracketed status word, e.g. "[run]". It adds no color.
func Tag(word string) string {
	return fmt.Sprintf("[%s]", word)
}
