// Package spinner draws a one-line progress indicator while grading steps
// run.
package spinner

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const interval = 80 * time.Millisecond

// Spinner animates the name of the step currently running.
type Spinner struct {
	w io.Writer

	mu      sync.Mutex
	message string
	width   int

	done    chan struct{}
	cleared chan struct{}
	once    sync.Once
}

// Start displays an animated spinner with the given message on w. Call Stop
// to clear the line.
func Start(w io.Writer, message string) *Spinner {
	s := &Spinner{
		w:       w,
		message: message,
		done:    make(chan struct{}),
		cleared: make(chan struct{}),
	}
	go s.loop()
	return s
}

// Set replaces the message shown next to the spinner.
func (s *Spinner) Set(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Step is Set with a "grading <step>" message, for use with evaluate.WithProgress.
func (s *Spinner) Step(name string) {
	s.Set("grading " + name)
}

// Stop clears the line and waits for the animation to end. It is safe to call
// more than once.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		close(s.done)
	})
	<-s.cleared
}

func (s *Spinner) loop() {
	i := 0
	for {
		select {
		case <-s.done:
			s.mu.Lock()
			fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.width)) //nolint:errcheck
			s.mu.Unlock()
			close(s.cleared)
			return
		case <-time.After(interval):
			s.mu.Lock()
			line := frames[i%len(frames)] + " " + s.message
			pad := ""
			if n := len(line); n < s.width {
				pad = strings.Repeat(" ", s.width-n)
			} else {
				s.width = n
			}
			fmt.Fprintf(s.w, "\r%s%s", line, pad) //nolint:errcheck
			s.mu.Unlock()
			i++
		}
	}
}
