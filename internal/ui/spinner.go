package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// SimpleSpinner animates a message on a single line until stopped.
type SimpleSpinner struct {
	frames  []string
	message string
	out     io.Writer
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// NewSimpleSpinner creates a spinner that draws to out.
func NewSimpleSpinner(out io.Writer, message string) *SimpleSpinner {
	return &SimpleSpinner{
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		message: message,
		out:     out,
		done:    make(chan struct{}),
	}
}

// Start starts the animation
func (s *SimpleSpinner) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		style := lipgloss.NewStyle().Foreground(PrimaryColor)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			fmt.Fprintf(s.out, "\r  %s %s", style.Render(s.frames[i%len(s.frames)]), WhiteStyle.Render(s.message))
			select {
			case <-s.done:
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop stops the animation and clears the line. It is safe to call more
// than once.
func (s *SimpleSpinner) Stop() {
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
		fmt.Fprint(s.out, "\r\033[K")
	})
}

// WithSpinner runs fn while a spinner is shown on out.
func WithSpinner(out io.Writer, message string, fn func() error) error {
	sp := NewSimpleSpinner(out, message)
	sp.Start()
	err := fn()
	sp.Stop()
	if err != nil {
		fmt.Fprintln(out, RenderStatus("error", err.Error()))
	}
	return err
}
