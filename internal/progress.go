package internal

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var (
	progressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Progress reports a running count while fn pages through history
type Progress struct {
	message string
	count   atomic.Int64
	out     io.Writer
}

// NewProgress creates a progress reporter writing to stderr
func NewProgress(message string) *Progress {
	return &Progress{message: message, out: os.Stderr}
}

// Set updates the running count
func (p *Progress) Set(n int) {
	p.count.Store(int64(n))
}

func (p *Progress) line() string {
	n := p.count.Load()
	if n == 0 {
		return p.message
	}
	return fmt.Sprintf("%s (%s events)", p.message, humanize.Comma(n))
}

// Run calls fn while animating a spinner on terminals. Off a terminal it
// logs the message once.
func (p *Progress) Run(ctx context.Context, fn func() error) error {
	if !isTerminal(p.out) {
		LogInfo(p.message)
		return fn()
	}

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				frame := spinnerFrames[i%len(spinnerFrames)]
				fmt.Fprintf(p.out, "\r%s %s", progressStyle.Render(frame), p.line())
			}
		}
	}()

	err := fn()
	close(stop)
	<-stopped

	if err != nil {
		fmt.Fprintf(p.out, "\r%s %s\n", errorStyle.Render("✗"), p.line())
		return err
	}
	fmt.Fprintf(p.out, "\r%s %s\n", successStyle.Render("✓"), p.line())
	return nil
}

// ShowProgress runs fn behind a spinner with message
func ShowProgress(ctx context.Context, message string, fn func() error) error {
	return NewProgress(message).Run(ctx, fn)
}

// isTerminal checks if the writer is a terminal
func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil {
			return false
		}
		return (stat.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	if isTerminal(os.Stdout) {
		fmt.Printf("%s %s\n", successStyle.Render("✓"), message)
	} else {
		fmt.Println(message)
	}
}

// PrintError prints an error message
func PrintError(message string) {
	if isTerminal(os.Stderr) {
		fmt.Fprintf(os.Stderr, "%s %s\n", errorStyle.Render("✗"), message)
	} else {
		fmt.Fprintf(os.Stderr, "%s\n", message)
	}
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	if isTerminal(os.Stdout) {
		fmt.Printf("%s %s\n", progressStyle.Render("ℹ"), message)
	} else {
		fmt.Println(message)
	}
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	if isTerminal(os.Stderr) {
		fmt.Fprintf(os.Stderr, "%s %s\n", warningStyle.Render("⚠"), message)
	} else {
		fmt.Fprintf(os.Stderr, "WARNING: %s\n", message)
	}
}
