package internal

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Printer writes status lines styled with the active theme. Styling is only
// applied when the destination is a terminal.
type Printer struct {
	Out io.Writer
	Err io.Writer

	accent  lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	warning lipgloss.Style
}

// NewPrinter creates a printer for theme writing to out and errw
func NewPrinter(out, errw io.Writer, theme Theme) *Printer {
	return &Printer{
		Out:     out,
		Err:     errw,
		accent:  lipgloss.NewStyle().Foreground(theme.Palette.Accent).Bold(true),
		success: lipgloss.NewStyle().Foreground(theme.Palette.Primary).Bold(true),
		failure: lipgloss.NewStyle().Foreground(theme.Palette.Error).Bold(true),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
	}
}

// Success prints a success message
func (p *Printer) Success(message string) {
	p.line(p.Out, p.success, "✓", "", message)
}

// Error prints an error message
func (p *Printer) Error(message string) {
	p.line(p.Err, p.failure, "✗", "", message)
}

// Info prints an info message
func (p *Printer) Info(message string) {
	p.line(p.Out, p.accent, "ℹ", "", message)
}

// Warning prints a warning message
func (p *Printer) Warning(message string) {
	p.line(p.Err, p.warning, "⚠", "WARNING: ", message)
}

func (p *Printer) line(w io.Writer, style lipgloss.Style, mark, plainPrefix, message string) {
	if isTerminal(w) {
		fmt.Fprintf(w, "%s %s\n", style.Render(mark), message)
		return
	}
	fmt.Fprintf(w, "%s%s\n", plainPrefix, message)
}

// Spin runs fn while showing a spinner on the error stream. Outside a
// terminal it logs the message and runs fn directly.
func (p *Printer) Spin(ctx context.Context, message string, fn func() error) error {
	if !isTerminal(p.Err) {
		LogInfo("%s", message)
		return fn()
	}
	if gumAvailable() {
		return p.spinWithGum(ctx, message, fn)
	}
	return p.spinSimple(ctx, message, fn)
}

func (p *Printer) spinWithGum(ctx context.Context, message string, fn func() error) error {
	spinCtx, stop := context.WithCancel(ctx)
	defer stop()

	cmd := exec.CommandContext(spinCtx, "gum", "spin", "--spinner", "dot", "--title", message, "--", "sh", "-c", "while true; do sleep 0.1; done")
	cmd.Stdout = p.Err
	cmd.Stderr = p.Err

	spinnerDone := make(chan struct{})
	go func() {
		defer close(spinnerDone)
		_ = cmd.Run()
	}()

	err := p.await(ctx, fn)
	stop()
	<-spinnerDone
	return p.finishSpin(message, err)
}

func (p *Printer) spinSimple(ctx context.Context, message string, fn func() error) error {
	spinCtx, stop := context.WithCancel(ctx)
	defer stop()

	spinnerDone := make(chan struct{})
	go func() {
		defer close(spinnerDone)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-spinCtx.Done():
				return
			case <-ticker.C:
				fmt.Fprintf(p.Err, "\r%s %s", p.accent.Render(spinnerFrames[i%len(spinnerFrames)]), message)
			}
		}
	}()

	err := p.await(ctx, fn)
	stop()
	<-spinnerDone
	return p.finishSpin(message, err)
}

// await runs fn in the background and returns its error, or ctx's when ctx
// ends first
func (p *Printer) await(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Printer) finishSpin(message string, err error) error {
	if err != nil {
		fmt.Fprintf(p.Err, "\r%s %s\n", p.failure.Render("✗"), message)
		return err
	}
	fmt.Fprintf(p.Err, "\r%s %s\n", p.success.Render("✓"), message)
	return nil
}

func gumAvailable() bool {
	_, err := exec.LookPath("gum")
	return err == nil
}

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

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	return isTerminal(w)
}
