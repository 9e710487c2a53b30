// Package progress renders the orchestrator's discovering/indexing
// stream to the terminal, adapted from the teacher's gum-spinner/simple
// dual-path progress helper.
package progress

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/convoindex/convoindex/internal/orchestrator"
)

var (
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Bold(true)
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
)

// Step is a single named unit of work, the same shape the teacher's
// ShowProgressWithSteps took.
type Step struct {
	Message string
	Fn      func() error
}

// Show runs a spinner with message using gum if available, otherwise a
// simple text spinner; falls back to plain logged lines when stderr
// isn't a terminal.
func Show(ctx context.Context, message string, fn func() error) error {
	if !isTerminal(os.Stderr) {
		fmt.Fprintln(os.Stderr, message)
		return fn()
	}
	if gumAvailable() {
		return showWithGum(ctx, message, fn)
	}
	return showSimple(ctx, message, fn)
}

// ShowSteps runs Show sequentially over steps, numbering each one.
func ShowSteps(ctx context.Context, steps []Step) error {
	for i, step := range steps {
		msg := fmt.Sprintf("[%d/%d] %s", i+1, len(steps), step.Message)
		if err := Show(ctx, msg, step.Fn); err != nil {
			return fmt.Errorf("%s: %w", step.Message, err)
		}
	}
	return nil
}

// OnOrchestratorEvent is a orchestrator.Orchestrator.OnProgress callback
// that prints one line per progress tick, for plumbing straight into
// Orchestrator.Run without a spinner (Run's steps aren't discrete named
// functions, so the gum-spinner path doesn't apply; it renders a
// running "[n/total] stage: slug" line instead).
func OnOrchestratorEvent(ev orchestrator.ProgressEvent) {
	line := fmt.Sprintf("[%d/%d] %s", ev.Completed, ev.Total, ev.Stage)
	if ev.LastSlug != "" {
		line += ": " + ev.LastSlug
	}
	if isTerminal(os.Stderr) {
		fmt.Fprintf(os.Stderr, "\r%s %s", progressStyle.Render("→"), line)
		if ev.Total > 0 && ev.Completed >= ev.Total {
			fmt.Fprintln(os.Stderr)
		}
	} else {
		fmt.Fprintln(os.Stderr, line)
	}
}

func showWithGum(ctx context.Context, message string, fn func() error) error {
	done := make(chan error, 1)
	spinnerDone := make(chan struct{})

	cmd := exec.CommandContext(ctx, "gum", "spin", "--spinner", "dot", "--", "sh", "-c", "while true; do sleep 0.1; done")
	cmd.Stderr = os.Stderr
	cmd.Stdout = os.Stderr

	go func() {
		defer close(spinnerDone)
		_ = cmd.Run()
	}()
	go func() { done <- fn() }()

	select {
	case err := <-done:
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-spinnerDone
		if err != nil {
			fmt.Fprintf(os.Stderr, "\r%s %s\n", errorStyle.Render("✗"), message)
			return err
		}
		fmt.Fprintf(os.Stderr, "\r%s %s\n", successStyle.Render("✓"), message)
		return nil
	case <-ctx.Done():
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-spinnerDone
		return ctx.Err()
	}
}

func showSimple(ctx context.Context, message string, fn func() error) error {
	spinnerChars := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	done := make(chan error, 1)
	spinnerDone := make(chan struct{})

	go func() {
		defer close(spinnerDone)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		i := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Fprintf(os.Stderr, "\r%s %s", progressStyle.Render(spinnerChars[i%len(spinnerChars)]), message)
				i++
			}
		}
	}()
	go func() { done <- fn() }()

	select {
	case err := <-done:
		<-spinnerDone
		if err != nil {
			fmt.Fprintf(os.Stderr, "\r%s %s\n", errorStyle.Render("✗"), message)
			return err
		}
		fmt.Fprintf(os.Stderr, "\r%s %s\n", successStyle.Render("✓"), message)
		return nil
	case <-ctx.Done():
		<-spinnerDone
		return ctx.Err()
	}
}

func gumAvailable() bool {
	_, err := exec.LookPath("gum")
	return err == nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd())
}

func PrintSuccess(message string) {
	if isTerminal(os.Stdout) {
		fmt.Printf("%s %s\n", successStyle.Render("✓"), message)
	} else {
		fmt.Println(message)
	}
}

func PrintError(message string) {
	if isTerminal(os.Stderr) {
		fmt.Fprintf(os.Stderr, "%s %s\n", errorStyle.Render("✗"), message)
	} else {
		fmt.Fprintf(os.Stderr, "%s\n", message)
	}
}

func PrintInfo(message string) {
	if isTerminal(os.Stdout) {
		fmt.Printf("%s %s\n", progressStyle.Render("ℹ"), message)
	} else {
		fmt.Println(message)
	}
}

func PrintWarning(message string) {
	if isTerminal(os.Stderr) {
		fmt.Fprintf(os.Stderr, "%s %s\n", warningStyle.Render("⚠"), message)
	} else {
		fmt.Fprintf(os.Stderr, "WARNING: %s\n", message)
	}
}
