// Package logger prints human-facing status lines for the command-line tools.
// Structured diagnostics go through slog; this is what an operator reads.
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Console writes colored status lines. Errors go to a separate writer.
type Console struct {
	out io.Writer
	err io.Writer
}

// New returns a console on the given writers; nil means stdout/stderr.
func New(out, errOut io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return &Console{out: out, err: errOut}
}

// Heading prints a bold section title.
func (c *Console) Heading(format string, args ...any) {
	fmt.Fprintln(c.out, color.New(color.Bold).Sprintf(format, args...))
}

// Info prints a plain line.
func (c *Console) Info(format string, args ...any) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

// Success prints a line prefixed with a green check mark.
func (c *Console) Success(format string, args ...any) {
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(c.out, "%s %s\n", green("✓"), fmt.Sprintf(format, args...))
}

// Warn prints a yellow line.
func (c *Console) Warn(format string, args ...any) {
	fmt.Fprintln(c.out, color.YellowString(format, args...))
}

// Error prints a red "Error:" line to the error writer.
func (c *Console) Error(format string, args ...any) {
	fmt.Fprintf(c.err, "%s %s\n", color.RedString("Error:"), fmt.Sprintf(format, args...))
}
