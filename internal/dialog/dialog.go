// Package dialog is the terminal replacement for the web client's modal
// dialogs: categorized messages, confirm prompts, and the connectivity hint
// shown when the backend cannot be reached.
package dialog

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
)

var (
	successColor = color.New(color.FgGreen)
	infoColor    = color.New(color.FgCyan)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.FgHiBlack)
)

// Dialog writes categorized output to out and reads confirmations from in.
type Dialog struct {
	out io.Writer
	in  *bufio.Reader
}

// New wires the dialog to its streams, usually os.Stdout and os.Stdin.
func New(out io.Writer, in io.Reader) *Dialog {
	return &Dialog{out: out, in: bufio.NewReader(in)}
}

// Banner prints the startup figure, the way the tool introduces itself.
func Banner() {
	figure.NewColorFigure("ENLACE", "doom", "cyan", true).Print()
	_, _ = infoColor.Println("════════════════════════════════════════════════")
	_, _ = dimColor.Println("    Analizador de enlaces de phishing")
	_, _ = infoColor.Println("════════════════════════════════════════════════")
}

// Success prints a green confirmation line.
func (d *Dialog) Success(msg string) {
	_, _ = successColor.Fprintf(d.out, "✔ %s\n", msg)
}

// Info prints a neutral cyan line.
func (d *Dialog) Info(msg string) {
	_, _ = infoColor.Fprintf(d.out, "ℹ %s\n", msg)
}

// Warning prints a yellow caution line.
func (d *Dialog) Warning(msg string) {
	_, _ = warnColor.Fprintf(d.out, "⚠ %s\n", msg)
}

// Error prints a red failure line.
func (d *Dialog) Error(msg string) {
	_, _ = errorColor.Fprintf(d.out, "✘ %s\n", msg)
}

// ConnectivityHint follows an unreachable-backend error with the checks the
// web client listed in its error modal.
func (d *Dialog) ConnectivityHint(baseURL string) {
	_, _ = dimColor.Fprintln(d.out, "  Verificaciones necesarias:")
	_, _ = dimColor.Fprintf(d.out, "  - Backend corriendo en %s\n", baseURL)
	_, _ = dimColor.Fprintln(d.out, "  - Base de datos activa y accesible")
	_, _ = dimColor.Fprintln(d.out, "  - Configuración CORS correcta en el servidor")
}

// Confirm asks a yes/no question and reports the answer. Anything other
// than y/yes/s/si declines, matching the cancel-by-default dialogs.
func (d *Dialog) Confirm(question string) bool {
	_, _ = warnColor.Fprintf(d.out, "%s [y/N]: ", question)
	line, err := d.in.ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "s", "si", "sí":
		return true
	}
	return false
}

// List prints an indented bullet list under a bold label.
func (d *Dialog) List(label string, items []string) {
	_, _ = fmt.Fprintf(d.out, "%s\n", color.New(color.Bold).Sprint(label))
	for _, item := range items {
		_, _ = fmt.Fprintf(d.out, "  • %s\n", item)
	}
}

// RiskBar prints the 1-5 risk scale with the reached level highlighted.
func (d *Dialog) RiskBar(level, percent int) {
	c := successColor
	if level >= 4 {
		c = errorColor
	} else if level >= 3 {
		c = warnColor
	}
	bar := strings.Repeat("█", level) + strings.Repeat("░", 5-level)
	_, _ = c.Fprintf(d.out, "Riesgo: %s %d%% (nivel %d/5)\n", bar, percent, level)
}
