package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Gate decides whether the pipeline may cross a confirmation point.
type Gate interface {
	Confirm(prompt string) (bool, error)
}

// AutoGate approves every confirmation point. Used with --yes and in
// dry runs, where nothing irreversible is behind the gate.
type AutoGate struct{}

func (AutoGate) Confirm(string) (bool, error) { return true, nil }

// TerminalGate asks the operator on the terminal and requires a literal
// "yes". A non-interactive stdin refuses, so a scripted run without
// --yes can never push configuration.
type TerminalGate struct {
	In  io.Reader
	Out io.Writer
}

// NewTerminalGate returns a gate bound to stdin/stdout.
func NewTerminalGate() *TerminalGate {
	return &TerminalGate{In: os.Stdin, Out: os.Stdout}
}

func (g *TerminalGate) Confirm(prompt string) (bool, error) {
	if f, ok := g.In.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		fmt.Fprintln(g.Out, "stdin is not a terminal; refusing to continue (use --yes to confirm non-interactively)")
		return false, nil
	}
	fmt.Fprintf(g.Out, "%s [yes/no]: ", prompt)
	line, err := bufio.NewReader(g.In).ReadString('\n')
	if err != nil && line == "" {
		return false, err
	}
	return strings.TrimSpace(line) == "yes", nil
}
