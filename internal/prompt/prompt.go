// Package prompt asks the operator which fixes to apply. On a terminal it
// runs a bubbletea selection list; otherwise it falls back to one yes/no
// question per finding on plain line input.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/ancients-collective/sshcheck/internal/types"
)

// Prompter reads operator answers from In and writes questions to Out.
type Prompter struct {
	In  io.Reader
	Out io.Writer
	// TUI selects the bubbletea list instead of line prompts.
	TUI bool

	reader *bufio.Reader
}

// NewPrompter uses the TUI when in is a terminal.
func NewPrompter(in *os.File, out io.Writer) *Prompter {
	return &Prompter{In: in, Out: out, TUI: term.IsTerminal(int(in.Fd()))}
}

// SelectFixes returns the candidates the operator chose. A nil slice with a
// nil error means nothing was selected or the operator cancelled.
func (p *Prompter) SelectFixes(ctx context.Context, title string, candidates []types.CheckResult, fixes map[string]types.PatchRequest) ([]types.CheckResult, error) {
	m := NewModel(title, candidates, fixes)
	if len(m.Items) == 0 {
		return nil, nil
	}
	if p.TUI {
		return p.runTUI(ctx, m)
	}
	return p.selectByLine(m)
}

func (p *Prompter) runTUI(ctx context.Context, m Model) ([]types.CheckResult, error) {
	prog := tea.NewProgram(m,
		tea.WithInput(p.In),
		tea.WithOutput(p.Out),
		tea.WithContext(ctx),
	)
	final, err := prog.Run()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("selection prompt: %w", err)
	}
	fm, ok := final.(Model)
	if !ok {
		return nil, fmt.Errorf("selection prompt: unexpected model %T", final)
	}
	return fm.Selected(), nil
}

func (p *Prompter) selectByLine(m Model) ([]types.CheckResult, error) {
	bold := color.New(color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Fprintf(p.Out, "\n  %s\n", bold(m.Title))
	fmt.Fprintf(p.Out, "  Found %d security issue(s) that can be automatically fixed.\n\n", len(m.Items))

	var selected []types.CheckResult
	for _, it := range m.Items {
		fmt.Fprintf(p.Out, "  %s\n", yellow(it.Result.Name))
		fmt.Fprintf(p.Out, "    Issue: %s\n", it.Result.Details)
		fmt.Fprintf(p.Out, "    Fix:   %s\n", cyan(it.Result.Remediation))

		yes, err := p.AskYesNo("  Do you want to fix this issue?")
		if errors.Is(err, io.EOF) {
			// Unanswered items default to no.
			fmt.Fprintln(p.Out)
			break
		}
		if err != nil {
			return nil, err
		}
		if yes {
			selected = append(selected, it.Result)
		}
		fmt.Fprintln(p.Out)
	}
	return selected, nil
}

// AskYesNo asks until it gets y/yes or n/no. It returns io.EOF when input
// ends before an answer.
func (p *Prompter) AskYesNo(question string) (bool, error) {
	if p.reader == nil {
		p.reader = bufio.NewReader(p.In)
	}
	for {
		fmt.Fprintf(p.Out, "%s (y/n): ", question)
		line, err := p.reader.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		switch answer {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		if err != nil {
			return false, err
		}
		fmt.Fprintln(p.Out, "Please enter 'y' for yes or 'n' for no.")
	}
}
