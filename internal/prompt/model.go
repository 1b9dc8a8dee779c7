package prompt

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ancients-collective/sshcheck/internal/types"
)

// Item is one fixable finding in the selection list.
type Item struct {
	Result   types.CheckResult
	Fix      types.PatchRequest
	Selected bool
}

// Model is the bubbletea model for choosing which fixes to apply.
// Every item starts selected; the operator opts out.
type Model struct {
	Title     string
	Items     []Item
	Cursor    int
	confirmed bool
	cancelled bool
}

// NewModel builds a selection model over candidates. Candidates without a
// fix entry are dropped.
func NewModel(title string, candidates []types.CheckResult, fixes map[string]types.PatchRequest) Model {
	m := Model{Title: title}
	for _, c := range candidates {
		fix, ok := fixes[c.Name]
		if !ok {
			continue
		}
		m.Items = append(m.Items, Item{Result: c, Fix: fix, Selected: true})
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j":
		if m.Cursor < len(m.Items)-1 {
			m.Cursor++
		}
	case " ", "x":
		if m.Cursor < len(m.Items) {
			m.Items[m.Cursor].Selected = !m.Items[m.Cursor].Selected
		}
	case "a":
		all := m.allSelected()
		for i := range m.Items {
			m.Items[i].Selected = !all
		}
	case "enter":
		m.confirmed = true
		return m, tea.Quit
	case "q", "esc", "ctrl+c":
		m.cancelled = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) allSelected() bool {
	for _, it := range m.Items {
		if !it.Selected {
			return false
		}
	}
	return true
}

// View implements tea.Model.
func (m Model) View() string {
	if m.confirmed || m.cancelled {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.Title))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("%d issue(s) can be fixed automatically", len(m.Items))))
	b.WriteString("\n\n")

	for i, it := range m.Items {
		focused := i == m.Cursor

		cursor := "  "
		if focused {
			cursor = cursorStyle.Render("▸ ")
		}
		check := mutedStyle.Render("[ ]")
		if it.Selected {
			check = checkOnStyle.Render("[✓]")
		}
		badge := warnBadgeStyle.Render("WARN")
		if it.Result.Verdict == types.VerdictFail {
			badge = failBadgeStyle.Render("FAIL")
		}
		label := mutedStyle.Render(it.Result.Name)
		if focused {
			label = focusStyle.Render(it.Result.Name)
		}
		hint := hintStyle.Render(fmt.Sprintf("%s %s", it.Fix.Key, it.Fix.Value))

		b.WriteString(cursor + check + " " + badge + " " + label + "  " + hint + "\n")
		if focused {
			if it.Result.Details != "" {
				b.WriteString(issueStyle.Render("Issue: "+it.Result.Details) + "\n")
			}
			if it.Result.Remediation != "" {
				b.WriteString(fixStyle.Render("Fix:   "+it.Result.Remediation) + "\n")
			}
		}
	}

	b.WriteString(footerStyle.Render("↑/↓ move · space toggle · a all · enter apply · q cancel"))
	b.WriteString("\n")
	return b.String()
}

// Confirmed reports whether the operator pressed enter.
func (m Model) Confirmed() bool {
	return m.confirmed
}

// Cancelled reports whether the operator quit without applying.
func (m Model) Cancelled() bool {
	return m.cancelled
}

// Selected returns the chosen results in list order. Empty unless confirmed.
func (m Model) Selected() []types.CheckResult {
	if !m.confirmed {
		return nil
	}
	var out []types.CheckResult
	for _, it := range m.Items {
		if it.Selected {
			out = append(out, it.Result)
		}
	}
	return out
}
