package tui

import (
	"fmt"
	"sort"
	"strings"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/sortdesk/sortdesk/internal/board"
	"github.com/sortdesk/sortdesk/internal/jobs"
)

// Theme holds the color scheme for the client.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
	Accent  lipgloss.Color
}

var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
	Accent:  lipgloss.Color("#D7AF5F"), // amber
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) successStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

func (t Theme) accentStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
}

// View renders the client.
func (m Model) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m Model) renderContent() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	if m.mode == modeHistory {
		b.WriteString(m.renderHistory())
		return b.String()
	}

	if m.hint != "" {
		b.WriteString(m.theme.hintStyle().Render(m.hint))
		b.WriteString("\n")
	}

	b.WriteString(m.renderControls())
	b.WriteString("\n")

	if m.progressVisible {
		b.WriteString(m.renderProgress())
		b.WriteString("\n")
	}

	if m.alert != "" {
		b.WriteString(m.theme.accentStyle().Render("! " + m.alert))
		b.WriteString("\n")
	}

	if m.groups != nil {
		b.WriteString(m.renderGroups())
	}

	b.WriteString("\n")
	b.WriteString(m.renderCards())

	b.WriteString("\n")
	b.WriteString(m.theme.hintStyle().Render("j/k select · m move · s skip · h history · q quit"))
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderHeader() string {
	state := m.theme.successStyle().Render("connected")
	if !m.connected {
		state = m.theme.errorStyle().Render("disconnected")
	}
	return fmt.Sprintf("%s %s", m.theme.statusStyle().Render("sortdesk"), state)
}

// renderControls shows the job keys with their current enablement; hidden
// controls are omitted entirely, disabled ones dimmed.
func (m Model) renderControls() string {
	type entry struct {
		control jobs.Control
		text    string
	}
	entries := []entry{
		{jobs.ControlStartEmbedding, "[e] embed folders"},
		{jobs.ControlStopEmbedding, "[x] stop embedding"},
		{jobs.ControlGroupFolders, "[g] group folders"},
		{jobs.ControlUndoGrouping, "[u] undo grouping"},
	}

	var parts []string
	for _, e := range entries {
		st := m.controls[e.control]
		if !st.visible {
			continue
		}
		if st.enabled {
			parts = append(parts, m.theme.statusStyle().Render(e.text))
		} else {
			parts = append(parts, m.theme.hintStyle().Render(e.text))
		}
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderProgress() string {
	var pct float64
	if m.total > 0 {
		pct = float64(m.done) / float64(m.total)
	}
	return fmt.Sprintf("%s %s", m.progress.ViewAs(pct), m.theme.statusStyle().Render(m.label))
}

func (m Model) renderGroups() string {
	var b strings.Builder
	b.WriteString(m.theme.successStyle().Render("folders grouped:"))
	b.WriteString("\n")

	names := make([]string, 0, len(m.groups))
	for name := range m.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteString(fmt.Sprintf("  %s: %s\n", m.theme.accentStyle().Render(name), strings.Join(m.groups[name], ", ")))
	}
	return b.String()
}

func (m Model) renderCards() string {
	cards := m.board.Cards()
	if len(cards) == 0 {
		return m.theme.hintStyle().Render("waiting for file proposals...") + "\n"
	}

	var b strings.Builder
	for i, c := range cards {
		marker := "  "
		if i == m.cursor {
			marker = m.theme.accentStyle().Render("> ")
		}
		b.WriteString(marker)
		b.WriteString(lipgloss.NewStyle().Bold(true).Render(c.Filename))
		b.WriteString(m.theme.hintStyle().Render(fmt.Sprintf("  → %s", c.Category)))
		b.WriteString("\n")

		summary := c.Summary
		if summary == "" {
			summary = "no summary available."
		}
		b.WriteString("    " + m.theme.hintStyle().Render(truncate(summary, 120)) + "\n")

		b.WriteString("    " + m.renderCardState(c) + "\n")
	}
	return b.String()
}

func (m Model) renderCardState(c *board.Card) string {
	if c.Note != "" {
		switch c.Decision {
		case board.Moved:
			return m.theme.successStyle().Render("moved")
		case board.Skipped:
			return m.theme.statusStyle().Render("skipped")
		default:
			return m.theme.errorStyle().Render("error")
		}
	}
	if c.Decided {
		return m.theme.hintStyle().Render("decision sent, waiting for daemon...")
	}
	return m.theme.statusStyle().Render("pending - m to move, s to skip")
}

func (m Model) renderHistory() string {
	var b strings.Builder
	b.WriteString(m.theme.accentStyle().Render("history"))
	b.WriteString(m.theme.hintStyle().Render("  (tab switch field · enter search · esc back)"))
	b.WriteString("\n\n")
	b.WriteString("search:   " + m.searchInput.View() + "\n")
	b.WriteString("category: " + m.categoryInput.View() + "\n\n")

	switch {
	case m.histErr != nil:
		b.WriteString(m.theme.errorStyle().Render("query failed: " + m.histErr.Error()))
		b.WriteString("\n")
	case !m.histRan:
		b.WriteString(m.theme.hintStyle().Render("press enter to search the decision log"))
		b.WriteString("\n")
	case len(m.histRows) == 0:
		b.WriteString(m.theme.hintStyle().Render("no matching records"))
		b.WriteString("\n")
	default:
		for _, r := range m.histRows {
			ts := "-"
			if !r.Timestamp.IsZero() {
				ts = r.Timestamp.Local().Format("2006-01-02 15:04")
			}
			b.WriteString(fmt.Sprintf("%s  %s  %s\n",
				m.theme.statusStyle().Render(truncate(r.Filename, 30)),
				m.theme.accentStyle().Render(truncate(r.Category, 14)),
				m.theme.hintStyle().Render(ts),
			))
			if r.Summary != "" {
				b.WriteString("    " + m.theme.hintStyle().Render(r.SummaryPreview()) + "\n")
			}
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
