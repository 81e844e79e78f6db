package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nixlim/ids-top/internal/filters"
)

// FilterMenuState is the saved-filter picker.
type FilterMenuState struct {
	Active  bool
	Cursor  int
	Options []filters.SavedFilter
	Message string
}

func newFilterMenu(options []filters.SavedFilter) FilterMenuState {
	return FilterMenuState{Active: true, Options: options}
}

func (m Model) handleFilterMenuKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Filter):
		m.filterMenu = FilterMenuState{}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.filterMenu.Cursor > 0 {
			m.filterMenu.Cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.filterMenu.Cursor < len(m.filterMenu.Options)-1 {
			m.filterMenu.Cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Enter):
		f, ok := m.menuSelection()
		if !ok {
			return m, nil
		}
		if err := m.filters.ApplyFilter(f.ID); err != nil {
			m.filterMenu.Message = "Error: " + err.Error()
			return m, nil
		}
		m.filterMenu = FilterMenuState{}
		m.alertCursor = 0
		m.statusMessage = "Filter: " + f.Name
		return m, nil

	case key.Matches(msg, m.keys.DeleteFilter):
		f, ok := m.menuSelection()
		if !ok {
			return m, nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if err := m.filters.DeleteFilter(ctx, f.ID); err != nil {
			if errors.Is(err, filters.ErrDefaultFilter) {
				m.filterMenu.Message = "Built-in filters cannot be deleted"
			} else {
				m.filterMenu.Message = "Error: " + err.Error()
			}
			return m, nil
		}
		m.filterMenu.Options = m.filters.Filters()
		if m.filterMenu.Cursor >= len(m.filterMenu.Options) {
			m.filterMenu.Cursor = len(m.filterMenu.Options) - 1
		}
		m.filterMenu.Message = fmt.Sprintf("Deleted %q", f.Name)
		return m, nil
	}
	return m, nil
}

func (m Model) menuSelection() (filters.SavedFilter, bool) {
	if m.filters == nil {
		return filters.SavedFilter{}, false
	}
	c := m.filterMenu.Cursor
	if c < 0 || c >= len(m.filterMenu.Options) {
		return filters.SavedFilter{}, false
	}
	return m.filterMenu.Options[c], true
}

// describePredicate renders the non-default parts of p, or "" when p matches
// everything.
func describePredicate(p filters.Predicate) string {
	var parts []string
	if q := strings.TrimSpace(p.SearchQuery); q != "" {
		parts = append(parts, fmt.Sprintf("%q", q))
	}
	if p.SeverityFilter != "" && p.SeverityFilter != filters.AllSeverities {
		parts = append(parts, "sev="+p.SeverityFilter)
	}
	if p.StatusFilter != "" && p.StatusFilter != filters.AllStatuses {
		parts = append(parts, "status="+p.StatusFilter)
	}
	if p.SortOrder != "" && p.SortOrder != filters.SortNewest {
		parts = append(parts, "sort="+string(p.SortOrder))
	}
	return strings.Join(parts, " ")
}

func (m Model) overlayFilterMenu(base string) string {
	var sb strings.Builder
	sb.WriteString(panelTitleStyle.Render("Saved Filters"))
	sb.WriteString("\n\n")

	for i, f := range m.filterMenu.Options {
		cursor := "  "
		if i == m.filterMenu.Cursor {
			cursor = "> "
		}
		swatch := "■"
		if f.Color != "" {
			swatch = lipgloss.NewStyle().Foreground(lipgloss.Color(f.Color)).Render(swatch)
		}
		line := cursor + swatch + " " + f.Name
		if f.IsDefault {
			line += dimStyle.Render(" (built-in)")
		}
		if i == m.filterMenu.Cursor {
			line = selectedStyle.Render(stripAnsi(line))
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
		if i == m.filterMenu.Cursor {
			detail := f.Description
			if desc := describePredicate(f.Predicate); desc != "" {
				if detail != "" {
					detail += "  "
				}
				detail += desc
			}
			if detail != "" {
				sb.WriteString(dimStyle.Render("     " + detail))
				sb.WriteByte('\n')
			}
		}
	}

	if m.filterMenu.Message != "" {
		sb.WriteByte('\n')
		sb.WriteString(alertWarningStyle.Render(m.filterMenu.Message))
		sb.WriteByte('\n')
	}
	sb.WriteString("\nEnter: Apply  d: Delete  Esc: Close")

	dialog := filterMenuStyle.Render(sb.String())
	return placeOverlay(dialog, base)
}
