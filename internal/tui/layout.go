package tui

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nixlim/ids-top/internal/channel"
	"github.com/nixlim/ids-top/internal/notify"
)

type panelDimensions struct {
	headerH          int
	alertsW, alertsH int
	summaryW         int
	summaryH         int
	footerH          int
}

const (
	minWidth  = 40
	minHeight = 10

	headerHeight  = 1
	summaryHeight = 3
	footerHeight  = 1
)

func computeDimensions(totalW, totalH int) panelDimensions {
	if totalW < minWidth {
		totalW = minWidth
	}
	if totalH < minHeight {
		totalH = minHeight
	}

	d := panelDimensions{
		headerH:  headerHeight,
		summaryH: summaryHeight,
		footerH:  footerHeight,
		alertsW:  totalW,
		summaryW: totalW,
	}

	d.alertsH = totalH - headerHeight - summaryHeight - footerHeight
	if d.alertsH < 4 {
		d.alertsH = 4
	}

	return d
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62"))

	panelBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("69"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))

	levelGreenStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("82"))

	levelYellowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("226"))

	levelRedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	alertWarningStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("226"))

	alertCriticalStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("196"))

	alertHighStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208"))

	alertLowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	filterMenuStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(1, 2)

	promptStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	detailOverlayStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("69")).
				Padding(1, 2)
)

func renderBorderedPanel(content string, w, h int) string {
	return renderBorderedPanelStyled(content, w, h, panelBorderStyle)
}

func renderBorderedPanelStyled(content string, w, h int, style lipgloss.Style) string {
	contentH := h - 2
	if contentH < 1 {
		contentH = 1
	}

	lines := strings.Split(content, "\n")
	if len(lines) > contentH {
		lines = lines[:contentH]
		content = strings.Join(lines, "\n")
	}

	return style.
		Width(w - 2).
		Height(contentH).
		Render(content)
}

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripAnsi(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}

// clampHeight drops lines past h. A non-positive h leaves s unchanged.
func clampHeight(s string, h int) string {
	if h <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) > h {
		return strings.Join(lines[:h], "\n")
	}
	return s
}

func (m Model) renderDashboard() string {
	dims := computeDimensions(m.width, m.height)

	header := m.renderHeader("Alerts", m.dashboardHelp())
	alertsPanel := m.renderAlertsPanel(dims.alertsW, dims.alertsH)
	summary := m.renderSummaryBar(dims.summaryW, dims.summaryH)
	footer := m.renderFooter()

	layout := lipgloss.JoinVertical(lipgloss.Left, header, alertsPanel, summary, footer)

	if m.filterMenu.Active {
		layout = m.overlayFilterMenu(layout)
	}

	if m.inputMode != InputNone {
		layout = m.overlayPrompt(layout)
	}

	if m.detailOverlay {
		layout = m.overlayDetail(layout)
	}

	return layout
}

// renderHeader draws the title bar shared by every view.
func (m Model) renderHeader(viewName, help string) string {
	title := " ids-top"
	viewLabel := " [" + viewName + "] " + m.connectionIndicator()
	indicators := m.headerIndicators()

	padding := m.width - lipgloss.Width(title) - lipgloss.Width(viewLabel) - lipgloss.Width(indicators) - lipgloss.Width(help)
	if padding < 0 {
		help = ""
		padding = 0
	}

	return headerStyle.Width(m.width).MaxHeight(1).Render(title + viewLabel + indicators + strings.Repeat(" ", padding) + help)
}

func (m Model) dashboardHelp() string {
	return "Enter:Detail  r/i/x/p/n:Status  /:Search  f:Filters  Tab:Stats  q:Quit "
}

func (m Model) connectionIndicator() string {
	if m.connection == nil {
		return "○ offline"
	}
	st := m.connection.ConnectionStatus()
	switch st.State {
	case channel.Connected:
		return "● live"
	case channel.Connecting:
		return "◌ connecting"
	}
	if st.RetryPending {
		return "○ reconnecting"
	}
	return "○ disconnected"
}

func (m Model) headerIndicators() string {
	var parts []string
	if !m.isPersistent {
		parts = append(parts, "[No persistence]")
	}
	if m.notifications != nil {
		s := m.notifications.Settings()
		switch {
		case s.Permission == notify.PermissionDenied:
			parts = append(parts, "[Notifications blocked]")
		case !s.Enabled:
			parts = append(parts, "[Muted]")
		}
	}
	if m.filters != nil {
		if desc := describePredicate(m.filters.Active()); desc != "" {
			parts = append(parts, "[Filter: "+desc+"]")
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}

func (m Model) renderFooter() string {
	line := m.statusMessage
	if line == "" && m.connection != nil {
		st := m.connection.ConnectionStatus()
		if st.LastError != "" && st.State != channel.Connected {
			line = "Channel: " + st.LastError
		}
	}
	if line == "" {
		line = "c:Connect  b/B:Start/Stop capture  N:Allow notifications  m:Mute  M:Sound  v:Notify level"
	}
	return statusBarStyle.Render(" " + truncateStr(line, max(m.width-2, 10)))
}

func (m Model) overlayPrompt(base string) string {
	label := "Search: "
	if m.inputMode == InputFilterName {
		label = "Save filter as: "
	}
	box := promptStyle.Render(label + m.input.View() + "\n" + dimStyle.Render("Enter: Confirm  Esc: Cancel"))
	return placeOverlay(box, base)
}

func (m Model) overlayDetail(base string) string {
	overlayW := m.width * 70 / 100
	if overlayW < 40 {
		overlayW = 40
	}
	if overlayW > m.width-4 {
		overlayW = m.width - 4
	}
	overlayH := m.height * 70 / 100
	if overlayH < 10 {
		overlayH = 10
	}
	if overlayH > m.height-4 {
		overlayH = m.height - 4
	}

	contentW := overlayW - 6
	if contentW < 10 {
		contentW = 10
	}
	contentH := overlayH - 4
	if contentH < 3 {
		contentH = 3
	}

	wrapped := wrapLines(strings.Split(m.detailContent, "\n"), contentW)

	startIdx := m.detailScrollPos
	if startIdx > len(wrapped)-contentH {
		startIdx = len(wrapped) - contentH
	}
	if startIdx < 0 {
		startIdx = 0
	}
	endIdx := startIdx + contentH
	if endIdx > len(wrapped) {
		endIdx = len(wrapped)
	}

	body := strings.Join(wrapped[startIdx:endIdx], "\n")

	title := panelTitleStyle.Render(m.detailTitle)
	footer := dimStyle.Render("Esc/Enter: Close")
	if len(wrapped) > contentH {
		footer += dimStyle.Render("  Up/Down: Scroll")
	}

	dialog := detailOverlayStyle.
		Width(overlayW - 2).
		Render(title + "\n\n" + body + "\n\n" + footer)

	return placeOverlay(dialog, base)
}

// wrapLines breaks lines longer than width at the last space that fits.
func wrapLines(lines []string, width int) []string {
	var wrapped []string
	for _, line := range lines {
		for len(line) > width {
			cutAt := width
			for i := width; i > 0; i-- {
				if line[i] == ' ' {
					cutAt = i
					break
				}
			}
			wrapped = append(wrapped, line[:cutAt])
			line = strings.TrimPrefix(line[cutAt:], " ")
		}
		wrapped = append(wrapped, line)
	}
	return wrapped
}

func placeOverlay(fg, bg string) string {
	return lipgloss.Place(
		lipgloss.Width(bg),
		lipgloss.Height(bg),
		lipgloss.Center,
		lipgloss.Center,
		fg,
		lipgloss.WithWhitespaceChars(" "),
	)
}
