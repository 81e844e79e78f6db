package tui

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nixlim/ids-top/internal/alerts"
	"github.com/nixlim/ids-top/internal/annotations"
)

func (m Model) renderAlertsPanel(w, h int) string {
	list := m.getAlerts()
	total := 0
	if m.alerts != nil {
		total = len(m.alerts.Alerts())
	}

	title := fmt.Sprintf("Alerts (%d", len(list))
	if len(list) != total {
		title += fmt.Sprintf(" of %d", total)
	}
	title += ")"
	if m.filters != nil {
		title += dimStyle.Render("  sort: " + string(m.filters.Active().SortOrder))
	}

	innerW := w - 4
	if innerW < 10 {
		innerW = 10
	}
	visibleH := h - 4
	if visibleH < 1 {
		visibleH = 1
	}

	var sb strings.Builder
	sb.WriteString(panelTitleStyle.Render(title))
	sb.WriteByte('\n')

	if len(list) == 0 {
		if total == 0 {
			sb.WriteString(dimStyle.Render("Waiting for alerts..."))
		} else {
			sb.WriteString(dimStyle.Render("No alerts match the current filter (Esc to clear)"))
		}
		return renderBorderedPanel(sb.String(), w, h)
	}

	sb.WriteString(dimStyle.Render(formatAlertHeader(innerW)))
	sb.WriteByte('\n')

	start := m.alertScrollPos
	if m.alertCursor < start {
		start = m.alertCursor
	}
	if m.alertCursor >= start+visibleH {
		start = m.alertCursor - visibleH + 1
	}
	if start < 0 {
		start = 0
	}
	end := start + visibleH
	if end > len(list) {
		end = len(list)
	}

	for i := start; i < end; i++ {
		line := renderAlertLine(list[i], m.statusOf(list[i]), innerW)
		if i == m.alertCursor {
			line = selectedStyle.Render(stripAnsi(line))
		}
		sb.WriteString(line)
		if i < end-1 {
			sb.WriteByte('\n')
		}
	}

	return renderBorderedPanel(sb.String(), w, h)
}

func formatAlertHeader(maxW int) string {
	line := fmt.Sprintf("%-8s  %-8s  %-22s  %-15s  %-15s  %4s  %s",
		"Time", "Severity", "Threat", "Source", "Target", "Conf", "Status")
	return truncateStr(line, maxW)
}

func renderAlertLine(a alerts.Alert, status annotations.Status, maxW int) string {
	target := a.Target()
	if target == "" {
		target = "-"
	}
	sev := severityStyle(a.Severity).Render(fmt.Sprintf("%-8s", a.Severity))
	rest := fmt.Sprintf("  %-22s  %-15s  %-15s  %3.0f%%  %s",
		truncateStr(alerts.DisplayThreatType(a.ThreatType), 22),
		truncateStr(a.SourceIP, 15),
		truncateStr(target, 15),
		a.Confidence*100,
		status.Label())

	prefix := a.Timestamp.Local().Format("15:04:05") + "  "
	avail := maxW - lipgloss.Width(prefix) - 8
	if avail < 0 {
		avail = 0
	}
	return prefix + sev + truncateStr(rest, avail)
}

func severityStyle(s alerts.Severity) lipgloss.Style {
	switch s {
	case alerts.SeverityCritical:
		return alertCriticalStyle
	case alerts.SeverityHigh:
		return alertHighStyle
	case alerts.SeverityMedium:
		return alertWarningStyle
	default:
		return alertLowStyle
	}
}

// renderSummaryBar shows severity counts and the latest backend counters.
func (m Model) renderSummaryBar(w, h int) string {
	var parts []string

	if m.stats != nil {
		ds := m.stats.Stats()
		parts = append(parts, fmt.Sprintf("Buffered %d", ds.Total))
		for i := len(alerts.Severities) - 1; i >= 0; i-- {
			sev := alerts.Severities[i]
			parts = append(parts, severityStyle(sev).Render(fmt.Sprintf("%s %d", sev, ds.BySeverity[string(sev)])))
		}
		parts = append(parts, fmt.Sprintf("Untriaged %d", ds.Untriaged))
	}

	if m.history != nil {
		if s, ok := m.history.Latest(); ok {
			parts = append(parts,
				"Threats "+formatNumber(int64(s.Threats)),
				"Packets "+formatNumber(int64(s.Packets)),
				"BW "+formatBytes(s.Bandwidth)+" "+m.history.Trend().Arrow(),
			)
		} else {
			parts = append(parts, dimStyle.Render("no backend stats"))
		}
	}

	line := lipgloss.NewStyle().MaxWidth(max(w-4, 1)).Render(strings.Join(parts, "  "))
	return renderBorderedPanel(line, w, h)
}

func (m Model) formatAlertDetail(a alerts.Alert) string {
	var lines []string
	lines = append(lines, "ID:         "+a.ID)
	lines = append(lines, "Time:       "+a.Timestamp.Local().Format("2006-01-02 15:04:05"))
	lines = append(lines, "Severity:   "+string(a.Severity))
	lines = append(lines, "Threat:     "+alerts.DisplayThreatType(a.ThreatType))
	lines = append(lines, fmt.Sprintf("Confidence: %.1f%%", a.Confidence*100))
	lines = append(lines, fmt.Sprintf("Anomaly:    %.3f", a.AnomalyScore))
	lines = append(lines, "Source:     "+a.SourceIP)
	if t := a.Target(); t != "" {
		lines = append(lines, "Target:     "+t)
	}
	if len(a.AffectedPorts) > 0 {
		ports := make([]string, len(a.AffectedPorts))
		for i, p := range a.AffectedPorts {
			ports[i] = strconv.Itoa(p)
		}
		lines = append(lines, "Ports:      "+strings.Join(ports, ", "))
	}

	status := "Status:     " + m.statusOf(a).Label()
	if m.annotations != nil {
		if ann, ok := m.annotations.Get(a); ok {
			status += " (since " + ann.AcknowledgedAt.Local().Format("2006-01-02 15:04") + ")"
			if ann.Notes != "" {
				lines = append(lines, status, "Notes:      "+ann.Notes)
				status = ""
			}
		}
	}
	if status != "" {
		lines = append(lines, status)
	}

	lines = append(lines, "", "Description:", a.Description)

	ex := a.Explanation
	if len(ex.PrimaryIndicators) > 0 {
		lines = append(lines, "", "Indicators:")
		for _, s := range ex.PrimaryIndicators {
			lines = append(lines, "  - "+s)
		}
	}
	if len(ex.FeatureImportance) > 0 {
		lines = append(lines, "", "Feature importance:")
		names := slices.Collect(maps.Keys(ex.FeatureImportance))
		slices.SortFunc(names, func(x, y string) int {
			if ex.FeatureImportance[x] != ex.FeatureImportance[y] {
				if ex.FeatureImportance[x] > ex.FeatureImportance[y] {
					return -1
				}
				return 1
			}
			return strings.Compare(x, y)
		})
		for _, n := range names {
			lines = append(lines, fmt.Sprintf("  %-24s %.2f", truncateStr(n, 24), ex.FeatureImportance[n]))
		}
	}
	if len(ex.SimilarIncidents) > 0 {
		lines = append(lines, "", "Similar incidents:")
		for _, s := range ex.SimilarIncidents {
			lines = append(lines, "  - "+s)
		}
	}
	if len(ex.RecommendedActions) > 0 {
		lines = append(lines, "", "Recommended actions:")
		for i, s := range ex.RecommendedActions {
			lines = append(lines, fmt.Sprintf("  %d. %s", i+1, s))
		}
	}
	if len(a.RawPackets) > 0 {
		lines = append(lines, "", fmt.Sprintf("Raw packets: %d captured", len(a.RawPackets)))
	}

	lines = append(lines, "", "n:New  r:Reviewed  i:Investigating  x:Resolved  p:False positive (from list)")
	return strings.Join(lines, "\n")
}
