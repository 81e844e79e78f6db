package tui

import (
	"fmt"
	"strings"

	"github.com/nixlim/ids-top/internal/alerts"
	"github.com/nixlim/ids-top/internal/annotations"
	"github.com/nixlim/ids-top/internal/stats"
)

func (m Model) renderStats() string {
	var sb strings.Builder

	sb.WriteString(m.renderHeader("Stats", "Up/Down:Scroll  Tab:History  q:Quit "))
	sb.WriteByte('\n')

	ds := m.getStats()

	sections := []string{
		m.renderOverviewSection(ds),
		renderSeveritySection(ds),
		renderStatusSection(ds),
		renderCountTable("Top Threats", ds.TopThreats),
		renderCountTable("Top Sources", ds.TopSources),
		renderCountTable("Top Ports", ds.TopPorts),
	}

	var allLines []string
	for _, section := range sections {
		allLines = append(allLines, strings.Split(section, "\n")...)
		allLines = append(allLines, "")
	}

	visibleH := m.height - 3
	if visibleH < 1 {
		visibleH = 1
	}
	startIdx := m.statsScrollPos
	if startIdx > len(allLines)-visibleH {
		startIdx = len(allLines) - visibleH
	}
	if startIdx < 0 {
		startIdx = 0
	}
	endIdx := startIdx + visibleH
	if endIdx > len(allLines) {
		endIdx = len(allLines)
	}

	for i := startIdx; i < endIdx; i++ {
		sb.WriteString(allLines[i])
		sb.WriteByte('\n')
	}

	return sb.String()
}

func (m Model) getStats() stats.DashboardStats {
	if m.stats == nil {
		return stats.DashboardStats{}
	}
	return m.stats.Stats()
}

func (m Model) renderOverviewSection(ds stats.DashboardStats) string {
	lines := []string{
		panelTitleStyle.Render("Overview"),
		fmt.Sprintf("  Buffered alerts:   %s", formatNumber(int64(ds.Total))),
		fmt.Sprintf("  Untriaged:         %s", formatNumber(int64(ds.Untriaged))),
		fmt.Sprintf("  Avg confidence:    %s %.0f%%", renderProgressBar(ds.AvgConfidence, 20), ds.AvgConfidence*100),
		fmt.Sprintf("  Avg anomaly score: %.3f", ds.AvgAnomalyScore),
	}

	if m.history != nil {
		if s, ok := m.history.Latest(); ok {
			lines = append(lines,
				fmt.Sprintf("  Threats detected:  %s", formatNumber(int64(s.Threats))),
				fmt.Sprintf("  Packets processed: %s", formatNumber(int64(s.Packets))),
			)
		}
	}
	return strings.Join(lines, "\n")
}

func renderSeveritySection(ds stats.DashboardStats) string {
	lines := []string{panelTitleStyle.Render("By Severity")}
	if ds.Total == 0 {
		return strings.Join(append(lines, dimStyle.Render("  No alerts")), "\n")
	}
	for i := len(alerts.Severities) - 1; i >= 0; i-- {
		sev := alerts.Severities[i]
		n := ds.BySeverity[string(sev)]
		ratio := float64(n) / float64(ds.Total)
		label := severityStyle(sev).Render(fmt.Sprintf("%-14s", sev))
		lines = append(lines, fmt.Sprintf("  %s %s %d", label, renderProgressBar(ratio, 20), n))
	}
	return strings.Join(lines, "\n")
}

func renderStatusSection(ds stats.DashboardStats) string {
	lines := []string{panelTitleStyle.Render("By Status")}
	if ds.Total == 0 {
		return strings.Join(append(lines, dimStyle.Render("  No alerts")), "\n")
	}
	for _, s := range annotations.Statuses {
		n := ds.ByStatus[string(s)]
		ratio := float64(n) / float64(ds.Total)
		lines = append(lines, fmt.Sprintf("  %-14s %s %d", s.Label(), renderProgressBar(ratio, 20), n))
	}
	return strings.Join(lines, "\n")
}

func renderCountTable(title string, rows []stats.Count) string {
	lines := []string{panelTitleStyle.Render(title)}

	if len(rows) == 0 {
		lines = append(lines, dimStyle.Render("  No data"))
		return strings.Join(lines, "\n")
	}

	maxCount := 0
	for _, r := range rows {
		if r.Count > maxCount {
			maxCount = r.Count
		}
	}

	for _, r := range rows {
		ratio := 0.0
		if maxCount > 0 {
			ratio = float64(r.Count) / float64(maxCount)
		}
		lines = append(lines, fmt.Sprintf("  %-24s %s %d", truncateStr(r.Name, 24), renderProgressBar(ratio, 20), r.Count))
	}
	return strings.Join(lines, "\n")
}

func renderProgressBar(ratio float64, width int) string {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}

	filled := int(ratio * float64(width))
	if filled > width {
		filled = width
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	if ratio >= 0.8 {
		return levelRedStyle.Render(bar)
	}
	if ratio >= 0.5 {
		return levelYellowStyle.Render(bar)
	}
	return levelGreenStyle.Render(bar)
}
