package tui

import (
	"fmt"
	"strings"

	"github.com/nixlim/ids-top/internal/sampler"
)

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

func (m Model) renderHistory() string {
	var sb strings.Builder

	sb.WriteString(m.renderHeader("History", "w:Window  Up/Down:Scroll  Tab:Alerts  q:Quit "))
	sb.WriteByte('\n')

	if m.history == nil {
		sb.WriteByte('\n')
		sb.WriteString(dimStyle.Render("  History is not available"))
		sb.WriteByte('\n')
		return sb.String()
	}

	samples := m.history.Samples()
	trend := m.history.Trend()

	sb.WriteString(fmt.Sprintf("  Window: %d samples  Collected: %d  Trend: %s %s",
		m.history.MaxPoints(), len(samples), trend.Arrow(), trend))
	sb.WriteByte('\n')

	if len(samples) == 0 {
		sb.WriteByte('\n')
		sb.WriteString(dimStyle.Render("  No samples yet. Waiting for backend stats..."))
		sb.WriteByte('\n')
		return sb.String()
	}

	span := samples[len(samples)-1].Timestamp.Sub(samples[0].Timestamp)
	sb.WriteString(dimStyle.Render("  Covering " + formatDuration(span)))
	sb.WriteByte('\n')

	sparkW := m.width - 16
	if sparkW < 10 {
		sparkW = 10
	}
	bandwidth := make([]float64, len(samples))
	threats := make([]float64, len(samples))
	for i, s := range samples {
		bandwidth[i] = s.Bandwidth
		threats[i] = float64(s.Threats)
	}
	sb.WriteByte('\n')
	sb.WriteString("  Bandwidth " + activeStyle.Render(sparkline(bandwidth, sparkW)))
	sb.WriteByte('\n')
	sb.WriteString("  Threats   " + alertHighStyle.Render(sparkline(threats, sparkW)))
	sb.WriteByte('\n')
	sb.WriteByte('\n')

	sb.WriteString(fmt.Sprintf("  %-10s %12s %14s %12s", "Time", "Threats", "Packets", "Bandwidth"))
	sb.WriteByte('\n')
	sb.WriteString(dimStyle.Render("  " + strings.Repeat("─", 51)))
	sb.WriteByte('\n')

	rows := newestFirst(samples)

	visibleH := m.height - 10
	if visibleH < 1 {
		visibleH = 1
	}
	startIdx := m.historyScrollPos
	if startIdx > len(rows)-visibleH {
		startIdx = len(rows) - visibleH
	}
	if startIdx < 0 {
		startIdx = 0
	}
	endIdx := startIdx + visibleH
	if endIdx > len(rows) {
		endIdx = len(rows)
	}

	for i := startIdx; i < endIdx; i++ {
		r := rows[i]
		sb.WriteString(fmt.Sprintf("  %-10s %12s %14s %12s",
			r.Timestamp.Local().Format("15:04:05"),
			formatNumber(int64(r.Threats)),
			formatNumber(int64(r.Packets)),
			formatBytes(r.Bandwidth)))
		sb.WriteByte('\n')
	}
	if len(rows) > visibleH {
		sb.WriteString(dimStyle.Render("  " + formatScrollPos(startIdx+1, endIdx, len(rows))))
		sb.WriteByte('\n')
	}

	return sb.String()
}

func newestFirst(samples []sampler.Sample) []sampler.Sample {
	out := make([]sampler.Sample, len(samples))
	for i, s := range samples {
		out[len(samples)-1-i] = s
	}
	return out
}

// sparkline renders the last width values scaled between their min and max.
func sparkline(values []float64, width int) string {
	if len(values) > width {
		values = values[len(values)-width:]
	}
	if len(values) == 0 {
		return ""
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	out := make([]rune, len(values))
	top := len(sparkRunes) - 1
	for i, v := range values {
		idx := 0
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(top))
		}
		out[i] = sparkRunes[idx]
	}
	return string(out)
}
