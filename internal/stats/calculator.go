// Package stats computes aggregate statistics over the buffered alerts.
// All functions are pure computations with no side effects.
package stats

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/nixlim/ids-top/internal/alerts"
	"github.com/nixlim/ids-top/internal/annotations"
)

// DefaultTopN is the number of rows kept in each frequency table.
const DefaultTopN = 5

// StatusResolver resolves the annotation status of an alert.
type StatusResolver interface {
	Status(a alerts.Alert) annotations.Status
}

// Calculator computes DashboardStats from alert snapshots.
type Calculator struct {
	topN int
}

// NewCalculator creates a Calculator keeping topN rows per frequency table.
// Non-positive values use DefaultTopN.
func NewCalculator(topN int) *Calculator {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Calculator{topN: topN}
}

// Compute calculates the DashboardStats for list. A nil resolver treats
// every alert as new.
func (c *Calculator) Compute(list []alerts.Alert, resolver StatusResolver) DashboardStats {
	stats := DashboardStats{
		Total:      len(list),
		BySeverity: make(map[string]int),
		ByStatus:   make(map[string]int),
	}
	if len(list) == 0 {
		return stats
	}

	threats := make(map[string]int)
	sources := make(map[string]int)
	ports := make(map[string]int)
	var confidence, anomaly float64

	for _, a := range list {
		stats.BySeverity[string(a.Severity)]++

		status := annotations.StatusNew
		if resolver != nil {
			status = resolver.Status(a)
		}
		stats.ByStatus[string(status)]++
		if status == annotations.StatusNew {
			stats.Untriaged++
		}

		confidence += a.Confidence
		anomaly += a.AnomalyScore

		threats[alerts.DisplayThreatType(a.ThreatType)]++
		if a.SourceIP != "" {
			sources[a.SourceIP]++
		}
		for _, p := range a.AffectedPorts {
			ports[strconv.Itoa(p)]++
		}
	}

	stats.AvgConfidence = confidence / float64(len(list))
	stats.AvgAnomalyScore = anomaly / float64(len(list))
	stats.TopThreats = c.top(threats)
	stats.TopSources = c.top(sources)
	stats.TopPorts = c.top(ports)
	return stats
}

// top returns the topN entries by count descending, ties broken by name.
func (c *Calculator) top(counts map[string]int) []Count {
	if len(counts) == 0 {
		return nil
	}
	out := make([]Count, 0, len(counts))
	for name, n := range counts {
		out = append(out, Count{Name: name, Count: n})
	}
	slices.SortFunc(out, func(a, b Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if len(out) > c.topN {
		out = out[:c.topN]
	}
	return out
}
