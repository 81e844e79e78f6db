package sampler

import "time"

// StatsSnapshot is the backend's cumulative processing counters, as served
// by /api/stats.
type StatsSnapshot struct {
	PacketsProcessed uint64            `json:"packets_processed"`
	BytesProcessed   uint64            `json:"bytes_processed"`
	ThreatsDetected  uint64            `json:"threats_detected"`
	ProcessingRate   float64           `json:"processing_rate"`
	ActiveFlows      uint64            `json:"active_flows"`
	MemoryUsage      uint64            `json:"memory_usage"`
	CPUUsage         float64           `json:"cpu_usage"`
	AlertCounts      map[string]uint64 `json:"alert_counts"`
	StartTime        time.Time         `json:"start_time"`
}

// Sample is one point of the history series. Threats and Packets are the
// cumulative counters; Bandwidth is the byte delta since the previous
// snapshot, or bytes per second when elapsed normalisation is on.
type Sample struct {
	Timestamp time.Time
	Threats   uint64
	Packets   uint64
	Bandwidth float64
}

// TrendDirection indicates the direction bandwidth is moving.
type TrendDirection int

const (
	TrendFlat TrendDirection = iota
	TrendUp
	TrendDown
)

// String returns a human-readable representation of the trend.
func (t TrendDirection) String() string {
	switch t {
	case TrendUp:
		return "up"
	case TrendDown:
		return "down"
	default:
		return "flat"
	}
}

// Arrow returns a single-character arrow for the trend.
func (t TrendDirection) Arrow() string {
	switch t {
	case TrendUp:
		return "↑"
	case TrendDown:
		return "↓"
	default:
		return "→"
	}
}
