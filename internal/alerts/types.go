package alerts

import (
	"strings"
	"time"
)

// Severity is the backend-assigned severity of an alert.
type Severity string

// Alert severity constants, spelled as the backend serialises them.
const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// Severities lists every severity in ascending rank order.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Explanation describes why the backend raised an alert.
type Explanation struct {
	PrimaryIndicators  []string           `json:"primary_indicators"`
	FeatureImportance  map[string]float64 `json:"feature_importance"`
	SimilarIncidents   []string           `json:"similar_incidents"`
	RecommendedActions []string           `json:"recommended_actions"`
}

// Alert is one threat event produced by the detection backend.
// Alerts are values; the client never mutates one after decoding it.
type Alert struct {
	ID            string      `json:"id"`
	Timestamp     time.Time   `json:"timestamp"`
	Severity      Severity    `json:"severity"`
	ThreatType    string      `json:"threat_type"`
	Confidence    float64     `json:"confidence"`
	AnomalyScore  float64     `json:"anomaly_score"`
	SourceIP      string      `json:"source_ip"`
	TargetIP      *string     `json:"target_ip"`
	AffectedPorts []int       `json:"affected_ports"`
	Description   string      `json:"description"`
	Explanation   Explanation `json:"explanation"`
	RawPackets    []string    `json:"raw_packets"`
}

// Target returns the target IP or an empty string when the alert has none.
func (a Alert) Target() string {
	if a.TargetIP == nil {
		return ""
	}
	return *a.TargetIP
}

// threatTypeNames maps backend threat type variants to display names.
var threatTypeNames = map[string]string{
	"PortScan":           "Port Scan",
	"DDoS":               "DDoS Attack",
	"Anomalous":          "Anomalous Behavior",
	"Suspicious":         "Suspicious Activity",
	"MalformedPacket":    "Malformed Packet",
	"UnusualTraffic":     "Unusual Traffic Pattern",
	"PotentialIntrusion": "Potential Intrusion",
}

// DisplayThreatType returns the human-readable name for a threat type.
// Unknown values are returned unchanged.
func DisplayThreatType(threatType string) string {
	if name, ok := threatTypeNames[threatType]; ok {
		return name
	}
	return threatType
}

// ParseSeverity parses a severity name case-insensitively.
func ParseSeverity(s string) (Severity, bool) {
	for _, sev := range Severities {
		if strings.EqualFold(string(sev), strings.TrimSpace(s)) {
			return sev, true
		}
	}
	return "", false
}
