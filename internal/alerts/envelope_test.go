package alerts

import (
	"errors"
	"testing"
	"time"
)

const validFrame = `{
	"success": true,
	"data": {
		"id": "5f1c9a2e-7d1b-4b52-9d4c-0c7a3e1f2b10",
		"timestamp": "2025-03-01T12:00:00Z",
		"severity": "High",
		"threat_type": "PortScan",
		"confidence": 0.92,
		"anomaly_score": 0.81,
		"source_ip": "10.0.0.5",
		"target_ip": "10.0.0.1",
		"affected_ports": [22, 80, 443],
		"description": "Port scan detected from 10.0.0.5",
		"explanation": {
			"primary_indicators": ["many SYN packets"],
			"feature_importance": {"port_entropy": 0.7},
			"similar_incidents": [],
			"recommended_actions": ["block source"]
		},
		"raw_packets": ["a", "b"]
	},
	"error": null,
	"timestamp": "2025-03-01T12:00:00.5Z"
}`

func TestDecodeEnvelope_Valid(t *testing.T) {
	a, err := DecodeEnvelope([]byte(validFrame))
	if err != nil {
		t.Fatalf("DecodeEnvelope failed: %v", err)
	}

	if a.ID != "5f1c9a2e-7d1b-4b52-9d4c-0c7a3e1f2b10" {
		t.Errorf("id: got %q", a.ID)
	}
	if a.Severity != SeverityHigh {
		t.Errorf("severity: want High, got %q", a.Severity)
	}
	if a.ThreatType != "PortScan" {
		t.Errorf("threat_type: want PortScan, got %q", a.ThreatType)
	}
	if a.Target() != "10.0.0.1" {
		t.Errorf("target: want 10.0.0.1, got %q", a.Target())
	}
	if len(a.AffectedPorts) != 3 || a.AffectedPorts[2] != 443 {
		t.Errorf("affected_ports: got %v", a.AffectedPorts)
	}
	if !a.Timestamp.Equal(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("timestamp: got %v", a.Timestamp)
	}
	if a.Explanation.FeatureImportance["port_entropy"] != 0.7 {
		t.Errorf("feature_importance: got %v", a.Explanation.FeatureImportance)
	}
}

func TestDecodeEnvelope_Errors(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{name: "malformed json", frame: `{"success": tru`},
		{name: "success false", frame: `{"success": false, "data": null, "error": "IDS not running", "timestamp": ""}`},
		{name: "null data", frame: `{"success": true, "data": null, "error": null, "timestamp": ""}`},
		{name: "missing data", frame: `{"success": true}`},
		{name: "data wrong shape", frame: `{"success": true, "data": [1, 2, 3]}`},
		{name: "alert without id", frame: `{"success": true, "data": {"severity": "Low"}}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeEnvelope([]byte(tc.frame))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrDecode) {
				t.Errorf("expected error wrapping ErrDecode, got %v", err)
			}
		})
	}
}

func TestDecodeEnvelope_NullTarget(t *testing.T) {
	frame := `{"success": true, "data": {"id": "a1", "severity": "critical", "source_ip": "1.2.3.4", "target_ip": null}}`
	a, err := DecodeEnvelope([]byte(frame))
	if err != nil {
		t.Fatalf("DecodeEnvelope failed: %v", err)
	}
	if a.TargetIP != nil {
		t.Errorf("expected nil target, got %q", *a.TargetIP)
	}
	if a.Target() != "" {
		t.Errorf("expected empty Target(), got %q", a.Target())
	}
	if a.Severity != SeverityCritical {
		t.Errorf("lowercase severity should normalise to Critical, got %q", a.Severity)
	}
}
