package alerts

import "testing"

func TestRank_TotalOrder(t *testing.T) {
	for i := 1; i < len(Severities); i++ {
		lo, hi := Severities[i-1], Severities[i]
		if Rank(lo) >= Rank(hi) {
			t.Errorf("Rank(%s)=%d should be below Rank(%s)=%d", lo, Rank(lo), hi, Rank(hi))
		}
	}
	if Rank("Bogus") != -1 {
		t.Errorf("unknown severity rank: want -1, got %d", Rank("Bogus"))
	}
}

func TestAtLeast(t *testing.T) {
	tests := []struct {
		sev  Severity
		min  Severity
		want bool
	}{
		{SeverityMedium, SeverityHigh, false},
		{SeverityHigh, SeverityHigh, true},
		{SeverityCritical, SeverityHigh, true},
		{SeverityLow, SeverityLow, true},
		{"Bogus", SeverityLow, false},
	}
	for _, tc := range tests {
		if got := AtLeast(tc.sev, tc.min); got != tc.want {
			t.Errorf("AtLeast(%s, %s) = %v, want %v", tc.sev, tc.min, got, tc.want)
		}
	}
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in     string
		want   Severity
		wantOK bool
	}{
		{"Critical", SeverityCritical, true},
		{"critical", SeverityCritical, true},
		{" HIGH ", SeverityHigh, true},
		{"medium", SeverityMedium, true},
		{"severe", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		got, ok := ParseSeverity(tc.in)
		if got != tc.want || ok != tc.wantOK {
			t.Errorf("ParseSeverity(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestDisplayThreatType(t *testing.T) {
	tests := map[string]string{
		"PortScan":           "Port Scan",
		"DDoS":               "DDoS Attack",
		"UnusualTraffic":     "Unusual Traffic Pattern",
		"PotentialIntrusion": "Potential Intrusion",
		"Port Scan":          "Port Scan",
		"SomethingNew":       "SomethingNew",
	}
	for in, want := range tests {
		if got := DisplayThreatType(in); got != want {
			t.Errorf("DisplayThreatType(%q) = %q, want %q", in, got, want)
		}
	}
}
