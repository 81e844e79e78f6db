package alerts

// Rank returns the position of s in the total order
// Low < Medium < High < Critical, or -1 for an unknown severity.
func Rank(s Severity) int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return -1
	}
}

// AtLeast reports whether s ranks at or above min.
// An unknown s never satisfies a known threshold.
func AtLeast(s, min Severity) bool {
	return Rank(s) >= Rank(min) && Rank(s) >= 0
}

// Valid reports whether s is one of the four known severities.
func (s Severity) Valid() bool {
	return Rank(s) >= 0
}
