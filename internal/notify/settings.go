// Package notify decides which alerts raise desktop notifications and
// delivers them through the platform's notification tools.
package notify

import "github.com/nixlim/ids-top/internal/alerts"

// Permission is the platform's answer to whether notifications may be shown.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Settings are the persisted notification preferences.
type Settings struct {
	Enabled      bool            `json:"enabled"`
	SoundEnabled bool            `json:"soundEnabled"`
	MinSeverity  alerts.Severity `json:"minSeverity"`
	Permission   Permission      `json:"permission"`
}

// DefaultSettings are used when nothing has been persisted.
func DefaultSettings() Settings {
	return Settings{
		Enabled:      true,
		SoundEnabled: true,
		MinSeverity:  alerts.SeverityHigh,
		Permission:   PermissionDefault,
	}
}

// ShouldNotify reports whether an alert of severity sev may raise a
// notification under s.
func ShouldNotify(s Settings, sev alerts.Severity) bool {
	return s.Enabled &&
		s.Permission == PermissionGranted &&
		alerts.AtLeast(sev, s.MinSeverity)
}

func (p Permission) valid() bool {
	switch p {
	case PermissionDefault, PermissionGranted, PermissionDenied:
		return true
	}
	return false
}
