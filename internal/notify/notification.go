package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nixlim/ids-top/internal/alerts"
)

// AutoDismissAfter is how long a non-critical notification stays visible.
const AutoDismissAfter = 10 * time.Second

// Notification is a platform-neutral desktop notification.
type Notification struct {
	Title string
	Body  string
	// Tag identifies the alert occurrence; re-sending the same tag replaces
	// the earlier notification where the platform supports it.
	Tag                string
	RequireInteraction bool
	// Timeout is zero when the notification must be dismissed by the user.
	Timeout time.Duration
	Silent  bool
}

// Notifier shows notifications. Implementations must not block on slow
// delivery.
type Notifier interface {
	Show(n Notification) error
}

// Sounder plays an audible cue for a severity.
type Sounder interface {
	Play(sev alerts.Severity) error
}

// PermissionSource reports and requests notification permission.
type PermissionSource interface {
	Current() Permission
	Request(ctx context.Context) (Permission, error)
}

// Platform bundles the platform-specific delivery primitives.
type Platform struct {
	Notifier   Notifier
	Sounder    Sounder
	Permission PermissionSource
}

// Build constructs the notification for a under s.
func Build(a alerts.Alert, s Settings) Notification {
	critical := a.Severity == alerts.SeverityCritical

	n := Notification{
		Title:              fmt.Sprintf("%s threat: %s", a.Severity, alerts.DisplayThreatType(a.ThreatType)),
		Body:               notificationBody(a),
		Tag:                a.ID,
		RequireInteraction: critical,
		Silent:             !s.SoundEnabled,
	}
	if !critical {
		n.Timeout = AutoDismissAfter
	}
	return n
}

func notificationBody(a alerts.Alert) string {
	var b strings.Builder
	b.WriteString(a.Description)
	if a.SourceIP != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Source: ")
		b.WriteString(a.SourceIP)
		if t := a.Target(); t != "" {
			b.WriteString(" -> ")
			b.WriteString(t)
		}
	}
	return b.String()
}
