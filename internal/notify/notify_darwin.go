//go:build darwin

package notify

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/nixlim/ids-top/internal/alerts"
	"github.com/nixlim/ids-top/internal/logging"
)

var darwinSounds = map[alerts.Severity]string{
	alerts.SeverityHigh:     "/System/Library/Sounds/Ping.aiff",
	alerts.SeverityCritical: "/System/Library/Sounds/Sosumi.aiff",
}

// OSAScriptNotifier shows macOS notifications via osascript. The command
// runs in a background goroutine; failures are logged. macOS has no
// per-notification timeout or replacement, so Tag and Timeout are ignored.
type OSAScriptNotifier struct {
	lookPath func(string) (string, error)
	logger   *zap.SugaredLogger
}

func NewOSAScriptNotifier(logger *zap.SugaredLogger) *OSAScriptNotifier {
	return &OSAScriptNotifier{lookPath: exec.LookPath, logger: logging.OrNop(logger)}
}

// NewPlatform returns the macOS delivery primitives.
func NewPlatform(logger *zap.SugaredLogger) Platform {
	n := NewOSAScriptNotifier(logger)
	return Platform{
		Notifier:   n,
		Sounder:    &afplaySounder{logger: logging.OrNop(logger)},
		Permission: n,
	}
}

func (n *OSAScriptNotifier) Show(notif Notification) error {
	script := osaScript(notif)
	go func() {
		if err := exec.Command("osascript", "-e", script).Run(); err != nil {
			n.logger.Warnw("Failed to send macOS notification", "error", err)
		}
	}()
	return nil
}

func osaScript(n Notification) string {
	return fmt.Sprintf(`display notification "%s" with title "ids-top" subtitle "%s"`,
		escapeAppleScript(n.Body), escapeAppleScript(n.Title))
}

// escapeAppleScript escapes characters that could break AppleScript strings.
func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

func (n *OSAScriptNotifier) Current() Permission {
	if _, err := n.lookPath("osascript"); err != nil {
		return PermissionDenied
	}
	return PermissionDefault
}

func (n *OSAScriptNotifier) Request(ctx context.Context) (Permission, error) {
	if _, err := n.lookPath("osascript"); err != nil {
		return PermissionDenied, nil
	}
	script := `display notification "Desktop notifications enabled" with title "ids-top"`
	if err := exec.CommandContext(ctx, "osascript", "-e", script).Run(); err != nil {
		return PermissionDenied, fmt.Errorf("sending confirmation notification: %w", err)
	}
	return PermissionGranted, nil
}

type afplaySounder struct {
	logger *zap.SugaredLogger
}

func (s *afplaySounder) Play(sev alerts.Severity) error {
	file, ok := darwinSounds[sev]
	if !ok {
		return nil
	}
	go func() {
		if err := exec.Command("afplay", file).Run(); err != nil {
			s.logger.Debugw("Failed to play sound cue", "error", err, "file", file)
		}
	}()
	return nil
}
