//go:build linux

package notify

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/nixlim/ids-top/internal/alerts"
	"github.com/nixlim/ids-top/internal/logging"
)

const (
	notifySendBin = "notify-send"
	paplayBin     = "paplay"

	// replaceIDCacheSize bounds the alert id -> notification id map.
	replaceIDCacheSize = 256
)

// Sound files from the freedesktop sound theme.
var linuxSounds = map[alerts.Severity]string{
	alerts.SeverityHigh:     "/usr/share/sounds/freedesktop/stereo/dialog-warning.oga",
	alerts.SeverityCritical: "/usr/share/sounds/freedesktop/stereo/alarm-clock-elapsed.oga",
}

type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// NotifySendNotifier shows notifications with notify-send. Commands run in
// a background goroutine; failures are logged.
type NotifySendNotifier struct {
	run        commandRunner
	lookPath   func(string) (string, error)
	replaceIDs *lru.Cache[string, string]
	logger     *zap.SugaredLogger
}

func NewNotifySendNotifier(logger *zap.SugaredLogger) *NotifySendNotifier {
	cache, _ := lru.New[string, string](replaceIDCacheSize)
	return &NotifySendNotifier{
		run:        runCommand,
		lookPath:   exec.LookPath,
		replaceIDs: cache,
		logger:     logging.OrNop(logger),
	}
}

// NewPlatform returns the Linux delivery primitives.
func NewPlatform(logger *zap.SugaredLogger) Platform {
	n := NewNotifySendNotifier(logger)
	return Platform{
		Notifier:   n,
		Sounder:    &paplaySounder{run: runCommand, logger: logging.OrNop(logger)},
		Permission: n,
	}
}

// Show returns immediately; notify-send runs in the background.
func (n *NotifySendNotifier) Show(notif Notification) error {
	replaceID, _ := n.replaceIDs.Get(notif.Tag)
	args := notifySendArgs(notif, replaceID)

	go func() {
		out, err := n.run(context.Background(), notifySendBin, args...)
		if err != nil {
			n.logger.Warnw("Failed to send Linux notification", "error", err)
			return
		}
		if id := strings.TrimSpace(string(out)); id != "" && notif.Tag != "" {
			n.replaceIDs.Add(notif.Tag, id)
		}
	}()
	return nil
}

func notifySendArgs(n Notification, replaceID string) []string {
	urgency := "normal"
	if n.RequireInteraction {
		urgency = "critical"
	}

	args := []string{
		"--app-name", "ids-top",
		"--urgency", urgency,
		"--expire-time", strconv.FormatInt(n.Timeout.Milliseconds(), 10),
		"--print-id",
	}
	if replaceID != "" {
		args = append(args, "--replace-id", replaceID)
	}
	if n.Silent {
		args = append(args, "--hint", "boolean:suppress-sound:true")
	}
	return append(args, n.Title, n.Body)
}

// Current is denied when notify-send is missing. Otherwise the stored
// answer stands.
func (n *NotifySendNotifier) Current() Permission {
	if _, err := n.lookPath(notifySendBin); err != nil {
		return PermissionDenied
	}
	return PermissionDefault
}

// Request sends a confirmation notification and grants permission when it
// is delivered.
func (n *NotifySendNotifier) Request(ctx context.Context) (Permission, error) {
	if _, err := n.lookPath(notifySendBin); err != nil {
		return PermissionDenied, nil
	}
	_, err := n.run(ctx, notifySendBin, "--app-name", "ids-top", "--urgency", "low",
		"ids-top", "Desktop notifications enabled")
	if err != nil {
		return PermissionDenied, fmt.Errorf("sending confirmation notification: %w", err)
	}
	return PermissionGranted, nil
}

type paplaySounder struct {
	run    commandRunner
	logger *zap.SugaredLogger
}

func (s *paplaySounder) Play(sev alerts.Severity) error {
	file, ok := linuxSounds[sev]
	if !ok {
		return nil
	}
	go func() {
		if _, err := s.run(context.Background(), paplayBin, file); err != nil {
			s.logger.Debugw("Failed to play sound cue", "error", err, "file", file)
		}
	}()
	return nil
}
