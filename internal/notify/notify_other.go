//go:build !linux && !darwin

package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/nixlim/ids-top/internal/alerts"
	"github.com/nixlim/ids-top/internal/logging"
)

// logNotifier writes notifications to the log on platforms without a
// supported notification tool.
type logNotifier struct {
	logger *zap.SugaredLogger
}

func NewPlatform(logger *zap.SugaredLogger) Platform {
	n := &logNotifier{logger: logging.OrNop(logger)}
	return Platform{Notifier: n, Sounder: n, Permission: n}
}

func (n *logNotifier) Show(notif Notification) error {
	n.logger.Infow("Notification", "title", notif.Title, "body", notif.Body, "tag", notif.Tag)
	return nil
}

func (n *logNotifier) Play(alerts.Severity) error { return nil }

func (n *logNotifier) Current() Permission { return PermissionDefault }

func (n *logNotifier) Request(context.Context) (Permission, error) {
	return PermissionGranted, nil
}
