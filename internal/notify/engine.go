package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nixlim/ids-top/internal/alerts"
	"github.com/nixlim/ids-top/internal/logging"
	"github.com/nixlim/ids-top/internal/metrics"
	"github.com/nixlim/ids-top/internal/storage"
)

// Engine holds the current notification settings and delivers
// notifications for incoming alerts.
type Engine struct {
	mu       sync.RWMutex
	settings Settings

	kv       storage.KV
	platform Platform
	limiter  *rate.Limiter
	logger   *zap.SugaredLogger
}

type Option func(*engineOptions)

type engineOptions struct {
	defaults     Settings
	maxPerMinute int
	logger       *zap.SugaredLogger
}

// WithDefaults sets the settings used when none are persisted.
func WithDefaults(s Settings) Option {
	return func(o *engineOptions) { o.defaults = s }
}

// WithMaxPerMinute caps delivered notifications per minute. Zero means
// unlimited.
func WithMaxPerMinute(n int) Option {
	return func(o *engineOptions) { o.maxPerMinute = n }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *engineOptions) { o.logger = l }
}

// NewEngine loads persisted settings from kv, falling back to defaults on
// any read error, then re-synchronises the permission from the platform.
func NewEngine(ctx context.Context, kv storage.KV, platform Platform, opts ...Option) *Engine {
	o := engineOptions{defaults: DefaultSettings()}
	for _, opt := range opts {
		opt(&o)
	}

	e := &Engine{
		kv:       kv,
		platform: platform,
		logger:   logging.OrNop(o.logger),
	}
	if o.maxPerMinute > 0 {
		e.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(o.maxPerMinute)), o.maxPerMinute)
	}

	e.settings = e.load(ctx, o.defaults)
	if p := platform.Permission.Current(); p != PermissionDefault {
		e.settings.Permission = p
	}
	return e
}

func (e *Engine) load(ctx context.Context, defaults Settings) Settings {
	s := defaults
	err := storage.LoadJSON(ctx, e.kv, storage.KeyNotificationSettings, &s)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return defaults
	case err != nil:
		e.logger.Warnw("Failed to load notification settings, using defaults", "error", err)
		return defaults
	}

	if !s.MinSeverity.Valid() {
		e.logger.Warnw("Stored notification min severity is invalid, using default", "min_severity", s.MinSeverity)
		s.MinSeverity = defaults.MinSeverity
	}
	if !s.Permission.valid() {
		s.Permission = PermissionDefault
	}
	return s
}

// Settings returns the current settings.
func (e *Engine) Settings() Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings
}

// Notify dispatches a under the current settings.
func (e *Engine) Notify(a alerts.Alert) bool {
	return e.Dispatch(a, e.Settings())
}

// Dispatch shows a notification for a when ShouldNotify allows it and
// reports whether one was shown. Delivery failures are logged, never
// returned.
func (e *Engine) Dispatch(a alerts.Alert, s Settings) bool {
	if !ShouldNotify(s, a.Severity) {
		metrics.NotificationsSuppressed.WithLabelValues("settings").Inc()
		return false
	}
	if e.limiter != nil && !e.limiter.Allow() {
		metrics.NotificationsSuppressed.WithLabelValues("rate_limit").Inc()
		e.logger.Debugw("Notification rate limit reached", "alert_id", a.ID)
		return false
	}

	n := Build(a, s)
	e.show(n)
	if s.SoundEnabled && alerts.AtLeast(a.Severity, alerts.SeverityHigh) {
		e.play(a.Severity)
	}
	metrics.NotificationsSent.WithLabelValues(string(a.Severity)).Inc()
	return true
}

func (e *Engine) show(n Notification) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Errorw("Notifier panicked", "panic", r, "tag", n.Tag)
		}
	}()
	if err := e.platform.Notifier.Show(n); err != nil {
		e.logger.Warnw("Failed to show notification", "error", err, "tag", n.Tag)
	}
}

func (e *Engine) play(sev alerts.Severity) {
	if e.platform.Sounder == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Errorw("Sound cue panicked", "panic", r)
		}
	}()
	if err := e.platform.Sounder.Play(sev); err != nil {
		e.logger.Warnw("Failed to play sound cue", "error", err)
	}
}

// RequestPermission prompts the platform once, persists the answer and
// reports whether notifications are now granted.
func (e *Engine) RequestPermission(ctx context.Context) (bool, error) {
	p, err := e.platform.Permission.Request(ctx)
	if err != nil {
		e.logger.Warnw("Notification permission request failed", "error", err)
		p = PermissionDenied
	}

	persistErr := e.update(ctx, func(s *Settings) { s.Permission = p })
	if err != nil {
		return false, fmt.Errorf("requesting notification permission: %w", err)
	}
	return p == PermissionGranted, persistErr
}

func (e *Engine) SetEnabled(ctx context.Context, enabled bool) error {
	return e.update(ctx, func(s *Settings) { s.Enabled = enabled })
}

func (e *Engine) SetSoundEnabled(ctx context.Context, enabled bool) error {
	return e.update(ctx, func(s *Settings) { s.SoundEnabled = enabled })
}

func (e *Engine) SetMinSeverity(ctx context.Context, sev alerts.Severity) error {
	if !sev.Valid() {
		return fmt.Errorf("invalid minimum severity %q", sev)
	}
	return e.update(ctx, func(s *Settings) { s.MinSeverity = sev })
}

// update applies fn and persists the result. The in-memory settings change
// even when persisting fails.
func (e *Engine) update(ctx context.Context, fn func(*Settings)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn(&e.settings)
	if err := storage.SaveJSON(ctx, e.kv, storage.KeyNotificationSettings, e.settings); err != nil {
		e.logger.Warnw("Failed to persist notification settings", "error", err)
		return fmt.Errorf("persisting notification settings: %w", err)
	}
	return nil
}
