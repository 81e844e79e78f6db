// Package app owns the client's components and wires the data flow from the
// realtime channel into the buffer, the notification engine and observers.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/nixlim/ids-top/internal/alerts"
	"github.com/nixlim/ids-top/internal/annotations"
	"github.com/nixlim/ids-top/internal/backend"
	"github.com/nixlim/ids-top/internal/buffer"
	"github.com/nixlim/ids-top/internal/channel"
	"github.com/nixlim/ids-top/internal/config"
	"github.com/nixlim/ids-top/internal/filters"
	"github.com/nixlim/ids-top/internal/logging"
	"github.com/nixlim/ids-top/internal/metrics"
	"github.com/nixlim/ids-top/internal/notify"
	"github.com/nixlim/ids-top/internal/sampler"
	"github.com/nixlim/ids-top/internal/stats"
	"github.com/nixlim/ids-top/internal/storage"
)

// EventKind identifies what changed.
type EventKind int

const (
	// EventAlert carries an alert that was just buffered.
	EventAlert EventKind = iota
	// EventSample carries a new history sample.
	EventSample
	// EventCleared reports that the buffer and history were emptied.
	EventCleared
)

// Event is delivered to observers after each state change.
type Event struct {
	Kind   EventKind
	Alert  alerts.Alert
	Sample sampler.Sample
}

// Observer receives events. It runs on the goroutine that produced the
// event and must not block.
type Observer func(Event)

type Option func(*options)

type options struct {
	kv          storage.KV
	persistent  bool
	platform    *notify.Platform
	dialer      channel.Dialer
	frameLogger channel.FrameLogger
	statsSource sampler.StatsSource
	logger      *zap.SugaredLogger
}

// WithKV uses kv instead of opening the configured storage backend.
func WithKV(kv storage.KV, persistent bool) Option {
	return func(o *options) {
		o.kv = kv
		o.persistent = persistent
	}
}

// WithPlatform replaces the OS notification platform.
func WithPlatform(p notify.Platform) Option {
	return func(o *options) { o.platform = &p }
}

func WithDialer(d channel.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithFrameLogger records every channel frame, as enabled by --debug.
func WithFrameLogger(l channel.FrameLogger) Option {
	return func(o *options) { o.frameLogger = l }
}

// WithStatsSource replaces the backend client as the poller's source.
func WithStatsSource(s sampler.StatsSource) Option {
	return func(o *options) { o.statsSource = s }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) { o.logger = l }
}

// App is the client service. It is created with New, started with Start
// and released with Shutdown.
type App struct {
	cfg        config.Config
	logger     *zap.SugaredLogger
	kv         storage.KV
	persistent bool

	buffer      *buffer.AlertBuffer
	annotations *annotations.Store
	notify      *notify.Engine
	sampler     *sampler.Sampler
	poller      *sampler.Poller
	filters     *filters.Engine
	stats       *stats.Calculator
	backend     *backend.Client
	channel     *channel.Manager

	obsMu     sync.RWMutex
	observers map[uint64]Observer
	nextObsID uint64

	runMu      sync.Mutex
	started    bool
	stopPoll   context.CancelFunc
	pollDone   chan struct{}
	metricsSrv *metrics.Server

	shutdownOnce sync.Once
	shutdownErr  error
}

// New builds every component from cfg. Persisted state is loaded here;
// nothing touches the network until Start.
func New(ctx context.Context, cfg config.Config, opts ...Option) *App {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := logging.OrNop(o.logger)

	kv, persistent := o.kv, o.persistent
	if kv == nil {
		kv, persistent = storage.NewKV(ctx, cfg.Storage, logger)
	}

	a := &App{
		cfg:        cfg,
		logger:     logger,
		kv:         kv,
		persistent: persistent,
		buffer:     buffer.New(cfg.Display.BufferSize),
		sampler:    sampler.New(cfg.Stats.HistoryWindow, cfg.Stats.NormalizeElapsed),
		stats:      stats.NewCalculator(stats.DefaultTopN),
		backend:    backend.New(cfg.Backend.BaseURL, cfg.Backend.RequestTimeout()),
		observers:  make(map[uint64]Observer),
	}

	a.annotations = annotations.NewStore(ctx, kv,
		annotations.KeyFuncFor(cfg.Annotations.KeyPolicy), logger)

	platform := notify.NewPlatform(logger)
	if o.platform != nil {
		platform = *o.platform
	}
	a.notify = notify.NewEngine(ctx, kv, platform,
		notify.WithDefaults(notificationDefaults(cfg.Notifications)),
		notify.WithMaxPerMinute(cfg.Notifications.MaxPerMinute),
		notify.WithLogger(logger),
	)

	a.filters = filters.NewEngine(ctx, kv, a.annotations, filters.WithLogger(logger))

	var source sampler.StatsSource = a.backend
	if o.statsSource != nil {
		source = o.statsSource
	}
	a.poller = sampler.NewPoller(source, a.sampler, cfg.Stats.PollInterval(), logger)
	a.poller.OnSample(func(s sampler.Sample) {
		a.publish(Event{Kind: EventSample, Sample: s})
	})

	chOpts := []channel.Option{
		channel.WithReconnectDelay(cfg.Channel.ReconnectDelay()),
		channel.WithLogger(logger),
		channel.WithDialer(channel.NewWSDialer(cfg.Channel.HandshakeTimeout())),
	}
	if o.dialer != nil {
		chOpts = append(chOpts, channel.WithDialer(o.dialer))
	}
	if o.frameLogger != nil {
		chOpts = append(chOpts, channel.WithFrameLogger(o.frameLogger))
	}
	a.channel = channel.New(cfg.Channel.URL, a, chOpts...)

	return a
}

func notificationDefaults(cfg config.NotificationsConfig) notify.Settings {
	s := notify.DefaultSettings()
	s.Enabled = cfg.Enabled
	s.SoundEnabled = cfg.SoundEnabled
	if sev, ok := alerts.ParseSeverity(cfg.MinSeverity); ok {
		s.MinSeverity = sev
	}
	return s
}

// Start connects the realtime channel, starts the stats poller and, when
// configured, the metrics listener. Calling Start twice is a no-op.
func (a *App) Start(ctx context.Context) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	if a.started {
		return nil
	}

	if a.cfg.Metrics.Listen != "" {
		srv, err := metrics.Listen(a.cfg.Metrics.Listen, a.logger)
		if err != nil {
			return fmt.Errorf("starting metrics listener: %w", err)
		}
		a.metricsSrv = srv
		go srv.Serve()
	}

	a.channel.Connect()

	pollCtx, cancel := context.WithCancel(ctx)
	a.stopPoll = cancel
	a.pollDone = make(chan struct{})
	go func() {
		defer close(a.pollDone)
		a.poller.Run(pollCtx)
	}()

	a.started = true
	a.logger.Infow("Started", "channel", a.cfg.Channel.URL, "backend", a.cfg.Backend.BaseURL, "persistent", a.persistent)
	return nil
}

// Shutdown disconnects the channel, stops the poller and the metrics
// listener, and closes storage. It is safe to call more than once.
func (a *App) Shutdown() error {
	a.shutdownOnce.Do(func() {
		a.runMu.Lock()
		defer a.runMu.Unlock()

		sm := NewShutdownManager()
		sm.StopIntake = a.stopIntake
		sm.StopPoller = func() {
			if a.stopPoll != nil {
				a.stopPoll()
				<-a.pollDone
			}
		}
		sm.Cleanup = a.kv.Close
		a.shutdownErr = sm.Shutdown()
		a.logger.Infow("Shut down", "error", a.shutdownErr)
	})
	return a.shutdownErr
}

func (a *App) stopIntake(ctx context.Context) error {
	closed := make(chan struct{})
	go func() {
		a.channel.Close()
		close(closed)
	}()

	var err error
	if a.metricsSrv != nil {
		err = a.metricsSrv.Shutdown(ctx)
	}

	select {
	case <-closed:
		return err
	case <-ctx.Done():
		return errors.Join(err, fmt.Errorf("closing alert channel: %w", ctx.Err()))
	}
}

// Ingest buffers an alert, hands it to the notification engine and then
// to observers. It implements channel.Sink.
func (a *App) Ingest(alert alerts.Alert) {
	a.buffer.Append(alert)
	metrics.BufferedAlerts.Set(float64(a.buffer.Len()))
	a.notify.Notify(alert)
	a.publish(Event{Kind: EventAlert, Alert: alert})
}

// Subscribe registers fn and returns a function that removes it.
func (a *App) Subscribe(fn Observer) (unsubscribe func()) {
	a.obsMu.Lock()
	id := a.nextObsID
	a.nextObsID++
	a.observers[id] = fn
	a.obsMu.Unlock()

	return func() {
		a.obsMu.Lock()
		delete(a.observers, id)
		a.obsMu.Unlock()
	}
}

func (a *App) publish(ev Event) {
	a.obsMu.RLock()
	observers := make([]Observer, 0, len(a.observers))
	for _, fn := range a.observers {
		observers = append(observers, fn)
	}
	a.obsMu.RUnlock()

	for _, fn := range observers {
		a.callObserver(fn, ev)
	}
}

func (a *App) callObserver(fn Observer, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Errorw("Observer panicked", "panic", r)
		}
	}()
	fn(ev)
}

// Alerts returns the buffered alerts, newest first.
func (a *App) Alerts() []alerts.Alert {
	return a.buffer.Snapshot()
}

// View returns the buffered alerts filtered and sorted by the active
// predicate.
func (a *App) View() []alerts.Alert {
	return a.filters.View(a.buffer.Snapshot())
}

// Stats computes the dashboard aggregates over the buffered alerts.
func (a *App) Stats() stats.DashboardStats {
	return a.stats.Compute(a.buffer.Snapshot(), a.annotations)
}

// ConnectionStatus reports the realtime channel's state.
func (a *App) ConnectionStatus() channel.Status {
	return a.channel.Status()
}

// Connect reopens the realtime channel after a manual Disconnect.
func (a *App) Connect() { a.channel.Connect() }

// Disconnect closes the realtime channel and cancels any pending reconnect.
func (a *App) Disconnect() { a.channel.Disconnect() }

// ToggleConnection disconnects when the channel is open, opening or
// waiting to retry, and connects otherwise.
func (a *App) ToggleConnection() {
	if a.channel.Active() {
		a.channel.Disconnect()
		return
	}
	a.channel.Connect()
}

// SetHistoryWindow resizes the history and returns the clamped size.
func (a *App) SetHistoryWindow(points int) int {
	a.sampler.SetMaxPoints(points)
	return a.sampler.MaxPoints()
}

// SessionStatus asks the backend whether monitoring is running.
func (a *App) SessionStatus(ctx context.Context) (backend.SessionStatus, error) {
	return a.backend.Status(ctx)
}

// StartSession asks the backend to start monitoring.
func (a *App) StartSession(ctx context.Context) (string, error) {
	msg, err := a.backend.Start(ctx)
	if err != nil {
		return "", fmt.Errorf("starting session: %w", err)
	}
	a.logger.Infow("Session started", "message", msg)
	return msg, nil
}

// StopSession asks the backend to stop monitoring. On success the buffer
// and the history are cleared.
func (a *App) StopSession(ctx context.Context) (string, error) {
	msg, err := a.backend.Stop(ctx)
	if err != nil {
		return "", fmt.Errorf("stopping session: %w", err)
	}
	a.ClearSession()
	a.logger.Infow("Session stopped", "message", msg)
	return msg, nil
}

// ClearSession empties the alert buffer and the history.
func (a *App) ClearSession() {
	a.buffer.Clear()
	a.sampler.Clear()
	metrics.BufferedAlerts.Set(0)
	a.publish(Event{Kind: EventCleared})
}

func (a *App) Config() config.Config               { return a.cfg }
func (a *App) Persistent() bool                    { return a.persistent }
func (a *App) Annotations() annotations.Repository { return a.annotations }
func (a *App) Notifications() *notify.Engine       { return a.notify }
func (a *App) Filters() *filters.Engine            { return a.filters }
func (a *App) Sampler() *sampler.Sampler           { return a.sampler }
func (a *App) Logger() *zap.SugaredLogger          { return a.logger }
