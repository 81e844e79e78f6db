// Package channel maintains the realtime alert channel to the detection
// backend and reconnects it after failures.
package channel

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nixlim/ids-top/internal/alerts"
	"github.com/nixlim/ids-top/internal/logging"
	"github.com/nixlim/ids-top/internal/metrics"
)

// DefaultReconnectDelay is the fixed wait between a failure and the next
// connection attempt.
const DefaultReconnectDelay = 3000 * time.Millisecond

// State is the connection lifecycle state.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "unknown"
}

// Sink receives every alert decoded from the channel, in arrival order.
type Sink interface {
	Ingest(alerts.Alert)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(alerts.Alert)

func (f SinkFunc) Ingest(a alerts.Alert) { f(a) }

// AfterFunc arms a one-shot timer and returns its stop function.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func timeAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Status is a point-in-time view of the channel.
type Status struct {
	URL             string
	State           State
	Connected       bool
	RetryPending    bool
	LastError       string
	LastDecodeError string
	Reconnects      uint64
	Received        uint64
	DecodeErrors    uint64
}

type Option func(*Manager)

func WithDialer(d Dialer) Option {
	return func(m *Manager) { m.dialer = d }
}

func WithReconnectDelay(d time.Duration) Option {
	return func(m *Manager) { m.delay = d }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(m *Manager) { m.logger = logging.OrNop(l) }
}

func WithFrameLogger(l FrameLogger) Option {
	return func(m *Manager) { m.frames = l }
}

// WithAfterFunc replaces time.AfterFunc for reconnect scheduling.
func WithAfterFunc(f AfterFunc) Option {
	return func(m *Manager) { m.afterFunc = f }
}

// Manager owns at most one open channel. Every transition happens under mu
// and bumps gen when it invalidates in-flight work, so dial results, read
// loop exits and timers from an older generation are ignored.
type Manager struct {
	url       string
	sink      Sink
	dialer    Dialer
	delay     time.Duration
	logger    *zap.SugaredLogger
	frames    FrameLogger
	afterFunc AfterFunc

	mu            sync.Mutex
	state         State
	gen           uint64
	conn          Conn
	cancelDial    context.CancelFunc
	stopTimer     func() bool
	manualStop    bool
	lastErr       error
	lastDecodeErr error
	reconnects    uint64
	received      uint64
	decodeErrors  uint64

	wg sync.WaitGroup
}

func New(url string, sink Sink, opts ...Option) *Manager {
	m := &Manager{
		url:       url,
		sink:      sink,
		dialer:    NewWSDialer(10 * time.Second),
		delay:     DefaultReconnectDelay,
		logger:    zap.NewNop().Sugar(),
		frames:    NopFrameLogger{},
		afterFunc: timeAfterFunc,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connect opens the channel unless one is already open or being opened.
// It clears a previous manual stop, re-enabling automatic reconnects.
func (m *Manager) Connect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Disconnected {
		return
	}
	m.manualStop = false
	m.cancelTimerLocked()
	m.startDialLocked()
}

// Disconnect closes the channel and cancels any pending reconnect. No
// further attempts are made until Connect is called. Safe to call
// repeatedly.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.manualStop = true
	m.cancelTimerLocked()
	m.gen++
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}
	conn := m.conn
	m.conn = nil
	m.setStateLocked(Disconnected, nil)
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

// Close disconnects and waits for the dial and read goroutines to exit.
func (m *Manager) Close() {
	m.Disconnect()
	m.wg.Wait()
}

// Connected reports whether the channel is open.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == Connected
}

// Active reports whether the manager is keeping a channel open: connected,
// dialing, or waiting to retry.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state != Disconnected || m.stopTimer != nil
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastError returns the most recent transport error, or nil after a
// successful open.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// LastDecodeError returns the most recent frame decode failure.
func (m *Manager) LastDecodeError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastDecodeErr
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{
		URL:          m.url,
		State:        m.state,
		Connected:    m.state == Connected,
		RetryPending: m.stopTimer != nil,
		Reconnects:   m.reconnects,
		Received:     m.received,
		DecodeErrors: m.decodeErrors,
	}
	if m.lastErr != nil {
		st.LastError = m.lastErr.Error()
	}
	if m.lastDecodeErr != nil {
		st.LastDecodeError = m.lastDecodeErr.Error()
	}
	return st
}

func (m *Manager) startDialLocked() {
	m.gen++
	gen := m.gen
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelDial = cancel
	m.setStateLocked(Connecting, nil)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		m.dial(ctx, gen)
	}()
}

func (m *Manager) dial(ctx context.Context, gen uint64) {
	conn, err := m.dialer.DialContext(ctx, m.url)

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	m.cancelDial = nil

	if err != nil {
		m.lastErr = err
		m.setStateLocked(Disconnected, err)
		m.logger.Warnw("Alert channel connection failed", "url", m.url, "error", err, "retry_in", m.delay)
		m.scheduleReconnectLocked()
		m.mu.Unlock()
		return
	}

	m.conn = conn
	m.lastErr = nil
	m.setStateLocked(Connected, nil)
	m.logger.Infow("Alert channel connected", "url", m.url)
	m.mu.Unlock()

	m.readLoop(conn, gen)
}

func (m *Manager) readLoop(conn Conn, gen uint64) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.handleClosed(conn, gen, err)
			return
		}
		m.handleFrame(data, gen)
	}
}

func (m *Manager) handleFrame(data []byte, gen uint64) {
	m.frames.LogFrame(data)
	metrics.FramesReceived.Inc()

	a, err := alerts.DecodeEnvelope(data)

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.received++
	if err != nil {
		m.decodeErrors++
		m.lastDecodeErr = err
		m.mu.Unlock()

		metrics.DecodeErrors.Inc()
		m.frames.LogDecodeError(data, err)
		m.logger.Warnw("Dropping undecodable alert frame", "error", err, "bytes", len(data))
		return
	}
	m.mu.Unlock()

	metrics.AlertsReceived.WithLabelValues(string(a.Severity)).Inc()
	m.sink.Ingest(a)
}

func (m *Manager) handleClosed(conn Conn, gen uint64, err error) {
	_ = conn.Close()

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		return
	}
	m.conn = nil
	m.lastErr = err
	m.setStateLocked(Disconnected, err)
	m.logger.Warnw("Alert channel closed", "url", m.url, "error", err, "retry_in", m.delay)
	if !m.manualStop {
		m.scheduleReconnectLocked()
	}
}

// scheduleReconnectLocked arms a single retry after the fixed delay,
// replacing any timer already pending.
func (m *Manager) scheduleReconnectLocked() {
	m.cancelTimerLocked()
	m.reconnects++
	metrics.Reconnects.Inc()

	gen := m.gen
	m.stopTimer = m.afterFunc(m.delay, func() { m.onReconnectTimer(gen) })
}

func (m *Manager) onReconnectTimer(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || m.manualStop || m.state != Disconnected {
		return
	}
	m.stopTimer = nil
	m.startDialLocked()
}

func (m *Manager) cancelTimerLocked() {
	if m.stopTimer != nil {
		m.stopTimer()
		m.stopTimer = nil
	}
}

func (m *Manager) setStateLocked(to State, err error) {
	from := m.state
	if from == to {
		return
	}
	m.state = to
	if to == Connected {
		metrics.ChannelConnected.Set(1)
	} else {
		metrics.ChannelConnected.Set(0)
	}
	m.frames.LogState(from, to, err)
}
