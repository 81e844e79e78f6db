package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nixlim/ids-top/internal/alerts"
	"github.com/nixlim/ids-top/internal/annotations"
	"github.com/nixlim/ids-top/internal/channel"
	"github.com/nixlim/ids-top/internal/config"
	"github.com/nixlim/ids-top/internal/filters"
	"github.com/nixlim/ids-top/internal/notify"
	"github.com/nixlim/ids-top/internal/sampler"
	"github.com/nixlim/ids-top/internal/stats"
)

type ViewState int

const (
	ViewDashboard ViewState = iota
	ViewStats
	ViewHistory
)

// InputMode is the text prompt currently capturing keys, if any.
type InputMode int

const (
	InputNone InputMode = iota
	InputSearch
	InputFilterName
)

// Timeout for backend and platform calls started from the keyboard.
const actionTimeout = 10 * time.Second

// historyWindows are the sizes the window key cycles through.
var historyWindows = []int{60, 300, 900, 1800, 3600}

type tickMsg time.Time

// RefreshMsg asks the model to redraw after the data behind it changed.
type RefreshMsg struct{}

type permissionMsg struct {
	granted bool
	err     error
}

type sessionMsg struct {
	started bool
	message string
	err     error
}

type AlertProvider interface {
	Alerts() []alerts.Alert
	View() []alerts.Alert
}

type ConnectionProvider interface {
	ConnectionStatus() channel.Status
	ToggleConnection()
}

type StatsProvider interface {
	Stats() stats.DashboardStats
}

type HistoryProvider interface {
	Samples() []sampler.Sample
	Latest() (sampler.Sample, bool)
	Trend() sampler.TrendDirection
	MaxPoints() int
	SetMaxPoints(n int)
}

type FilterProvider interface {
	Filters() []filters.SavedFilter
	Active() filters.Predicate
	ApplyFilter(id string) error
	SetSearchQuery(q string)
	SetSeverityFilter(sev string) error
	SetStatusFilter(status string) error
	SetSortOrder(order filters.SortOrder) error
	ResetActive()
	SaveActive(ctx context.Context, name, description string) (filters.SavedFilter, error)
	DeleteFilter(ctx context.Context, id string) error
}

type NotificationController interface {
	Settings() notify.Settings
	SetEnabled(ctx context.Context, enabled bool) error
	SetSoundEnabled(ctx context.Context, enabled bool) error
	SetMinSeverity(ctx context.Context, sev alerts.Severity) error
	RequestPermission(ctx context.Context) (bool, error)
}

type SessionController interface {
	StartSession(ctx context.Context) (string, error)
	StopSession(ctx context.Context) (string, error)
}

type Model struct {
	view     ViewState
	width    int
	height   int
	keys     KeyMap
	quitting bool

	cfg config.Config

	alerts        AlertProvider
	connection    ConnectionProvider
	stats         StatsProvider
	history       HistoryProvider
	annotations   annotations.Repository
	filters       FilterProvider
	notifications NotificationController
	sessions      SessionController

	alertCursor    int
	alertScrollPos int

	detailOverlay   bool
	detailContent   string
	detailTitle     string
	detailScrollPos int

	filterMenu FilterMenuState

	inputMode InputMode
	input     textinput.Model

	statsScrollPos   int
	historyScrollPos int

	statusMessage string

	isPersistent bool

	refreshRate time.Duration

	onShutdown func()
}

func NewModel(cfg config.Config, opts ...ModelOption) Model {
	input := textinput.New()
	input.CharLimit = 64

	m := Model{
		view:        ViewDashboard,
		keys:        DefaultKeyMap(),
		cfg:         cfg,
		input:       input,
		refreshRate: time.Duration(cfg.Display.RefreshRateMS) * time.Millisecond,
	}
	if m.refreshRate <= 0 {
		m.refreshRate = 500 * time.Millisecond
	}

	for _, opt := range opts {
		opt(&m)
	}

	return m
}

type ModelOption func(*Model)

func WithAlertProvider(a AlertProvider) ModelOption {
	return func(m *Model) { m.alerts = a }
}

func WithConnectionProvider(c ConnectionProvider) ModelOption {
	return func(m *Model) { m.connection = c }
}

func WithStatsProvider(s StatsProvider) ModelOption {
	return func(m *Model) { m.stats = s }
}

func WithHistoryProvider(h HistoryProvider) ModelOption {
	return func(m *Model) { m.history = h }
}

func WithAnnotations(r annotations.Repository) ModelOption {
	return func(m *Model) { m.annotations = r }
}

func WithFilterProvider(f FilterProvider) ModelOption {
	return func(m *Model) { m.filters = f }
}

func WithNotificationController(n NotificationController) ModelOption {
	return func(m *Model) { m.notifications = n }
}

func WithSessionController(s SessionController) ModelOption {
	return func(m *Model) { m.sessions = s }
}

func WithStartView(v ViewState) ModelOption {
	return func(m *Model) { m.view = v }
}

func WithOnShutdown(fn func()) ModelOption {
	return func(m *Model) { m.onShutdown = fn }
}

func WithPersistenceFlag(isPersistent bool) ModelOption {
	return func(m *Model) { m.isPersistent = isPersistent }
}

func (m Model) Init() tea.Cmd {
	return m.tickCmd()
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		m.clampAlertCursor()
		return m, m.tickCmd()

	case RefreshMsg:
		m.clampAlertCursor()
		return m, nil

	case permissionMsg:
		switch {
		case msg.err != nil:
			m.statusMessage = "Permission request failed: " + msg.err.Error()
		case msg.granted:
			m.statusMessage = "Notifications allowed"
		default:
			m.statusMessage = "Notifications blocked by the desktop"
		}
		return m, nil

	case sessionMsg:
		if msg.err != nil {
			m.statusMessage = "Error: " + msg.err.Error()
			return m, nil
		}
		m.statusMessage = msg.message
		if !msg.started {
			m.alertCursor = 0
			m.alertScrollPos = 0
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.inputMode != InputNone {
		return m.handleInputKey(msg)
	}

	if m.detailOverlay {
		return m.handleDetailOverlayKey(msg)
	}

	if m.filterMenu.Active {
		return m.handleFilterMenuKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		if m.onShutdown != nil {
			m.onShutdown()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Tab):
		m.view = (m.view + 1) % 3
		return m, nil

	case key.Matches(msg, m.keys.ToggleConnection):
		if m.connection != nil {
			m.connection.ToggleConnection()
		}
		return m, nil

	case key.Matches(msg, m.keys.RequestPermission):
		return m, m.requestPermissionCmd()

	case key.Matches(msg, m.keys.ToggleNotifications):
		m.toggleNotifications()
		return m, nil

	case key.Matches(msg, m.keys.ToggleSound):
		m.toggleSound()
		return m, nil

	case key.Matches(msg, m.keys.CycleMinSeverity):
		m.cycleMinSeverity()
		return m, nil

	case key.Matches(msg, m.keys.StartSession):
		return m, m.sessionCmd(true)

	case key.Matches(msg, m.keys.StopSession):
		return m, m.sessionCmd(false)
	}

	switch m.view {
	case ViewDashboard:
		return m.handleDashboardKey(msg)
	case ViewStats:
		return m.handleStatsKey(msg)
	case ViewHistory:
		return m.handleHistoryKey(msg)
	}

	return m, nil
}

func (m Model) handleDashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	list := m.getAlerts()

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.alertCursor > 0 {
			m.alertCursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.alertCursor < len(list)-1 {
			m.alertCursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Enter):
		if a, ok := m.selectedAlert(list); ok {
			m.detailOverlay = true
			m.detailTitle = "Alert Detail"
			m.detailContent = m.formatAlertDetail(a)
			m.detailScrollPos = 0
		}
		return m, nil

	case key.Matches(msg, m.keys.MarkNew):
		return m.markSelected(list, annotations.StatusNew)
	case key.Matches(msg, m.keys.MarkReviewed):
		return m.markSelected(list, annotations.StatusReviewed)
	case key.Matches(msg, m.keys.MarkInvestigating):
		return m.markSelected(list, annotations.StatusInvestigating)
	case key.Matches(msg, m.keys.MarkResolved):
		return m.markSelected(list, annotations.StatusResolved)
	case key.Matches(msg, m.keys.MarkFalsePositive):
		return m.markSelected(list, annotations.StatusFalsePositive)

	case key.Matches(msg, m.keys.Search):
		if m.filters == nil {
			return m, nil
		}
		return m.openInput(InputSearch, "search", m.filters.Active().SearchQuery)

	case key.Matches(msg, m.keys.CycleSeverity):
		m.cycleSeverityFilter()
		return m, nil

	case key.Matches(msg, m.keys.CycleStatus):
		m.cycleStatusFilter()
		return m, nil

	case key.Matches(msg, m.keys.CycleSort):
		m.cycleSortOrder()
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		if m.filters != nil {
			m.filters.ResetActive()
			m.alertCursor = 0
			m.statusMessage = "Filter cleared"
		}
		return m, nil

	case key.Matches(msg, m.keys.Filter):
		if m.filters != nil {
			m.filterMenu = newFilterMenu(m.filters.Filters())
		}
		return m, nil

	case key.Matches(msg, m.keys.SaveFilter):
		if m.filters == nil {
			return m, nil
		}
		return m.openInput(InputFilterName, "filter name", "")
	}

	return m, nil
}

func (m Model) handleStatsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.statsScrollPos > 0 {
			m.statsScrollPos--
		}
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.statsScrollPos++
		return m, nil
	}
	return m, nil
}

func (m Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.historyScrollPos > 0 {
			m.historyScrollPos--
		}
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.historyScrollPos++
		return m, nil
	case key.Matches(msg, m.keys.CycleWindow):
		m.cycleHistoryWindow()
		return m, nil
	}
	return m, nil
}

func (m Model) handleDetailOverlayKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Enter):
		m.detailOverlay = false
		m.detailContent = ""
		m.detailTitle = ""
		m.detailScrollPos = 0
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.detailScrollPos > 0 {
			m.detailScrollPos--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.detailScrollPos++
		return m, nil
	}

	return m, nil
}

func (m Model) openInput(mode InputMode, placeholder, value string) (tea.Model, tea.Cmd) {
	m.inputMode = mode
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m, m.input.Focus()
}

func (m Model) closeInput() Model {
	m.inputMode = InputNone
	m.input.Blur()
	m.input.SetValue("")
	return m
}

// handleInputKey routes keys to the open prompt. The search prompt filters
// as the operator types; the filter name prompt saves on enter.
func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		if m.inputMode == InputSearch && m.filters != nil {
			m.filters.SetSearchQuery("")
		}
		return m.closeInput(), nil

	case tea.KeyEnter:
		value := m.input.Value()
		mode := m.inputMode
		m = m.closeInput()
		switch mode {
		case InputSearch:
			m.filters.SetSearchQuery(value)
		case InputFilterName:
			m.saveActiveFilter(value)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.inputMode == InputSearch && m.filters != nil {
		m.filters.SetSearchQuery(m.input.Value())
		m.alertCursor = 0
	}
	return m, cmd
}

func (m *Model) saveActiveFilter(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	f, err := m.filters.SaveActive(ctx, name, "")
	if err != nil {
		m.statusMessage = "Could not save filter: " + err.Error()
		return
	}
	m.statusMessage = fmt.Sprintf("Saved filter %q", f.Name)
}

func (m Model) markSelected(list []alerts.Alert, status annotations.Status) (tea.Model, tea.Cmd) {
	a, ok := m.selectedAlert(list)
	if !ok || m.annotations == nil {
		return m, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	if err := m.annotations.SetStatus(ctx, a, status, ""); err != nil {
		m.statusMessage = "Status not saved: " + err.Error()
		return m, nil
	}
	m.statusMessage = fmt.Sprintf("%s %s marked %s", alerts.DisplayThreatType(a.ThreatType), a.SourceIP, status.Label())
	m.clampAlertCursor()
	return m, nil
}

func (m *Model) cycleSeverityFilter() {
	if m.filters == nil {
		return
	}
	options := []string{filters.AllSeverities}
	for _, sev := range alerts.Severities {
		options = append(options, string(sev))
	}
	next := nextString(options, m.filters.Active().SeverityFilter)
	if err := m.filters.SetSeverityFilter(next); err != nil {
		m.statusMessage = "Error: " + err.Error()
		return
	}
	m.alertCursor = 0
}

func (m *Model) cycleStatusFilter() {
	if m.filters == nil {
		return
	}
	options := []string{filters.AllStatuses}
	for _, s := range annotations.Statuses {
		options = append(options, string(s))
	}
	next := nextString(options, m.filters.Active().StatusFilter)
	if err := m.filters.SetStatusFilter(next); err != nil {
		m.statusMessage = "Error: " + err.Error()
		return
	}
	m.alertCursor = 0
}

func (m *Model) cycleSortOrder() {
	if m.filters == nil {
		return
	}
	options := make([]string, len(filters.SortOrders))
	for i, o := range filters.SortOrders {
		options[i] = string(o)
	}
	next := nextString(options, string(m.filters.Active().SortOrder))
	if err := m.filters.SetSortOrder(filters.SortOrder(next)); err != nil {
		m.statusMessage = "Error: " + err.Error()
	}
}

func (m *Model) cycleHistoryWindow() {
	if m.history == nil {
		return
	}
	current := m.history.MaxPoints()
	next := historyWindows[0]
	for _, w := range historyWindows {
		if w > current {
			next = w
			break
		}
	}
	m.history.SetMaxPoints(next)
	m.historyScrollPos = 0
	m.statusMessage = fmt.Sprintf("History window: %d samples", m.history.MaxPoints())
}

func (m *Model) toggleNotifications() {
	if m.notifications == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	enabled := !m.notifications.Settings().Enabled
	if err := m.notifications.SetEnabled(ctx, enabled); err != nil {
		m.statusMessage = "Settings not saved: " + err.Error()
		return
	}
	m.statusMessage = "Notifications " + onOff(enabled)
}

func (m *Model) toggleSound() {
	if m.notifications == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	enabled := !m.notifications.Settings().SoundEnabled
	if err := m.notifications.SetSoundEnabled(ctx, enabled); err != nil {
		m.statusMessage = "Settings not saved: " + err.Error()
		return
	}
	m.statusMessage = "Sound " + onOff(enabled)
}

func (m *Model) cycleMinSeverity() {
	if m.notifications == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	options := make([]string, len(alerts.Severities))
	for i, s := range alerts.Severities {
		options[i] = string(s)
	}
	next := alerts.Severity(nextString(options, string(m.notifications.Settings().MinSeverity)))
	if err := m.notifications.SetMinSeverity(ctx, next); err != nil {
		m.statusMessage = "Settings not saved: " + err.Error()
		return
	}
	m.statusMessage = "Notify at " + string(next) + " and above"
}

func (m Model) requestPermissionCmd() tea.Cmd {
	if m.notifications == nil {
		return nil
	}
	n := m.notifications
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		granted, err := n.RequestPermission(ctx)
		return permissionMsg{granted: granted, err: err}
	}
}

func (m Model) sessionCmd(start bool) tea.Cmd {
	if m.sessions == nil {
		return nil
	}
	s := m.sessions
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		var (
			msg string
			err error
		)
		if start {
			msg, err = s.StartSession(ctx)
		} else {
			msg, err = s.StopSession(ctx)
		}
		return sessionMsg{started: start, message: msg, err: err}
	}
}

func (m Model) getAlerts() []alerts.Alert {
	if m.alerts == nil {
		return nil
	}
	return m.alerts.View()
}

func (m Model) selectedAlert(list []alerts.Alert) (alerts.Alert, bool) {
	if m.alertCursor < 0 || m.alertCursor >= len(list) {
		return alerts.Alert{}, false
	}
	return list[m.alertCursor], true
}

func (m *Model) clampAlertCursor() {
	n := len(m.getAlerts())
	if m.alertCursor >= n {
		m.alertCursor = n - 1
	}
	if m.alertCursor < 0 {
		m.alertCursor = 0
	}
}

func (m Model) statusOf(a alerts.Alert) annotations.Status {
	if m.annotations == nil {
		return annotations.StatusNew
	}
	return m.annotations.Status(a)
}

// nextString returns the element after current in options, wrapping around.
// An unknown current yields the first option.
func nextString(options []string, current string) string {
	for i, o := range options {
		if o == current {
			return options[(i+1)%len(options)]
		}
	}
	return options[0]
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func (m Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var output string
	switch m.view {
	case ViewDashboard:
		output = m.renderDashboard()
	case ViewStats:
		output = m.renderStats()
	case ViewHistory:
		output = m.renderHistory()
	}

	return clampHeight(output, m.height)
}
