package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nixlim/ids-top/internal/alerts"
	"github.com/nixlim/ids-top/internal/annotations"
	"github.com/nixlim/ids-top/internal/filters"
)

func TestModel_AlertNavigation(t *testing.T) {
	f := newFixture(t)
	m := f.model()

	down := tea.KeyMsg{Type: tea.KeyDown}
	up := tea.KeyMsg{Type: tea.KeyUp}

	m = send(t, m, down, down, down, down)
	if m.alertCursor != 2 {
		t.Errorf("cursor = %d, want 2 (clamped to last row)", m.alertCursor)
	}
	m = send(t, m, keyRunes("k"), up, up)
	if m.alertCursor != 0 {
		t.Errorf("cursor = %d, want 0", m.alertCursor)
	}
}

func TestModel_DetailOverlay(t *testing.T) {
	f := newFixture(t)
	m := f.model()

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.detailOverlay {
		t.Fatal("enter should open the detail overlay")
	}
	for _, want := range []string{"ID:         a3", "Anomalous Behavior", "payload entropy", "entropy", "1. Inspect the flow", "Status:     New"} {
		if !strings.Contains(m.detailContent, want) {
			t.Errorf("detail missing %q", want)
		}
	}
	if idx, idx2 := strings.Index(m.detailContent, "  entropy"), strings.Index(m.detailContent, "  size"); idx > idx2 {
		t.Error("feature importance should be ordered by weight")
	}

	// Status keys are ignored while the overlay is open.
	m = send(t, m, keyRunes("r"))
	if got := f.ann.Status(f.alerts.list[0]); got != annotations.StatusNew {
		t.Errorf("status changed behind the overlay: %s", got)
	}

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.detailOverlay || m.detailContent != "" {
		t.Error("esc should close the overlay")
	}
}

func TestModel_DetailShowsTargetAndPorts(t *testing.T) {
	f := newFixture(t)
	m := f.model()

	m = send(t, m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter})
	for _, want := range []string{"Target:     192.168.1.10", "Ports:      80, 443"} {
		if !strings.Contains(m.detailContent, want) {
			t.Errorf("detail missing %q", want)
		}
	}
}

func TestModel_MarkStatus(t *testing.T) {
	tests := []struct {
		key  string
		want annotations.Status
	}{
		{"r", annotations.StatusReviewed},
		{"i", annotations.StatusInvestigating},
		{"x", annotations.StatusResolved},
		{"p", annotations.StatusFalsePositive},
		{"n", annotations.StatusNew},
	}

	for _, tc := range tests {
		t.Run(string(tc.want), func(t *testing.T) {
			f := newFixture(t)
			m := f.model()
			// Move off new first so marking new is observable.
			if tc.want == annotations.StatusNew {
				m = send(t, m, keyRunes("r"))
			}

			m = send(t, m, keyRunes(tc.key))

			selected := f.alerts.list[0]
			if got := f.ann.Status(selected); got != tc.want {
				t.Errorf("status = %s, want %s", got, tc.want)
			}
			if !strings.Contains(m.statusMessage, tc.want.Label()) {
				t.Errorf("status message = %q", m.statusMessage)
			}
		})
	}
}

func TestModel_StatusFilterHidesTriaged(t *testing.T) {
	f := newFixture(t)
	m := f.model()

	m = send(t, m, keyRunes("r"), keyRunes("S"))
	if got := f.filters.Active().StatusFilter; got != string(annotations.StatusNew) {
		t.Fatalf("status filter = %q, want new", got)
	}
	if got := len(m.getAlerts()); got != 2 {
		t.Errorf("visible alerts = %d, want 2", got)
	}
	if out := m.View(); !strings.Contains(out, "Alerts (2 of 3)") {
		t.Error("panel title should show filtered and total counts")
	}
}

func TestModel_CycleSeverityFilter(t *testing.T) {
	f := newFixture(t)
	m := f.model()

	want := []string{"Low", "Medium", "High", "Critical", filters.AllSeverities}
	for _, sev := range want {
		m = send(t, m, keyRunes("s"))
		if got := f.filters.Active().SeverityFilter; got != sev {
			t.Fatalf("severity filter = %q, want %q", got, sev)
		}
	}

	m = send(t, m, keyRunes("s"), keyRunes("s"))
	if out := m.View(); !strings.Contains(out, "No alerts match the current filter") {
		t.Error("empty filtered view should say so")
	}

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if got := f.filters.Active(); got != filters.DefaultPredicate() {
		t.Errorf("esc should reset the predicate, got %+v", got)
	}
}

func TestModel_CycleSortOrder(t *testing.T) {
	f := newFixture(t)
	m := f.model()

	m = send(t, m, keyRunes("o"))
	if got := f.filters.Active().SortOrder; got != filters.SortOldest {
		t.Fatalf("sort = %q, want oldest", got)
	}
	if first := m.getAlerts()[0].ID; first != "a1" {
		t.Errorf("first alert = %s, want a1", first)
	}

	m = send(t, m, keyRunes("o"))
	if first := m.getAlerts()[0].ID; first != "a1" {
		t.Errorf("severity order should put the critical alert first, got %s", first)
	}
}

func TestModel_SearchPrompt(t *testing.T) {
	f := newFixture(t)
	m := f.model()

	m = send(t, m, keyRunes("/"))
	if m.inputMode != InputSearch {
		t.Fatal("/ should open the search prompt")
	}

	// "q" is text inside the prompt.
	m = send(t, m, keyRunes("ddosq"))
	if m.quitting {
		t.Fatal("keys typed into the prompt must not trigger bindings")
	}
	if got := f.filters.Active().SearchQuery; got != "ddosq" {
		t.Errorf("search query = %q, want ddosq", got)
	}

	m = send(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	if got := f.filters.Active().SearchQuery; got != "ddos" {
		t.Errorf("search query = %q, want ddos", got)
	}
	if got := len(m.getAlerts()); got != 1 {
		t.Errorf("visible alerts = %d, want 1", got)
	}

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.inputMode != InputNone {
		t.Error("enter should close the prompt")
	}
	if got := f.filters.Active().SearchQuery; got != "ddos" {
		t.Errorf("enter should keep the query, got %q", got)
	}

	m = send(t, m, keyRunes("/"), keyRunes("x"), tea.KeyMsg{Type: tea.KeyEsc})
	if got := f.filters.Active().SearchQuery; got != "" {
		t.Errorf("esc should clear the query, got %q", got)
	}
}

func TestModel_FilterMenuApply(t *testing.T) {
	f := newFixture(t)
	m := f.model()

	m = send(t, m, keyRunes("f"))
	if !m.filterMenu.Active || len(m.filterMenu.Options) != 4 {
		t.Fatalf("menu active=%v options=%d, want 4 defaults", m.filterMenu.Active, len(m.filterMenu.Options))
	}
	if out := m.View(); !strings.Contains(out, "Saved Filters") {
		t.Error("menu overlay not rendered")
	}

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.filterMenu.Active {
		t.Error("applying a filter should close the menu")
	}
	if got := f.filters.Active().SeverityFilter; got != string(alerts.SeverityCritical) {
		t.Errorf("severity filter = %q, want Critical", got)
	}
	if list := m.getAlerts(); len(list) != 1 || list[0].ID != "a1" {
		t.Errorf("critical view = %v", list)
	}
}

func TestModel_FilterMenuRejectsDefaultDelete(t *testing.T) {
	f := newFixture(t)
	m := f.model()

	m = send(t, m, keyRunes("f"), keyRunes("d"))
	if !strings.Contains(m.filterMenu.Message, "cannot be deleted") {
		t.Errorf("message = %q", m.filterMenu.Message)
	}
	if got := len(f.filters.Filters()); got != 4 {
		t.Errorf("filters = %d, want 4", got)
	}
}

func TestModel_SaveAndDeleteFilter(t *testing.T) {
	f := newFixture(t)
	m := f.model()

	m = send(t, m, keyRunes("s"), keyRunes("+"))
	if m.inputMode != InputFilterName {
		t.Fatal("+ should open the name prompt")
	}
	m = send(t, m, keyRunes("Low only"), tea.KeyMsg{Type: tea.KeyEnter})

	saved := f.filters.Filters()
	if len(saved) != 5 {
		t.Fatalf("filters = %d, want 5", len(saved))
	}
	if got := saved[4]; got.Name != "Low only" || got.SeverityFilter != "Low" || got.IsDefault {
		t.Errorf("saved filter = %+v", got)
	}
	if !strings.Contains(m.statusMessage, `"Low only"`) {
		t.Errorf("status message = %q", m.statusMessage)
	}

	down := tea.KeyMsg{Type: tea.KeyDown}
	m = send(t, m, keyRunes("f"), down, down, down, down, keyRunes("d"))
	if got := len(f.filters.Filters()); got != 4 {
		t.Errorf("filters after delete = %d, want 4", got)
	}
	if m.filterMenu.Cursor != 3 {
		t.Errorf("cursor = %d, want 3", m.filterMenu.Cursor)
	}
}

func TestModel_SaveFilterEmptyNameFails(t *testing.T) {
	f := newFixture(t)
	m := f.model()

	m = send(t, m, keyRunes("+"), tea.KeyMsg{Type: tea.KeyEnter})
	if !strings.Contains(m.statusMessage, "Could not save filter") {
		t.Errorf("status message = %q", m.statusMessage)
	}
	if got := len(f.filters.Filters()); got != 4 {
		t.Errorf("filters = %d, want 4", got)
	}
}

func TestModel_CycleHistoryWindow(t *testing.T) {
	f := newFixture(t)
	m := f.model(WithStartView(ViewHistory))

	for _, want := range []int{300, 900, 1800, 3600, 60} {
		m = send(t, m, keyRunes("w"))
		if got := f.history.MaxPoints(); got != want {
			t.Fatalf("window = %d, want %d", got, want)
		}
	}
}

func TestModel_WindowKeyOnlyInHistory(t *testing.T) {
	f := newFixture(t)
	m := f.model()

	send(t, m, keyRunes("w"))
	if got := f.history.MaxPoints(); got != 60 {
		t.Errorf("window changed from the dashboard: %d", got)
	}
}

func TestModel_NotificationSettings(t *testing.T) {
	f := newFixture(t)
	m := f.model()

	m = send(t, m, keyRunes("m"))
	if f.notif.settings.Enabled {
		t.Error("m should disable notifications")
	}
	if m.statusMessage != "Notifications off" {
		t.Errorf("status message = %q", m.statusMessage)
	}

	m = send(t, m, keyRunes("M"))
	if f.notif.settings.SoundEnabled {
		t.Error("M should disable sound")
	}

	m = send(t, m, keyRunes("v"))
	if got := f.notif.settings.MinSeverity; got != alerts.SeverityCritical {
		t.Errorf("min severity = %s, want Critical", got)
	}
	m = send(t, m, keyRunes("v"))
	if got := f.notif.settings.MinSeverity; got != alerts.SeverityLow {
		t.Errorf("min severity = %s, want Low after wrapping", got)
	}
}

func TestModel_NotificationSaveFailure(t *testing.T) {
	f := newFixture(t)
	f.notif.failSave = true
	m := f.model()

	m = send(t, m, keyRunes("m"))
	if !strings.Contains(m.statusMessage, "Settings not saved") {
		t.Errorf("status message = %q", m.statusMessage)
	}
}

func TestModel_RequestPermission(t *testing.T) {
	tests := []struct {
		name  string
		grant bool
		want  string
	}{
		{name: "granted", grant: true, want: "Notifications allowed"},
		{name: "denied", grant: false, want: "Notifications blocked"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.notif.grant = tc.grant
			m := f.model()

			_, cmd := m.Update(keyRunes("N"))
			if cmd == nil {
				t.Fatal("N should return a command")
			}
			m = send(t, m, cmd())
			if f.notif.requested != 1 {
				t.Errorf("requested = %d, want 1", f.notif.requested)
			}
			if !strings.Contains(m.statusMessage, tc.want) {
				t.Errorf("status message = %q, want %q", m.statusMessage, tc.want)
			}
		})
	}
}

func TestModel_SessionControl(t *testing.T) {
	f := newFixture(t)
	m := f.model()

	_, cmd := m.Update(keyRunes("b"))
	m = send(t, m, cmd())
	if f.sessions.starts != 1 || m.statusMessage != "IDS started" {
		t.Errorf("starts=%d message=%q", f.sessions.starts, m.statusMessage)
	}

	m.alertCursor = 2
	_, cmd = m.Update(keyRunes("B"))
	m = send(t, m, cmd())
	if f.sessions.stops != 1 || m.statusMessage != "IDS stopped" {
		t.Errorf("stops=%d message=%q", f.sessions.stops, m.statusMessage)
	}
	if m.alertCursor != 0 {
		t.Errorf("cursor = %d, want 0 after stop", m.alertCursor)
	}

	f.sessions.err = errors.New("backend error: IDS not running")
	_, cmd = m.Update(keyRunes("B"))
	m = send(t, m, cmd())
	if m.statusMessage != "Error: backend error: IDS not running" {
		t.Errorf("status message = %q", m.statusMessage)
	}
}

func TestModel_ToggleConnection(t *testing.T) {
	f := newFixture(t)
	m := f.model()

	send(t, m, keyRunes("c"))
	if f.conn.toggles != 1 {
		t.Errorf("toggles = %d, want 1", f.conn.toggles)
	}
}

func TestModel_RefreshClampsCursor(t *testing.T) {
	f := newFixture(t)
	m := f.model()
	m.alertCursor = 2

	f.alerts.list = f.alerts.list[:1]
	m = send(t, m, RefreshMsg{})
	if m.alertCursor != 0 {
		t.Errorf("cursor = %d, want 0", m.alertCursor)
	}
}

func TestNextString(t *testing.T) {
	opts := []string{"a", "b", "c"}
	tests := []struct {
		current, want string
	}{
		{"a", "b"},
		{"c", "a"},
		{"unknown", "a"},
	}
	for _, tc := range tests {
		if got := nextString(opts, tc.current); got != tc.want {
			t.Errorf("nextString(%q) = %q, want %q", tc.current, got, tc.want)
		}
	}
}

func TestDescribePredicate(t *testing.T) {
	tests := []struct {
		name string
		p    filters.Predicate
		want string
	}{
		{name: "default", p: filters.DefaultPredicate(), want: ""},
		{
			name: "everything set",
			p: filters.Predicate{
				SearchQuery:    "scan",
				SeverityFilter: "High",
				StatusFilter:   "new",
				SortOrder:      filters.SortSeverity,
			},
			want: `"scan" sev=High status=new sort=severity`,
		},
		{
			name: "blank query ignored",
			p:    filters.Predicate{SearchQuery: "  ", SeverityFilter: filters.AllSeverities, StatusFilter: filters.AllStatuses, SortOrder: filters.SortNewest},
			want: "",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := describePredicate(tc.p); got != tc.want {
				t.Errorf("describePredicate = %q, want %q", got, tc.want)
			}
		})
	}
}
