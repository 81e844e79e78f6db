package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds every key binding of the dashboard.
type KeyMap struct {
	Quit   key.Binding
	Tab    key.Binding
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Escape key.Binding

	// Annotation status of the selected alert.
	MarkNew           key.Binding
	MarkReviewed      key.Binding
	MarkInvestigating key.Binding
	MarkResolved      key.Binding
	MarkFalsePositive key.Binding

	// Active predicate.
	Search        key.Binding
	CycleSeverity key.Binding
	CycleStatus   key.Binding
	CycleSort     key.Binding
	Filter        key.Binding
	SaveFilter    key.Binding
	DeleteFilter  key.Binding

	CycleWindow key.Binding

	// Notifications.
	RequestPermission   key.Binding
	ToggleNotifications key.Binding
	ToggleSound         key.Binding
	CycleMinSeverity    key.Binding

	ToggleConnection key.Binding
	StartSession     key.Binding
	StopSession      key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Tab:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Enter:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "detail")),
		Escape: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),

		MarkNew:           key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
		MarkReviewed:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reviewed")),
		MarkInvestigating: key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "investigating")),
		MarkResolved:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "resolved")),
		MarkFalsePositive: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "false positive")),

		Search:        key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		CycleSeverity: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "severity")),
		CycleStatus:   key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "status")),
		CycleSort:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "sort")),
		Filter:        key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filters")),
		SaveFilter:    key.NewBinding(key.WithKeys("+"), key.WithHelp("+", "save filter")),
		DeleteFilter:  key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),

		CycleWindow: key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "window")),

		RequestPermission:   key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "allow notifications")),
		ToggleNotifications: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mute")),
		ToggleSound:         key.NewBinding(key.WithKeys("M"), key.WithHelp("M", "sound")),
		CycleMinSeverity:    key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "notify level")),

		ToggleConnection: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "connect")),
		StartSession:     key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "start capture")),
		StopSession:      key.NewBinding(key.WithKeys("B"), key.WithHelp("B", "stop capture")),
	}
}
