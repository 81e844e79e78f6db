package filters

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nixlim/ids-top/internal/alerts"
	"github.com/nixlim/ids-top/internal/logging"
	"github.com/nixlim/ids-top/internal/storage"
)

var (
	// ErrDefaultFilter is returned when a mutation targets a built-in filter.
	ErrDefaultFilter = errors.New("filters: default filters cannot be modified")
	ErrNotFound      = errors.New("filters: filter not found")
)

// Engine holds the active predicate and the saved filter collection. Only
// user filters are persisted; the defaults are rebuilt on every load.
type Engine struct {
	mu     sync.RWMutex
	active Predicate
	user   []SavedFilter

	kv       storage.KV
	resolver StatusResolver
	logger   *zap.SugaredLogger
	now      func() time.Time
}

type EngineOption func(*Engine)

// WithClock sets the clock used for CreatedAt.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func WithLogger(l *zap.SugaredLogger) EngineOption {
	return func(e *Engine) { e.logger = logging.OrNop(l) }
}

// NewEngine loads user filters from kv. Stored entries that are invalid or
// claim to be defaults are dropped; read errors yield no user filters.
func NewEngine(ctx context.Context, kv storage.KV, resolver StatusResolver, opts ...EngineOption) *Engine {
	e := &Engine{
		active:   DefaultPredicate(),
		kv:       kv,
		resolver: resolver,
		logger:   zap.NewNop().Sugar(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	var stored []SavedFilter
	err := storage.LoadJSON(ctx, kv, storage.KeySavedFilters, &stored)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		e.logger.Warnw("Failed to load saved filters, using defaults only", "error", err)
	default:
		for _, f := range stored {
			if f.IsDefault || IsDefaultID(f.ID) || f.ID == "" {
				continue
			}
			if err := f.Validate(); err != nil {
				e.logger.Warnw("Dropping invalid saved filter", "id", f.ID, "error", err)
				continue
			}
			e.user = append(e.user, f)
		}
	}
	return e
}

// Filters returns the default filters followed by the user filters.
func (e *Engine) Filters() []SavedFilter {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append(DefaultFilters(), e.user...)
}

// Filter looks a filter up by id.
func (e *Engine) Filter(id string) (SavedFilter, bool) {
	for _, f := range e.Filters() {
		if f.ID == id {
			return f, true
		}
	}
	return SavedFilter{}, false
}

// Active returns the predicate currently applied to views.
func (e *Engine) Active() Predicate {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.active
}

// ApplyFilter replaces the active predicate with the saved filter's. It
// has no persistence side effect.
func (e *Engine) ApplyFilter(id string) error {
	f, ok := e.Filter(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e.mu.Lock()
	e.active = f.Predicate
	e.mu.Unlock()
	return nil
}

// SetActive replaces the active predicate after validating it.
func (e *Engine) SetActive(p Predicate) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid predicate: %w", err)
	}
	e.mu.Lock()
	e.active = p
	e.mu.Unlock()
	return nil
}

func (e *Engine) SetSearchQuery(q string) {
	e.mu.Lock()
	e.active.SearchQuery = q
	e.mu.Unlock()
}

func (e *Engine) SetSeverityFilter(sev string) error {
	p := e.Active()
	p.SeverityFilter = sev
	return e.SetActive(p)
}

func (e *Engine) SetStatusFilter(status string) error {
	p := e.Active()
	p.StatusFilter = status
	return e.SetActive(p)
}

func (e *Engine) SetSortOrder(order SortOrder) error {
	p := e.Active()
	p.SortOrder = order
	return e.SetActive(p)
}

// ResetActive restores the match-everything predicate.
func (e *Engine) ResetActive() {
	e.mu.Lock()
	e.active = DefaultPredicate()
	e.mu.Unlock()
}

// View applies the active predicate to a buffer snapshot.
func (e *Engine) View(snapshot []alerts.Alert) []alerts.Alert {
	return Apply(snapshot, e.Active(), e.resolver)
}

// AddFilter stores f as a new user filter with a fresh id and creation
// time and returns the stored value.
func (e *Engine) AddFilter(ctx context.Context, f SavedFilter) (SavedFilter, error) {
	f.ID = uuid.NewString()
	f.CreatedAt = e.now()
	f.IsDefault = false
	if err := f.Validate(); err != nil {
		return SavedFilter{}, fmt.Errorf("invalid filter: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.user = append(e.user, f)
	return f, e.persistLocked(ctx)
}

// SaveActive stores the active predicate under name.
func (e *Engine) SaveActive(ctx context.Context, name, description string) (SavedFilter, error) {
	return e.AddFilter(ctx, SavedFilter{
		Name:        name,
		Description: description,
		Predicate:   e.Active(),
	})
}

// UpdateFilter replaces the name, description, color and predicate of a
// user filter. Its id and creation time are kept.
func (e *Engine) UpdateFilter(ctx context.Context, id string, update SavedFilter) error {
	if IsDefaultID(id) {
		return ErrDefaultFilter
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	f := e.user[i]
	f.Name = update.Name
	f.Description = update.Description
	f.Color = update.Color
	f.Predicate = update.Predicate
	if err := f.Validate(); err != nil {
		return fmt.Errorf("invalid filter: %w", err)
	}

	e.user[i] = f
	return e.persistLocked(ctx)
}

// DeleteFilter removes a user filter.
func (e *Engine) DeleteFilter(ctx context.Context, id string) error {
	if IsDefaultID(id) {
		return ErrDefaultFilter
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e.user = slices.Delete(e.user, i, i+1)
	return e.persistLocked(ctx)
}

func (e *Engine) indexLocked(id string) int {
	return slices.IndexFunc(e.user, func(f SavedFilter) bool { return f.ID == id })
}

// persistLocked writes the user filters. The in-memory change stands even
// when the write fails.
func (e *Engine) persistLocked(ctx context.Context) error {
	user := e.user
	if user == nil {
		user = []SavedFilter{}
	}
	if err := storage.SaveJSON(ctx, e.kv, storage.KeySavedFilters, user); err != nil {
		e.logger.Warnw("Failed to persist saved filters", "error", err)
		return fmt.Errorf("persisting saved filters: %w", err)
	}
	return nil
}
