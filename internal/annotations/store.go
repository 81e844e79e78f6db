package annotations

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nixlim/ids-top/internal/alerts"
	"github.com/nixlim/ids-top/internal/logging"
	"github.com/nixlim/ids-top/internal/storage"
)

// Repository resolves and records alert annotations.
type Repository interface {
	SetStatus(ctx context.Context, a alerts.Alert, status Status, notes string) error
	Status(a alerts.Alert) Status
	Get(a alerts.Alert) (Annotation, bool)
	ClearAll(ctx context.Context) error
	All() map[string]Annotation
}

// Store is the Repository backed by a storage.KV. The in-memory map is
// authoritative; the whole map is rewritten on every mutation.
type Store struct {
	mu     sync.RWMutex
	items  map[string]Annotation
	kv     storage.KV
	keyFn  KeyFunc
	logger *zap.SugaredLogger
	now    func() time.Time
}

var _ Repository = (*Store)(nil)

type StoreOption func(*Store)

// WithClock sets the clock used for AcknowledgedAt.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore loads persisted annotations from kv. A missing or unreadable
// value yields an empty store; the read error is logged, not returned.
func NewStore(ctx context.Context, kv storage.KV, keyFn KeyFunc, logger *zap.SugaredLogger, opts ...StoreOption) *Store {
	if keyFn == nil {
		keyFn = ClassKey
	}
	s := &Store{
		items:  make(map[string]Annotation),
		kv:     kv,
		keyFn:  keyFn,
		logger: logging.OrNop(logger),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	var loaded map[string]Annotation
	err := storage.LoadJSON(ctx, kv, storage.KeyAnnotations, &loaded)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		s.logger.Warnw("Failed to load annotations, starting empty", "error", err)
	default:
		for key, ann := range loaded {
			if !ann.Status.Valid() {
				s.logger.Warnw("Dropping stored annotation with unknown status", "key", key, "status", ann.Status)
				continue
			}
			s.items[key] = ann
		}
	}
	return s
}

// SetStatus records status for the annotation key of a. The in-memory
// record is updated even when persisting fails; the persistence error is
// returned.
func (s *Store) SetStatus(ctx context.Context, a alerts.Alert, status Status, notes string) error {
	ann := Annotation{
		AlertID:        a.ID,
		Status:         status,
		AcknowledgedAt: s.now(),
		Notes:          notes,
	}
	if err := validate.Struct(ann); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidStatus, status, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[s.keyFn(a)] = ann
	return s.persistLocked(ctx)
}

// Status returns the status for a, or StatusNew when it has no annotation.
func (s *Store) Status(a alerts.Alert) Status {
	if ann, ok := s.Get(a); ok {
		return ann.Status
	}
	return StatusNew
}

func (s *Store) Get(a alerts.Alert) (Annotation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ann, ok := s.items[s.keyFn(a)]
	return ann, ok
}

// ClearAll removes every annotation.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.items)
	if err := s.kv.Delete(ctx, storage.KeyAnnotations); err != nil {
		s.logger.Warnw("Failed to clear persisted annotations", "error", err)
		return fmt.Errorf("clearing annotations: %w", err)
	}
	return nil
}

// All returns a copy of every annotation keyed by annotation key.
func (s *Store) All() map[string]Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.items)
}

// Len returns the number of stored annotations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) persistLocked(ctx context.Context) error {
	if err := storage.SaveJSON(ctx, s.kv, storage.KeyAnnotations, s.items); err != nil {
		s.logger.Warnw("Failed to persist annotations", "error", err)
		return fmt.Errorf("persisting annotations: %w", err)
	}
	return nil
}
