// Package todo implements the console's task/timer store: an in-memory todo
// collection with per-item countdown timers, persisted write-through to a
// keyed-blob store after every mutation.
package todo

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vavebg/ops-console/internal/blob"
	"github.com/vavebg/ops-console/internal/models"
)

// StorageKey is the blob key for the persisted todo collection
const StorageKey = "todos"

// Store owns the todo collection exclusively. All mutations go through its
// operations; nothing else touches the persisted representation.
type Store struct {
	mu     sync.Mutex
	items  []models.TodoItem
	blobs  blob.Store
	logger *zap.Logger
	newID  func() string
}

// NewStore creates a store backed by the given blob store. Call Load before
// serving operations.
func NewStore(blobs blob.Store, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		blobs:  blobs,
		logger: logger,
		newID:  uuid.NewString,
	}
}

// Load reads the persisted collection and sanitizes it. Malformed payloads
// are treated as empty; individual malformed entries are dropped or repaired.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.blobs.Get(ctx, StorageKey)
	if err != nil {
		if err != blob.ErrNotFound {
			s.logger.Warn("failed_to_load_todos", zap.Error(err))
		}
		s.items = nil
		return
	}

	s.items = sanitize(data)
	s.logger.Info("loaded_todos", zap.Int("count", len(s.items)))
}

// Add creates a new item with a fresh countdown. A text that trims to empty
// is a silent no-op; out-of-range levels are coerced to the minimum.
func (s *Store) Add(ctx context.Context, text string, priority, allocatedHours int) *models.TodoItem {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	if !models.ValidLevel(priority) {
		priority = models.MinLevel
	}
	if !models.ValidLevel(allocatedHours) {
		allocatedHours = models.MinLevel
	}

	item := models.TodoItem{
		ID:               s.newID(),
		Text:             trimmed,
		Priority:         priority,
		AllocatedHours:   allocatedHours,
		RemainingSeconds: allocatedHours * 3600,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
	s.persist(ctx)
	return &item
}

// ToggleDone flips the done flag. Marking an item done forces its timer off.
// Returns false if no item has the given id.
func (s *Store) ToggleDone(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		s.items[i].Done = !s.items[i].Done
		if s.items[i].Done {
			s.items[i].IsRunning = false
		}
		s.persist(ctx)
		return true
	}
	return false
}

// ToggleTimer flips the running flag. Done and expired items are left
// untouched. Returns false if no item has the given id.
func (s *Store) ToggleTimer(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		if s.items[i].Done || s.items[i].Expired() {
			return true
		}
		s.items[i].IsRunning = !s.items[i].IsRunning
		s.persist(ctx)
		return true
	}
	return false
}

// Remove deletes the item unconditionally. Returns false if no item has the
// given id.
func (s *Store) Remove(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		s.items = append(s.items[:i], s.items[i+1:]...)
		s.persist(ctx)
		return true
	}
	return false
}

// Tick advances every running timer by one second. A timer that reaches zero
// collapses straight to the expired sentinel in the same step; there is no
// visible zero tick. Items not running, done, or expired are left untouched.
func (s *Store) Tick(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for i := range s.items {
		item := &s.items[i]
		if item.Done || !item.IsRunning {
			continue
		}
		if item.RemainingSeconds <= 0 {
			if item.Expired() {
				continue
			}
			item.RemainingSeconds = models.RemainingExpired
			item.IsRunning = false
			changed = true
			continue
		}
		item.RemainingSeconds--
		if item.RemainingSeconds <= 0 {
			item.RemainingSeconds = models.RemainingExpired
			item.IsRunning = false
		}
		changed = true
	}

	if changed {
		s.persist(ctx)
	}
}

// StartTicker runs Tick once per second until the context is cancelled
func (s *Store) StartTicker(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Sorted returns a display-ordered copy of the collection: not-done before
// done, running before not-running, higher priority first, soonest-expiring
// first, ties broken by text. The stored order is never mutated.
func (s *Store) Sorted() []models.TodoItem {
	s.mu.Lock()
	out := make([]models.TodoItem, len(s.items))
	copy(out, s.items)
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Done != b.Done {
			return !a.Done
		}
		if a.IsRunning != b.IsRunning {
			return a.IsRunning
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.RemainingSeconds != b.RemainingSeconds {
			return a.RemainingSeconds < b.RemainingSeconds
		}
		return a.Text < b.Text
	})
	return out
}

// RunningCount returns the number of items with an active timer
func (s *Store) RunningCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for i := range s.items {
		if s.items[i].IsRunning && !s.items[i].Done {
			count++
		}
	}
	return count
}

// PendingCount returns the number of not-done items
func (s *Store) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for i := range s.items {
		if !s.items[i].Done {
			count++
		}
	}
	return count
}

// persist writes the full collection through to the blob store. Failures are
// logged and swallowed; the in-memory state stays authoritative for the
// session. Callers must hold the mutex.
func (s *Store) persist(ctx context.Context) {
	data, err := json.Marshal(s.items)
	if err != nil {
		s.logger.Warn("failed_to_marshal_todos", zap.Error(err))
		return
	}
	if err := s.blobs.Set(ctx, StorageKey, data); err != nil {
		s.logger.Warn("failed_to_persist_todos", zap.Error(err))
	}
}
