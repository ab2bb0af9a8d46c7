// Package claims persists the reimbursement claim collection as one JSON
// array blob under a single key of a kv.Store.
//
// Every mutation reads the full collection, transforms it in memory and
// writes the full collection back. The collection is small and the store has
// a single process as writer, so there is no partial persistence format.
package claims

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"reimburse/internal/core"
	"reimburse/internal/kv"
)

// DefaultKey is the storage key the collection lives under.
const DefaultKey = "@reimbursement_data"

// Observer receives store events for metrics. Any method may be a no-op.
type Observer interface {
	StoreOperation(op string, err error)
	StoreFallback(reason string)
}

type Store struct {
	kv       kv.Store
	key      string
	now      func() time.Time
	logger   *slog.Logger
	observer Observer

	// Serializes read-modify-write cycles within this process.
	mu sync.Mutex
}

type Option func(*Store)

// WithKey overrides DefaultKey.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

func New(store kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:     store,
		key:    DefaultKey,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the storage key in use.
func (s *Store) Key() string {
	return s.key
}

// GetAll returns the collection in persisted order, newest first.
//
// An absent blob is seeded with core.DefaultClaims and the defaults are
// returned. An unreadable or corrupt blob yields the defaults without
// persisting them; no error is surfaced to the caller.
func (s *Store) GetAll(ctx context.Context) []core.Claim {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.kv.Get(ctx, s.key)
	switch {
	case errors.Is(err, kv.ErrNotFound):
		defaults := core.DefaultClaims()
		if werr := s.write(ctx, "seed", defaults); werr != nil {
			s.logger.WarnContext(ctx, "Failed to seed default claims", "error", werr)
			s.fallback("seed_failed")
		}
		return defaults
	case err != nil:
		s.logger.WarnContext(ctx, "Failed to read claims, using defaults", "error", err)
		s.fallback("read_failed")
		return core.DefaultClaims()
	}

	items, err := decode(raw)
	if err != nil {
		s.logger.WarnContext(ctx, "Stored claims are corrupt, using defaults", "error", err)
		s.fallback("corrupt")
		return core.DefaultClaims()
	}
	s.observe("get_all", nil)
	return items
}

// ReplaceAll overwrites the stored collection.
func (s *Store) ReplaceAll(ctx context.Context, items []core.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(ctx, "replace_all", items)
}

// Add creates a pending claim from fields, prepends it and persists the
// collection.
func (s *Store) Add(ctx context.Context, fields core.ClaimFields) (core.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return core.Claim{}, err
	}

	now := s.now()
	c := core.Claim{
		ID:        s.newID(now, items),
		Title:     fields.Title,
		Amount:    fields.Amount,
		Date:      fields.Date,
		Status:    core.StatusPending,
		Type:      fields.Type,
		Detail:    fields.Detail,
		CreatedAt: core.FormatCreatedAt(now),
	}

	updated := make([]core.Claim, 0, len(items)+1)
	updated = append(updated, c)
	updated = append(updated, items...)
	if err := s.write(ctx, "add", updated); err != nil {
		return core.Claim{}, err
	}

	s.logger.InfoContext(ctx, "Claim added", "id", c.ID, "type", c.Type)
	return c, nil
}

// Update merges patch into the claim with the given id. An unknown id
// leaves storage untouched.
func (s *Store) Update(ctx context.Context, id string, patch core.ClaimPatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return err
	}

	found := false
	for i := range items {
		if items[i].ID == id {
			items[i] = patch.Apply(items[i])
			found = true
		}
	}
	if !found {
		s.logger.DebugContext(ctx, "Update skipped, no claim with id", "id", id)
		return nil
	}
	return s.write(ctx, "update", items)
}

// Remove deletes the claim with the given id. An unknown id leaves storage
// untouched.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return err
	}

	kept := items[:0]
	for _, c := range items {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(items) {
		s.logger.DebugContext(ctx, "Remove skipped, no claim with id", "id", id)
		return nil
	}
	return s.write(ctx, "remove", kept)
}

// Get returns a single claim by id.
func (s *Store) Get(ctx context.Context, id string) (core.Claim, bool) {
	for _, c := range s.GetAll(ctx) {
		if c.ID == id {
			return c, true
		}
	}
	return core.Claim{}, false
}

// Clear deletes the blob; the next GetAll reseeds the defaults.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.kv.Remove(ctx, s.key)
	s.observe("clear", err)
	if err != nil {
		return &core.PersistenceError{Op: "clear", Err: err}
	}
	return nil
}

// ResetToDefault overwrites the collection with the built-in defaults.
func (s *Store) ResetToDefault(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(ctx, "reset", core.DefaultClaims())
}

// load is the strict read used by mutations: an absent blob means the
// defaults, any read or decode failure is a PersistenceError.
func (s *Store) load(ctx context.Context) ([]core.Claim, error) {
	raw, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, kv.ErrNotFound) {
		return core.DefaultClaims(), nil
	}
	if err != nil {
		s.observe("read", err)
		return nil, &core.PersistenceError{Op: "read", Err: err}
	}
	items, err := decode(raw)
	if err != nil {
		s.observe("read", err)
		return nil, &core.PersistenceError{Op: "read", Err: err}
	}
	return items, nil
}

func (s *Store) write(ctx context.Context, op string, items []core.Claim) error {
	raw, err := encode(items)
	if err == nil {
		err = s.kv.Set(ctx, s.key, raw)
	}
	s.observe(op, err)
	if err != nil {
		return &core.PersistenceError{Op: op, Err: err}
	}
	return nil
}

func (s *Store) newID(now time.Time, existing []core.Claim) string {
	taken := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		taken[c.ID] = struct{}{}
	}
	for {
		id := core.NewID(now)
		if _, dup := taken[id]; !dup {
			return id
		}
	}
}

func (s *Store) observe(op string, err error) {
	if s.observer != nil {
		s.observer.StoreOperation(op, err)
	}
}

func (s *Store) fallback(reason string) {
	if s.observer != nil {
		s.observer.StoreFallback(reason)
	}
}

func encode(items []core.Claim) (string, error) {
	if items == nil {
		items = []core.Claim{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode claims: %w", err)
	}
	return string(b), nil
}

func decode(raw string) ([]core.Claim, error) {
	var items []core.Claim
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrCorruptData, err)
	}
	if items == nil {
		// "null" is valid JSON but not a collection.
		return nil, core.ErrCorruptData
	}
	return items, nil
}
