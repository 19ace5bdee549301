package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/fairhire/internal/clock"
	"github.com/nao1215/fairhire/internal/model"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	clock   clock.Clock
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryClock sets the clock used for expiry.
func WithMemoryClock(c clock.Clock) MemoryOption {
	return func(s *MemoryStore) {
		s.clock = c
	}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]memoryEntry),
		clock:   clock.RealClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, id string, rec *model.AuditRecord, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(id, rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[Key(id)] = memoryEntry{
		data:      data,
		expiresAt: s.clock.Now().Add(EffectiveTTL(ttl)),
	}
	return nil
}

// Recall implements Store.
func (s *MemoryStore) Recall(ctx context.Context, id string) (*model.AuditRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if id == "" {
		return nil, false, ErrEmptyID
	}

	s.mu.RLock()
	e, ok := s.entries[Key(id)]
	s.mu.RUnlock()
	if !ok || !s.live(e) {
		return nil, false, nil
	}

	rec, err := Decode(e.data)
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// ListIDs implements Store.
func (s *MemoryStore) ListIDs(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	kp := KeyPrefix(prefix)

	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.entries))
	for k, e := range s.entries {
		if strings.HasPrefix(k, kp) && s.live(e) {
			ids = append(ids, IDFromKey(k))
		}
	}
	return ids, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if id == "" {
		return false, ErrEmptyID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[Key(id)]
	delete(s.entries, Key(id))
	return ok && s.live(e), nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) live(e memoryEntry) bool {
	return s.clock.Now().Before(e.expiresAt)
}

// PurgeExpired drops expired entries and returns how many were removed.
func (s *MemoryStore) PurgeExpired(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, e := range s.entries {
		if !s.live(e) {
			delete(s.entries, k)
			n++
		}
	}
	return n, nil
}
