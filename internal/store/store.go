package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nao1215/fairhire/internal/model"
)

const (
	// Namespace prefixes every stored key.
	Namespace = "audit:"

	// DefaultTTL is how long records are kept when no TTL is given.
	DefaultTTL = 90 * 24 * time.Hour
)

var (
	// ErrIncompleteRecord is returned by Save for records that are not complete.
	ErrIncompleteRecord = errors.New("only complete audit records can be stored")

	// ErrEmptyID is returned when an operation is given an empty id.
	ErrEmptyID = errors.New("audit id must not be empty")

	// ErrNilRecord is returned by Save when the record is nil.
	ErrNilRecord = errors.New("audit record must not be nil")
)

// Store is the result store contract.
// Implementations must be safe for concurrent use; every method is atomic
// on its own.
type Store interface {
	// Save writes rec under id with the given TTL, replacing any previous value.
	Save(ctx context.Context, id string, rec *model.AuditRecord, ttl time.Duration) error

	// Recall returns the record stored under id. found is false when the id
	// was never written or has expired.
	Recall(ctx context.Context, id string) (rec *model.AuditRecord, found bool, err error)

	// ListIDs returns the ids whose key starts with prefix. Order is unspecified.
	ListIDs(ctx context.Context, prefix string) ([]string, error)

	// Delete removes id and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)

	// Close releases backend resources.
	Close() error
}

// Purger is implemented by backends that keep expired records around
// until they are explicitly removed.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// PurgeExpired purges s, or the first store it wraps, when that store is a
// Purger. Backends that expire keys on their own report zero.
func PurgeExpired(ctx context.Context, s Store) (int64, error) {
	for s != nil {
		if p, ok := s.(Purger); ok {
			return p.PurgeExpired(ctx)
		}
		u, ok := s.(interface{ Unwrap() Store })
		if !ok {
			break
		}
		s = u.Unwrap()
	}
	return 0, nil
}

// Key returns the namespaced key for id.
func Key(id string) string {
	return Namespace + id
}

// IDFromKey strips the namespace from key.
func IDFromKey(key string) string {
	return strings.TrimPrefix(key, Namespace)
}

// KeyPrefix turns a ListIDs prefix into a key prefix. A prefix that already
// starts with the namespace is used as is; anything else is read as an id
// prefix.
func KeyPrefix(prefix string) string {
	if strings.HasPrefix(prefix, Namespace) {
		return prefix
	}
	return Namespace + prefix
}

// EffectiveTTL returns ttl, or DefaultTTL when ttl is not positive.
func EffectiveTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}

// Encode validates rec and serialises it with id as its ID.
func Encode(id string, rec *model.AuditRecord) ([]byte, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	if rec == nil {
		return nil, ErrNilRecord
	}
	if !rec.IsComplete() {
		return nil, fmt.Errorf("%w: status is %q", ErrIncompleteRecord, rec.Status)
	}

	cp := rec.Clone()
	cp.ID = id
	cp.PredictFn = nil
	data, err := json.Marshal(cp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode audit %s: %w", id, err)
	}
	return data, nil
}

// Decode deserialises a stored record.
func Decode(data []byte) (*model.AuditRecord, error) {
	var rec model.AuditRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode audit record: %w", err)
	}
	return &rec, nil
}
