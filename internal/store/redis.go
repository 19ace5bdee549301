package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nao1215/fairhire/internal/model"
)

// scanCount is the COUNT hint passed to SCAN.
const scanCount = 100

// RedisStore keeps records in Redis using SET with expiry, GET and SCAN.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps an existing client. The store owns the client and
// closes it in Close.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// OpenRedis connects to the Redis server at url (redis://[:password@]host:port/db)
// and checks the connection with PING.
func OpenRedis(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}
	return NewRedisStore(client), nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, id string, rec *model.AuditRecord, ttl time.Duration) error {
	data, err := Encode(id, rec)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, Key(id), data, EffectiveTTL(ttl)).Err(); err != nil {
		return fmt.Errorf("failed to store audit %s: %w", id, err)
	}
	return nil
}

// Recall implements Store.
func (s *RedisStore) Recall(ctx context.Context, id string) (*model.AuditRecord, bool, error) {
	if id == "" {
		return nil, false, ErrEmptyID
	}

	data, err := s.client.Get(ctx, Key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to recall audit %s: %w", id, err)
	}

	rec, err := Decode(data)
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// ListIDs implements Store. It iterates with SCAN so large keyspaces do not
// block the server.
func (s *RedisStore) ListIDs(ctx context.Context, prefix string) ([]string, error) {
	pattern := escapeGlob(KeyPrefix(prefix)) + "*"

	var ids []string
	seen := make(map[string]struct{})
	iter := s.client.Scan(ctx, 0, pattern, scanCount).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		// SCAN may return a key more than once.
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		ids = append(ids, IDFromKey(key))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list audits: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, ErrEmptyID
	}
	n, err := s.client.Del(ctx, Key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete audit %s: %w", id, err)
	}
	return n > 0, nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// escapeGlob quotes the characters SCAN MATCH treats specially.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
