package draft

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "strideup:draft:"

var ErrNotFound = errors.New("draft not found")

// Store is a consume-once keyed table: every draft can be taken exactly
// once before it expires. It lives in Redis when a client is configured and
// in process memory otherwise.
type Store struct {
	redis *redis.Client
	ttl   time.Duration
	now   func() time.Time

	mu    sync.Mutex
	items map[string]entry
}

type entry struct {
	payload []byte
	expires time.Time
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{
		redis: client,
		ttl:   ttl,
		now:   time.Now,
		items: map[string]entry{},
	}
}

func (s *Store) Put(ctx context.Context, payload []byte) (string, error) {
	id := uuid.NewString()
	if err := s.set(ctx, id, payload); err != nil {
		return "", err
	}
	return id, nil
}

// Restore puts a taken draft back under its id with a fresh TTL.
func (s *Store) Restore(ctx context.Context, id string, payload []byte) error {
	return s.set(ctx, id, payload)
}

func (s *Store) set(ctx context.Context, id string, payload []byte) error {
	if s.redis != nil {
		if err := s.redis.Set(ctx, keyPrefix+id, payload, s.ttl).Err(); err != nil {
			return fmt.Errorf("store draft: %w", err)
		}
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpired()
	var expires time.Time
	if s.ttl > 0 {
		expires = s.now().Add(s.ttl)
	}
	s.items[id] = entry{payload: append([]byte(nil), payload...), expires: expires}
	return nil
}

// Take returns the draft and removes it.
func (s *Store) Take(ctx context.Context, id string) ([]byte, error) {
	if s.redis != nil {
		payload, err := s.redis.GetDel(ctx, keyPrefix+id).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("take draft: %w", err)
		}
		return payload, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.items, id)
	if s.expired(e) {
		return nil, ErrNotFound
	}
	return e.payload, nil
}

// evictExpired must be called with s.mu held.
func (s *Store) evictExpired() {
	for id, e := range s.items {
		if s.expired(e) {
			delete(s.items, id)
		}
	}
}

func (s *Store) expired(e entry) bool {
	return !e.expires.IsZero() && !s.now().Before(e.expires)
}
