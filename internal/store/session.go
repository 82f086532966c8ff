package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"difendimi.live/intake/internal/model"
)

const sessionKeyPrefix = "intake:session:"

// releaseLockScript deletes the lock only if it still holds our token, so a
// request whose lock expired cannot release someone else's.
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSessionStore keeps sessions as JSON values with a sliding TTL.
type RedisSessionStore struct {
	client  redis.Cmdable
	ttl     time.Duration
	lockTTL time.Duration
}

func NewRedisSessionStore(client redis.Cmdable, ttl, lockTTL time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl, lockTTL: lockTTL}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func sessionLockKey(id string) string {
	return sessionKeyPrefix + id + ":lock"
}

func (s *RedisSessionStore) Save(ctx context.Context, sess model.IntakeSession) error {
	data, err := encodeSession(sess)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, sessionKey(sess.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("saving session %s: %w", sess.ID, err)
	}
	return nil
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) (model.IntakeSession, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.IntakeSession{}, ErrNotFound
		}
		return model.IntakeSession{}, fmt.Errorf("loading session %s: %w", id, err)
	}
	return decodeSession(data)
}

func (s *RedisSessionStore) Lock(ctx context.Context, id string) (Unlock, error) {
	token := uuid.NewString()
	key := sessionLockKey(id)

	ok, err := s.client.SetNX(ctx, key, token, s.lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("locking session %s: %w", id, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	return func(ctx context.Context) error {
		if err := releaseLockScript.Run(ctx, s.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("unlocking session %s: %w", id, err)
		}
		return nil
	}, nil
}

func encodeSession(sess model.IntakeSession) ([]byte, error) {
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("encoding session %s: %w", sess.ID, err)
	}
	return data, nil
}

func decodeSession(data []byte) (model.IntakeSession, error) {
	var sess model.IntakeSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return model.IntakeSession{}, fmt.Errorf("decoding session: %w", err)
	}
	return sess, nil
}

// MemorySessionStore is a SessionStore for a single process.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
	locks    map[string]string
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string][]byte),
		locks:    make(map[string]string),
	}
}

// Save stores an encoded copy so callers never share slices with the store.
func (s *MemorySessionStore) Save(_ context.Context, sess model.IntakeSession) error {
	data, err := encodeSession(sess)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = data
	return nil
}

func (s *MemorySessionStore) Get(_ context.Context, id string) (model.IntakeSession, error) {
	s.mu.Lock()
	data, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return model.IntakeSession{}, ErrNotFound
	}
	return decodeSession(data)
}

func (s *MemorySessionStore) Lock(_ context.Context, id string) (Unlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, held := s.locks[id]; held {
		return nil, ErrLocked
	}
	token := uuid.NewString()
	s.locks[id] = token

	return func(context.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.locks[id] == token {
			delete(s.locks, id)
		}
		return nil
	}, nil
}
