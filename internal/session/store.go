package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	rredis "onboarding-service/pkg/redis"
)

// ErrLocked is returned by TryLock when another holder owns the key.
var ErrLocked = errors.New("session: operation already in progress")

// Hash keys of the stored state. Writes name the keys they change.
const (
	KeyRole     = "role"
	KeyName     = "name"
	KeyAge      = "age"
	KeyGender   = "gender"
	KeyLocation = "location"
)

// State is the per-user screen state that outlives a single request: the
// role selection and the details draft.
type State struct {
	Role     string
	Name     string
	Age      string
	Gender   string
	Location string
}

func (s *State) set(key, v string) {
	switch key {
	case KeyRole:
		s.Role = v
	case KeyName:
		s.Name = v
	case KeyAge:
		s.Age = v
	case KeyGender:
		s.Gender = v
	case KeyLocation:
		s.Location = v
	}
}

func fromHash(h map[string]string) State {
	var st State
	for k, v := range h {
		st.set(k, v)
	}
	return st
}

// Store persists screen state per user and guards single-flight operations.
type Store interface {
	Load(ctx context.Context, userID string) (State, error)
	// Set writes only the named keys, so concurrent edits of different
	// fields do not overwrite each other.
	Set(ctx context.Context, userID string, fields map[string]string) error
	// TryLock returns ErrLocked when name is already held for userID.
	// The returned token must be passed to Unlock.
	TryLock(ctx context.Context, userID, name string) (string, error)
	Unlock(ctx context.Context, userID, name, token string) error
}

// ---- Redis ----

// RedisStore keeps state in a Redis hash per user.
type RedisStore struct {
	redis   *rredis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(c *rredis.Client, ttl, lockTTL time.Duration) *RedisStore {
	return &RedisStore{redis: c, ttl: ttl, lockTTL: lockTTL}
}

func stateKey(userID string) string      { return "onboarding:state:" + userID }
func lockKey(userID, name string) string { return "onboarding:lock:" + userID + ":" + name }

func (s *RedisStore) Load(ctx context.Context, userID string) (State, error) {
	h, err := s.redis.LoadHash(ctx, stateKey(userID))
	if err != nil {
		return State{}, err
	}
	return fromHash(h), nil
}

func (s *RedisStore) Set(ctx context.Context, userID string, fields map[string]string) error {
	return s.redis.SetHashFields(ctx, stateKey(userID), fields, s.ttl)
}

func (s *RedisStore) TryLock(ctx context.Context, userID, name string) (string, error) {
	token := uuid.NewString()
	ok, err := s.redis.TryLock(ctx, lockKey(userID, name), token, s.lockTTL)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrLocked
	}
	return token, nil
}

func (s *RedisStore) Unlock(ctx context.Context, userID, name, token string) error {
	return s.redis.Unlock(ctx, lockKey(userID, name), token)
}

// ---- Memory ----

// MemoryStore keeps state in process. Used for single-instance dev runs and tests.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]State
	locks  map[string]string
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State), locks: make(map[string]string)}
}

func (m *MemoryStore) Load(_ context.Context, userID string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[userID], nil
}

func (m *MemoryStore) Set(_ context.Context, userID string, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.states[userID]
	for k, v := range fields {
		st.set(k, v)
	}
	m.states[userID] = st
	return nil
}

func (m *MemoryStore) TryLock(_ context.Context, userID, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := lockKey(userID, name)
	if _, held := m.locks[k]; held {
		return "", ErrLocked
	}
	token := uuid.NewString()
	m.locks[k] = token
	return token, nil
}

func (m *MemoryStore) Unlock(_ context.Context, userID, name, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := lockKey(userID, name)
	if m.locks[k] == token {
		delete(m.locks, k)
	}
	return nil
}
