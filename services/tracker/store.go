package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
)

// persistedState is the serialized form of the tracker's cache: the tracked
// countdowns plus the handled-expiry set that stops stale AddTimeout calls
// from resurrecting resolved sessions.
type persistedState struct {
	Records map[string]Record `json:"records"`
	Handled []string          `json:"handled"`
}

// Store persists tracker state across restarts. The cache is best-effort;
// losing it only costs a reconciliation round-trip.
type Store interface {
	Load(ctx context.Context) (map[string]Record, map[string]struct{}, error)
	Save(ctx context.Context, records map[string]Record, handled map[string]struct{}) error
}

// MemoryStore keeps state in-process; used in tests and as the fallback when
// no Redis is configured.
type MemoryStore struct {
	mu    sync.Mutex
	state persistedState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) (map[string]Record, map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneState(m.state)
}

func (m *MemoryStore) Save(_ context.Context, records map[string]Record, handled map[string]struct{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = snapshotState(records, handled)
	return nil
}

// RedisStore persists tracker state as a single JSON blob.
type RedisStore struct {
	Client *redis.Client
	Key    string
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = "tracker:state"
	}
	return &RedisStore{Client: client, Key: key}
}

func (r *RedisStore) Load(ctx context.Context) (map[string]Record, map[string]struct{}, error) {
	raw, err := r.Client.Get(ctx, r.Key).Result()
	if err == redis.Nil {
		return map[string]Record{}, map[string]struct{}{}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("tracker store load: %w", err)
	}

	var state persistedState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, nil, fmt.Errorf("tracker store decode: %w", err)
	}
	return cloneState(state)
}

func (r *RedisStore) Save(ctx context.Context, records map[string]Record, handled map[string]struct{}) error {
	data, err := json.Marshal(snapshotState(records, handled))
	if err != nil {
		return fmt.Errorf("tracker store encode: %w", err)
	}
	if err := r.Client.Set(ctx, r.Key, data, 0).Err(); err != nil {
		return fmt.Errorf("tracker store save: %w", err)
	}
	return nil
}

func snapshotState(records map[string]Record, handled map[string]struct{}) persistedState {
	state := persistedState{Records: make(map[string]Record, len(records))}
	for k, v := range records {
		state.Records[k] = v
	}
	for k := range handled {
		state.Handled = append(state.Handled, k)
	}
	return state
}

func cloneState(state persistedState) (map[string]Record, map[string]struct{}, error) {
	records := make(map[string]Record, len(state.Records))
	for k, v := range state.Records {
		records[k] = v
	}
	handled := make(map[string]struct{}, len(state.Handled))
	for _, k := range state.Handled {
		handled[k] = struct{}{}
	}
	return records, handled, nil
}
