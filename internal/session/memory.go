package session

import (
	"context"
	"sync"
)

// Memory implements Store in process memory. Used by tests and as the
// fallback when neither Redis nor Postgres is configured.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Save(ctx context.Context, key string, s Session) error {
	data, err := encode(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	return nil
}

func (m *Memory) Load(ctx context.Context, key string) (Session, bool, error) {
	m.mu.RLock()
	data, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return Session{}, false, nil
	}
	s, ok := decodeOrEmpty(ctx, key, data)
	return s, ok, nil
}

func (m *Memory) Clear(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// putRaw seeds an arbitrary record, bypassing encoding. Test hook for
// corruption scenarios.
func (m *Memory) putRaw(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
}
