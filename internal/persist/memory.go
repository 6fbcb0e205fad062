package persist

import "sync"

// Memory is an in-process Backend. It survives store reconstruction but not
// process exit.
type Memory struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]string)}
}

func (m *Memory) GetItem(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *Memory) SetItem(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}
