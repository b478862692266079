// Package store keeps the id of the last used connector.
package store

import (
	"context"
	"sync"
)

// Memory keeps the choice for the life of the process.
type Memory struct {
	mu sync.Mutex
	id string
	ok bool
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(context.Context) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id, m.ok, nil
}

func (m *Memory) Save(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id, m.ok = id, true
	return nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id, m.ok = "", false
	return nil
}
