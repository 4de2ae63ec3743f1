package memory

import (
	"context"
	"sync"

	"room-editor/backend/internal/core/port/out/storage"
)

// SlotStore хранит слоты в памяти процесса
type SlotStore struct {
	slots map[string][]byte
	mu    sync.RWMutex
}

var _ storage.SlotStore = (*SlotStore)(nil)

func NewSlotStore() *SlotStore {
	return &SlotStore{slots: make(map[string][]byte)}
}

func (s *SlotStore) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[key] = append([]byte(nil), value...)
	return nil
}

func (s *SlotStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.slots[key]
	if !ok {
		return nil, storage.ErrSlotNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *SlotStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, key)
	return nil
}
