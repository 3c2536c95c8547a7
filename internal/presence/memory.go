package presence

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu     sync.RWMutex
	online map[string]struct{}
}

func NewMemory() *MemoryStore {
	return &MemoryStore{online: make(map[string]struct{})}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) SetOnline(ctx context.Context, userID string, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if online {
		s.online[userID] = struct{}{}
	} else {
		delete(s.online, userID)
	}
	return nil
}

func (s *MemoryStore) CountOnline(ctx context.Context, userIDs []string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, id := range userIDs {
		if _, ok := s.online[id]; ok {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.online = make(map[string]struct{})
	return nil
}
