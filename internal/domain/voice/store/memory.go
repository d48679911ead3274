package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"voiceprint-server-go/internal/domain/voice/aggregate"
)

type memoryStore struct {
	items map[string]*aggregate.BiometricRecord
	mutex sync.RWMutex
}

// NewMemory builds an in-memory template store.
func NewMemory() Store {
	return &memoryStore{items: make(map[string]*aggregate.BiometricRecord)}
}

func (s *memoryStore) Get(_ context.Context, userID string) (*aggregate.BiometricRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.items[userID].Clone(), nil
}

func (s *memoryStore) Save(_ context.Context, rec *aggregate.BiometricRecord) error {
	if rec == nil || rec.UserID == "" {
		return fmt.Errorf("user id required")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	var current int64
	if existing, ok := s.items[rec.UserID]; ok {
		current = existing.Version
	}
	if current != rec.Version {
		return ErrVersionConflict
	}

	stored := rec.Clone()
	stored.Version = rec.Version + 1
	s.items[rec.UserID] = stored
	rec.Version = stored.Version
	return nil
}

func (s *memoryStore) ListEnrolled(_ context.Context, scope aggregate.Scope) ([]*aggregate.BiometricRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make([]*aggregate.BiometricRecord, 0)
	for _, rec := range s.items {
		if rec.Enrolled() && scope.Allows(rec) {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *memoryStore) Stats(context.Context) (map[string]any, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	enrolled := 0
	for _, rec := range s.items {
		if rec.Enrolled() {
			enrolled++
		}
	}
	return map[string]any{
		"type":     DriverMemory,
		"total":    len(s.items),
		"enrolled": enrolled,
	}, nil
}

func (s *memoryStore) Close(context.Context) error {
	return nil
}
