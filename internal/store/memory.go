package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/agenthands/evidence/internal/core/model"
)

// MemoryStore keeps everything in process memory. It backs tests and
// embedded callers that run the pipeline without a database.
type MemoryStore struct {
	mu      sync.RWMutex
	sources map[string]model.Source
	units   map[string][]model.EvidenceUnit // keyed by source uuid
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sources: make(map[string]model.Source),
		units:   make(map[string][]model.EvidenceUnit),
	}
}

func (s *MemoryStore) SaveSource(ctx context.Context, source model.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[source.UUID] = source
	return nil
}

func (s *MemoryStore) SaveUnits(ctx context.Context, units []model.EvidenceUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range units {
		s.units[u.SourceUUID] = append(s.units[u.SourceUUID], u)
	}
	return nil
}

func (s *MemoryStore) GetSource(ctx context.Context, uuid string) (*model.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.sources[uuid]
	if !ok {
		return nil, fmt.Errorf("source %s not found", uuid)
	}
	return &src, nil
}

func (s *MemoryStore) GetUnitsBySource(ctx context.Context, sourceUUID string) ([]model.EvidenceUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	units := make([]model.EvidenceUnit, len(s.units[sourceUUID]))
	copy(units, s.units[sourceUUID])
	return units, nil
}

func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}
