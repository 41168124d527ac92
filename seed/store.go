package seed

import (
	"context"
	"sort"
	"sync"

	"github.com/c360/insight/analytics"
	"github.com/c360/insight/errors"
)

// MemoryStore is a mutex-guarded in-memory datastore. It backs local runs
// and demos where no external record store exists, and doubles as the
// write target for the seeder.
type MemoryStore struct {
	mu       sync.RWMutex
	entities []analytics.Entity
	records  map[string][]analytics.Record
}

// Interface guard: the store must satisfy the orchestrator's read contract.
var _ analytics.Datastore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string][]analytics.Record),
	}
}

// AddEntity registers an entity. Re-adding an existing id updates its name
// without touching records.
func (s *MemoryStore) AddEntity(entity analytics.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.entities {
		if existing.ID == entity.ID {
			s.entities[i].Name = entity.Name
			return
		}
	}
	s.entities = append(s.entities, entity)
	if _, ok := s.records[entity.ID]; !ok {
		s.records[entity.ID] = nil
	}
}

// AddRecords appends records for a registered entity. Records for unknown
// entities are dropped; register the entity first.
func (s *MemoryStore) AddRecords(entityID string, records ...analytics.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[entityID]; !ok {
		return
	}
	s.records[entityID] = append(s.records[entityID], records...)
}

// GetEntities returns a copy of the registered entities.
func (s *MemoryStore) GetEntities(_ context.Context) ([]analytics.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entities := make([]analytics.Entity, len(s.entities))
	copy(entities, s.entities)
	return entities, nil
}

// GetRecordsForEntity returns the entity's records oldest first. An unknown
// entity id fails with a not-found error; a registered entity with zero
// records returns an empty slice.
func (s *MemoryStore) GetRecordsForEntity(_ context.Context, entityID string) ([]analytics.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.records[entityID]
	if !ok {
		return nil, errors.NotFound(entityID, "seed", "GetRecordsForEntity")
	}

	records := make([]analytics.Record, len(stored))
	copy(records, stored)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
	return records, nil
}

// EntityCount reports how many entities are registered.
func (s *MemoryStore) EntityCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}
