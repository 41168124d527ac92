package analytics

import "context"

// Datastore is the read interface to the entity record store. Raw
// time-series persistence lives outside this engine; the orchestrator only
// pulls.
//
// GetRecordsForEntity returns records ordered by timestamp ascending and
// must fail with errors.ErrEntityNotFound only when the entity id itself is
// unknown; an entity with zero records returns an empty slice, not an
// error.
type Datastore interface {
	// GetEntities lists all known entities.
	GetEntities(ctx context.Context) ([]Entity, error)

	// GetRecordsForEntity returns the entity's records, oldest first.
	GetRecordsForEntity(ctx context.Context, entityID string) ([]Record, error)
}
