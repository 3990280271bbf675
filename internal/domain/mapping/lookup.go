package mapping

import (
	"context"
	"errors"

	"github.com/retailops/backend/internal/domain/sync"
)

// ErrLookupMiss reports that a lookup transform found no counterpart for the
// foreign entity and no fallback applied.
var ErrLookupMiss = errors.New("mapping: lookup found no target counterpart")

// LookupResolver resolves a foreign entity's target-platform id during a
// transform. Implementations consult the cross-system reference store and
// may create the missing dependency first; the resolver is the only point
// where the mapping engine can recurse into another entity's sync.
type LookupResolver interface {
	// ResolveReference resolves the target id for a foreign entity
	// identified by its source-platform id
	ResolveReference(ctx context.Context, entityType sync.EntityType, sourceID string) (string, error)

	// ResolveNaturalKey resolves the target id for a foreign entity
	// identified by a natural key such as email or SKU
	ResolveNaturalKey(ctx context.Context, entityType sync.EntityType, key, value string) (string, error)
}
