package sync

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appmapping "github.com/retailops/backend/internal/application/mapping"
	"github.com/retailops/backend/internal/domain/mapping"
	"github.com/retailops/backend/internal/domain/sync"
	"github.com/retailops/backend/internal/infrastructure/logger"
)

// maxDependencyDepth bounds recursive dependency creation. The static
// topological order keeps real chains short; hitting the bound means a
// mapping slipped past cycle validation.
const maxDependencyDepth = 4

// Outcome classifies the result of one entity's pipeline.
type Outcome string

const (
	OutcomeCreated   Outcome = "CREATED"
	OutcomeUpdated   Outcome = "UPDATED"
	OutcomeSkipped   Outcome = "SKIPPED"
	OutcomeConflict  Outcome = "CONFLICT"
	OutcomePreviewed Outcome = "PREVIEWED"
)

// ChangePreview is the dry-run substitute for a write.
type ChangePreview struct {
	EntityID   string          `json:"entity_id"`
	EntityType sync.EntityType `json:"entity_type"`
	// Action is "create", "update" or "skip"
	Action        string         `json:"action"`
	TargetPayload map[string]any `json:"target_payload,omitempty"`
	Warnings      []string       `json:"warnings,omitempty"`
}

// EntityResult aggregates one entity's outcome for the orchestrator.
type EntityResult struct {
	Outcome Outcome
	// DependenciesCreated counts dependencies created while resolving
	// lookups for this entity
	DependenciesCreated int
	// Preview is set for dry runs
	Preview *ChangePreview
}

// FlowAdapter drives one entity through the sync pipeline:
// fetched -> transformed -> dependencies resolved -> written -> reference
// recorded, with entity-scoped failure at every step. One adapter serves
// every route; the route and entity type arrive with each call.
type FlowAdapter struct {
	mappings  mapping.Repository
	engine    *appmapping.Engine
	refs      sync.ReferenceRepository
	clients   sync.PlatformClientRegistry
	direction *DirectionController
	logger    *zap.Logger

	// depLocks serializes dependency creation per dependency identity so
	// concurrent workers resolving the same missing parent create it once.
	// Striped to keep memory bounded regardless of entity volume.
	depLocks [64]gosync.Mutex
}

// NewFlowAdapter creates a flow adapter
func NewFlowAdapter(
	mappings mapping.Repository,
	engine *appmapping.Engine,
	refs sync.ReferenceRepository,
	clients sync.PlatformClientRegistry,
	direction *DirectionController,
	log *zap.Logger,
) *FlowAdapter {
	return &FlowAdapter{
		mappings:  mappings,
		engine:    engine,
		refs:      refs,
		clients:   clients,
		direction: direction,
		logger:    log,
	}
}

// SyncEntity runs the full pipeline for one fetched entity. Replaying the
// same entity after a crash never duplicates the target: the reference
// store is checked before every write and decides create versus update.
func (f *FlowAdapter) SyncEntity(ctx context.Context, tenantID uuid.UUID, route sync.Route, cfg *sync.EntitySyncConfig, raw *sync.RawEntity, dryRun bool) (EntityResult, error) {
	resolver := &flowResolver{
		adapter:  f,
		tenantID: tenantID,
		route:    route,
		dryRun:   dryRun,
	}

	payload, err := f.transform(ctx, tenantID, route, raw, resolver)
	if err != nil {
		return EntityResult{DependenciesCreated: resolver.created}, err
	}

	hash, err := sync.ContentHashOf(payload)
	if err != nil {
		return EntityResult{DependenciesCreated: resolver.created}, err
	}

	ref, err := f.findReference(ctx, tenantID, route, raw)
	if err != nil {
		return EntityResult{DependenciesCreated: resolver.created}, err
	}

	state := ChangeState{
		Reference:        ref,
		NewHash:          hash,
		SourceModifiedAt: raw.ModifiedAt,
		TargetModifiedAt: f.targetModifiedAt(ctx, tenantID, route, cfg, ref),
		SourceIsInternal: route.Source == sync.PlatformInternal,
	}
	decision, err := f.direction.ShouldSync(ctx, cfg, raw.ID, state)
	if err != nil {
		return EntityResult{DependenciesCreated: resolver.created}, err
	}

	switch decision {
	case DecisionSkip:
		if dryRun {
			return EntityResult{
				Outcome:             OutcomePreviewed,
				DependenciesCreated: resolver.created,
				Preview:             f.preview(raw, "skip", nil, resolver.warnings),
			}, nil
		}
		return EntityResult{Outcome: OutcomeSkipped, DependenciesCreated: resolver.created}, nil
	case DecisionConflict:
		return EntityResult{Outcome: OutcomeConflict, DependenciesCreated: resolver.created}, nil
	}

	if dryRun {
		action := "create"
		if ref != nil {
			action = "update"
		}
		return EntityResult{
			Outcome:             OutcomePreviewed,
			DependenciesCreated: resolver.created,
			Preview:             f.preview(raw, action, payload, resolver.warnings),
		}, nil
	}

	created, err := f.write(ctx, tenantID, route, raw, ref, payload, hash)
	if err != nil {
		return EntityResult{DependenciesCreated: resolver.created}, err
	}

	outcome := OutcomeUpdated
	if created {
		outcome = OutcomeCreated
	}
	return EntityResult{Outcome: outcome, DependenciesCreated: resolver.created}, nil
}

// transform loads the active mapping for the entity type and applies it
func (f *FlowAdapter) transform(ctx context.Context, tenantID uuid.UUID, route sync.Route, raw *sync.RawEntity, resolver mapping.LookupResolver) (map[string]any, error) {
	m, err := f.mappings.FindActive(ctx, tenantID, route, raw.EntityType)
	if err != nil {
		return nil, err
	}
	return f.engine.Transform(ctx, m, raw, resolver)
}

func (f *FlowAdapter) findReference(ctx context.Context, tenantID uuid.UUID, route sync.Route, raw *sync.RawEntity) (*sync.CrossSystemReference, error) {
	ref, err := f.refs.Find(ctx, tenantID, raw.EntityType, route.Source, raw.ID, route.Target)
	if err != nil {
		if errors.Is(err, sync.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ref, nil
}

// targetModifiedAt inspects the target copy for two-way conflict detection.
// A read failure degrades to "unknown" rather than failing the entity.
func (f *FlowAdapter) targetModifiedAt(ctx context.Context, tenantID uuid.UUID, route sync.Route, cfg *sync.EntitySyncConfig, ref *sync.CrossSystemReference) *time.Time {
	if cfg.Direction != sync.DirectionTwoWay || ref == nil {
		return nil
	}
	client, err := f.clients.GetClient(route.Target)
	if err != nil {
		return nil
	}
	remote, err := client.FetchEntity(ctx, tenantID, ref.EntityType, ref.TargetID)
	if err != nil {
		logger.L(ctx).Debug("Could not inspect target copy for conflict detection",
			zap.String("entity_type", ref.EntityType.String()),
			zap.String("target_id", ref.TargetID),
			logger.RedactedError(err),
		)
		return nil
	}
	return &remote.ModifiedAt
}

// write performs the idempotent upsert at the target and records the
// reference. Returns true when a new target entity was created.
func (f *FlowAdapter) write(ctx context.Context, tenantID uuid.UUID, route sync.Route, raw *sync.RawEntity, ref *sync.CrossSystemReference, payload map[string]any, hash string) (bool, error) {
	client, err := f.clients.GetClient(route.Target)
	if err != nil {
		return false, err
	}

	logger.L(ctx).Debug("Writing entity to target",
		zap.String("entity_type", raw.EntityType.String()),
		zap.String("source_id", raw.ID),
		zap.String("target", route.Target.String()),
		logger.RedactedPayload("payload", payload),
	)

	if ref != nil {
		if err := client.Update(ctx, tenantID, raw.EntityType, ref.TargetID, payload); err != nil {
			return false, err
		}
		ref.RecordSync(hash)
		return false, f.refs.Upsert(ctx, ref)
	}

	targetID, err := client.Create(ctx, tenantID, raw.EntityType, payload)
	if err != nil {
		return false, err
	}
	newRef, err := sync.NewCrossSystemReference(tenantID, raw.EntityType, route.Source, raw.ID, route.Target, targetID, hash)
	if err != nil {
		return false, err
	}
	return true, f.refs.Upsert(ctx, newRef)
}

func (f *FlowAdapter) preview(raw *sync.RawEntity, action string, payload map[string]any, warnings []string) *ChangePreview {
	return &ChangePreview{
		EntityID:      raw.ID,
		EntityType:    raw.EntityType,
		Action:        action,
		TargetPayload: payload,
		Warnings:      warnings,
	}
}

// ---------------------------------------------------------------------------
// flowResolver
// ---------------------------------------------------------------------------

// flowResolver implements mapping.LookupResolver for one entity's pipeline.
// On a reference-store miss it creates the missing dependency first, parents
// before children; in dry-run mode it only records what would be created.
type flowResolver struct {
	adapter  *FlowAdapter
	tenantID uuid.UUID
	route    sync.Route
	dryRun   bool
	depth    int
	created  int
	warnings []string
}

// ResolveReference resolves the target id for a dependency identified by
// its source-platform id
func (r *flowResolver) ResolveReference(ctx context.Context, entityType sync.EntityType, sourceID string) (string, error) {
	ref, err := r.adapter.refs.Find(ctx, r.tenantID, entityType, r.route.Source, sourceID, r.route.Target)
	if err == nil {
		return ref.TargetID, nil
	}
	if !errors.Is(err, sync.ErrReferenceNotFound) {
		return "", err
	}

	if r.dryRun {
		r.warnings = append(r.warnings, fmt.Sprintf("would create %s %s at %s", entityType, sourceID, r.route.Target))
		return simulatedID(entityType, sourceID), nil
	}

	source, err := r.adapter.clients.GetClient(r.route.Source)
	if err != nil {
		return "", sync.NewDependencyError(entityType, sourceID, err)
	}
	raw, err := source.FetchEntity(ctx, r.tenantID, entityType, sourceID)
	if err != nil {
		return "", sync.NewDependencyError(entityType, sourceID, err)
	}
	return r.createDependency(ctx, raw)
}

// ResolveNaturalKey resolves the target id for a dependency identified by a
// natural key such as email or SKU. An existing target entity is adopted
// into the reference store so later syncs reuse it instead of recreating it.
func (r *flowResolver) ResolveNaturalKey(ctx context.Context, entityType sync.EntityType, key, value string) (string, error) {
	source, err := r.adapter.clients.GetClient(r.route.Source)
	if err != nil {
		return "", sync.NewDependencyError(entityType, value, err)
	}
	raw, err := source.FindByNaturalKey(ctx, r.tenantID, entityType, key, value)
	if err != nil {
		return "", sync.NewDependencyError(entityType, value, err)
	}

	ref, err := r.adapter.refs.Find(ctx, r.tenantID, entityType, r.route.Source, raw.ID, r.route.Target)
	if err == nil {
		return ref.TargetID, nil
	}
	if !errors.Is(err, sync.ErrReferenceNotFound) {
		return "", err
	}

	// Read-only probe: the dependency may already exist at the target even
	// though no reference was recorded yet.
	target, err := r.adapter.clients.GetClient(r.route.Target)
	if err != nil {
		return "", sync.NewDependencyError(entityType, value, err)
	}
	existing, err := target.FindByNaturalKey(ctx, r.tenantID, entityType, key, value)
	if err == nil {
		if r.dryRun {
			return existing.ID, nil
		}
		return r.adoptExisting(ctx, raw, existing)
	}
	if !errors.Is(err, sync.ErrEntityNotFound) {
		return "", sync.NewDependencyError(entityType, value, err)
	}

	if r.dryRun {
		r.warnings = append(r.warnings, fmt.Sprintf("would create %s %s=%s at %s", entityType, key, value, r.route.Target))
		return simulatedID(entityType, raw.ID), nil
	}
	return r.createDependency(ctx, raw)
}

// adoptExisting records a reference for a target entity that already exists
func (r *flowResolver) adoptExisting(ctx context.Context, sourceRaw, targetRaw *sync.RawEntity) (string, error) {
	ref, err := sync.NewCrossSystemReference(r.tenantID, sourceRaw.EntityType, r.route.Source, sourceRaw.ID, r.route.Target, targetRaw.ID, "")
	if err != nil {
		return "", err
	}
	if err := r.adapter.refs.Upsert(ctx, ref); err != nil {
		return "", err
	}
	return targetRaw.ID, nil
}

// createDependency transforms and writes the missing dependency, recording
// its reference so sibling entities reuse it. The reference store is
// re-checked before the write: a concurrent worker may have created the
// dependency in the meantime.
func (r *flowResolver) createDependency(ctx context.Context, raw *sync.RawEntity) (string, error) {
	if r.depth >= maxDependencyDepth {
		return "", sync.NewDependencyError(raw.EntityType, raw.ID, errors.New("dependency chain too deep"))
	}

	child := &flowResolver{
		adapter:  r.adapter,
		tenantID: r.tenantID,
		route:    r.route,
		dryRun:   r.dryRun,
		depth:    r.depth + 1,
	}
	payload, err := r.adapter.transform(ctx, r.tenantID, r.route, raw, child)
	if err != nil {
		return "", sync.NewDependencyError(raw.EntityType, raw.ID, err)
	}
	r.created += child.created

	hash, err := sync.ContentHashOf(payload)
	if err != nil {
		return "", err
	}

	// The re-check and the target Create must not interleave across
	// workers: a second worker past the check would create the dependency
	// a second time. Nested resolution already finished inside transform,
	// so no other dependency lock is held here.
	lock := r.adapter.dependencyLock(r.tenantID, r.route, raw.EntityType, raw.ID)
	lock.Lock()
	defer lock.Unlock()

	if ref, err := r.adapter.refs.Find(ctx, r.tenantID, raw.EntityType, r.route.Source, raw.ID, r.route.Target); err == nil {
		return ref.TargetID, nil
	} else if !errors.Is(err, sync.ErrReferenceNotFound) {
		return "", err
	}

	created, err := r.adapter.write(ctx, r.tenantID, r.route, raw, nil, payload, hash)
	if err != nil {
		return "", sync.NewDependencyError(raw.EntityType, raw.ID, err)
	}
	if created {
		r.created++
	}

	ref, err := r.adapter.refs.Find(ctx, r.tenantID, raw.EntityType, r.route.Source, raw.ID, r.route.Target)
	if err != nil {
		return "", err
	}
	logger.L(ctx).Info("Dependency created during sync",
		zap.String("entity_type", raw.EntityType.String()),
		zap.String("source_id", raw.ID),
		zap.String("target_id", ref.TargetID),
	)
	return ref.TargetID, nil
}

func simulatedID(entityType sync.EntityType, sourceID string) string {
	return fmt.Sprintf("preview:%s:%s", entityType, sourceID)
}

// dependencyLock returns the stripe lock for one dependency identity
func (f *FlowAdapter) dependencyLock(tenantID uuid.UUID, route sync.Route, entityType sync.EntityType, sourceID string) *gosync.Mutex {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s|%s|%s|%s", tenantID, route, entityType, sourceID)
	return &f.depLocks[h.Sum32()%uint32(len(f.depLocks))]
}
