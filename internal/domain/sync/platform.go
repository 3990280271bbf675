package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Platform
// ---------------------------------------------------------------------------

// Platform identifies a system that entities are synchronized between.
// The internal back office is itself a platform so that routes can be
// declared uniformly in either direction.
type Platform string

const (
	// PlatformInternal is the back-office system of record
	PlatformInternal Platform = "INTERNAL"
	// PlatformStorefront is the e-commerce storefront platform
	PlatformStorefront Platform = "STOREFRONT"
	// PlatformAccounting is the accounting platform
	PlatformAccounting Platform = "ACCOUNTING"
	// PlatformWarehouse is the analytics data warehouse
	PlatformWarehouse Platform = "WAREHOUSE"
)

// IsValid returns true if the platform is known
func (p Platform) IsValid() bool {
	switch p {
	case PlatformInternal, PlatformStorefront, PlatformAccounting, PlatformWarehouse:
		return true
	default:
		return false
	}
}

// String returns the string representation of Platform
func (p Platform) String() string {
	return string(p)
}

// ---------------------------------------------------------------------------
// EntityType
// ---------------------------------------------------------------------------

// EntityType is a category of business record that can be synchronized.
type EntityType string

const (
	EntityTypeCustomer EntityType = "CUSTOMER"
	EntityTypeProduct  EntityType = "PRODUCT"
	EntityTypeOrder    EntityType = "ORDER"
	EntityTypeInvoice  EntityType = "INVOICE"
)

// IsValid returns true if the entity type is known
func (t EntityType) IsValid() bool {
	switch t {
	case EntityTypeCustomer, EntityTypeProduct, EntityTypeOrder, EntityTypeInvoice:
		return true
	default:
		return false
	}
}

// String returns the string representation of EntityType
func (t EntityType) String() string {
	return string(t)
}

// Dependencies returns the entity types that must exist at the target before
// an entity of this type can be written, in resolution order. The ordering is
// declared statically; parents always precede children.
func (t EntityType) Dependencies() []EntityType {
	switch t {
	case EntityTypeOrder:
		return []EntityType{EntityTypeCustomer, EntityTypeProduct}
	case EntityTypeInvoice:
		return []EntityType{EntityTypeCustomer, EntityTypeProduct, EntityTypeOrder}
	default:
		return nil
	}
}

// DependencyRank returns the position of the entity type in the static
// topological order. Lower ranks are synchronized first.
func (t EntityType) DependencyRank() int {
	switch t {
	case EntityTypeCustomer, EntityTypeProduct:
		return 0
	case EntityTypeOrder:
		return 1
	case EntityTypeInvoice:
		return 2
	default:
		return 3
	}
}

// ---------------------------------------------------------------------------
// Route
// ---------------------------------------------------------------------------

// Route is a (source platform, target platform) pair for which sync is configured.
type Route struct {
	Source Platform
	Target Platform
}

// NewRoute creates a validated route
func NewRoute(source, target Platform) (Route, error) {
	r := Route{Source: source, Target: target}
	if err := r.Validate(); err != nil {
		return Route{}, err
	}
	return r, nil
}

// Validate validates the route
func (r Route) Validate() error {
	if !r.Source.IsValid() {
		return fmt.Errorf("%w: source %q", ErrInvalidPlatform, r.Source)
	}
	if !r.Target.IsValid() {
		return fmt.Errorf("%w: target %q", ErrInvalidPlatform, r.Target)
	}
	if r.Source == r.Target {
		return ErrInvalidRoute
	}
	return nil
}

// String returns the canonical route key, e.g. "INTERNAL->ACCOUNTING"
func (r Route) String() string {
	return string(r.Source) + "->" + string(r.Target)
}

// Reversed returns the route with source and target swapped
func (r Route) Reversed() Route {
	return Route{Source: r.Target, Target: r.Source}
}

// ParseRoute parses a canonical route key back into a Route
func ParseRoute(s string) (Route, error) {
	for i := 0; i+2 < len(s); i++ {
		if s[i] == '-' && s[i+1] == '>' {
			return NewRoute(Platform(s[:i]), Platform(s[i+2:]))
		}
	}
	return Route{}, fmt.Errorf("%w: %q", ErrInvalidRoute, s)
}

// ---------------------------------------------------------------------------
// Platform client port
// ---------------------------------------------------------------------------

// RawEntity is an entity instance in a platform's native representation.
type RawEntity struct {
	// ID is the entity id on the owning platform
	ID string
	// EntityType categorizes the record
	EntityType EntityType
	// Fields is the platform-native document
	Fields map[string]any
	// ModifiedAt is the last-modified timestamp reported by the platform
	ModifiedAt time.Time
}

// FetchFilters narrows a paginated scan.
type FetchFilters struct {
	// IDs restricts the scan to an explicit id list (optional)
	IDs []string
	// ModifiedAfter restricts the scan to entities modified after the
	// given instant (optional, drives incremental mode)
	ModifiedAfter *time.Time
	// CreatedFrom / CreatedTo bound a date range (optional)
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// PlatformClient is the port to one external (or the internal) platform.
// Endpoint shapes, OAuth flows and pagination details live behind this
// interface and are out of scope for the sync engine.
type PlatformClient interface {
	// Platform returns the platform this client talks to
	Platform() Platform

	// FetchEntity retrieves a single entity by id
	FetchEntity(ctx context.Context, tenantID uuid.UUID, entityType EntityType, id string) (*RawEntity, error)

	// FetchPage retrieves one page of entities; an empty next cursor ends the scan
	FetchPage(ctx context.Context, tenantID uuid.UUID, entityType EntityType, cursor string, filters FetchFilters) ([]RawEntity, string, error)

	// FindByNaturalKey locates an entity by a natural key such as email or SKU.
	// Returns ErrEntityNotFound when no entity matches.
	FindByNaturalKey(ctx context.Context, tenantID uuid.UUID, entityType EntityType, key, value string) (*RawEntity, error)

	// Create creates an entity and returns its id on the platform
	Create(ctx context.Context, tenantID uuid.UUID, entityType EntityType, payload map[string]any) (string, error)

	// Update overwrites an existing entity
	Update(ctx context.Context, tenantID uuid.UUID, entityType EntityType, id string, payload map[string]any) error
}

// PlatformClientRegistry resolves the client for a platform.
type PlatformClientRegistry interface {
	// GetClient returns the client for the given platform
	GetClient(platform Platform) (PlatformClient, error)
}

// ---------------------------------------------------------------------------
// Platform error kinds
// ---------------------------------------------------------------------------

var (
	ErrInvalidPlatform   = errors.New("sync: invalid platform")
	ErrInvalidRoute      = errors.New("sync: invalid route")
	ErrInvalidEntityType = errors.New("sync: invalid entity type")
	ErrEntityNotFound    = errors.New("sync: entity not found on platform")
	ErrClientNotFound    = errors.New("sync: no client registered for platform")
)

// TransientError marks a platform failure as retryable (rate limit,
// timeout, 5xx). The orchestrator retries these with exponential backoff.
type TransientError struct {
	Platform Platform
	Cause    error
}

// Error implements the error interface
func (e *TransientError) Error() string {
	return fmt.Sprintf("sync: transient failure on %s: %v", e.Platform, e.Cause)
}

// Unwrap returns the underlying cause
func (e *TransientError) Unwrap() error { return e.Cause }

// NewTransientError wraps a retryable platform failure
func NewTransientError(platform Platform, cause error) *TransientError {
	return &TransientError{Platform: platform, Cause: cause}
}

// IsTransient reports whether err is (or wraps) a TransientError
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// AuthError marks a platform credential failure. Retrying cannot help, so
// the orchestrator aborts the remainder of the run for the route.
type AuthError struct {
	Platform Platform
	Cause    error
}

// Error implements the error interface
func (e *AuthError) Error() string {
	return fmt.Sprintf("sync: authentication failed on %s: %v", e.Platform, e.Cause)
}

// Unwrap returns the underlying cause
func (e *AuthError) Unwrap() error { return e.Cause }

// NewAuthError wraps a credential failure
func NewAuthError(platform Platform, cause error) *AuthError {
	return &AuthError{Platform: platform, Cause: cause}
}

// IsAuthError reports whether err is (or wraps) an AuthError
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
