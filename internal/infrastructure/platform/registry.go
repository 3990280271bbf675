package platform

import (
	"fmt"

	"github.com/retailops/backend/internal/domain/sync"
)

// Registry resolves platform clients by platform. Registration happens at
// startup; lookups afterwards are read-only, so no locking is needed.
type Registry struct {
	clients map[sync.Platform]sync.PlatformClient
}

// NewRegistry creates an empty client registry
func NewRegistry() *Registry {
	return &Registry{clients: make(map[sync.Platform]sync.PlatformClient)}
}

// Register adds a client; registering the same platform twice is a
// programming error.
func (r *Registry) Register(client sync.PlatformClient) error {
	p := client.Platform()
	if !p.IsValid() {
		return fmt.Errorf("%w: %q", sync.ErrInvalidPlatform, p)
	}
	if _, exists := r.clients[p]; exists {
		return fmt.Errorf("platform: client already registered for %s", p)
	}
	r.clients[p] = client
	return nil
}

// GetClient returns the client for the given platform
func (r *Registry) GetClient(p sync.Platform) (sync.PlatformClient, error) {
	client, ok := r.clients[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", sync.ErrClientNotFound, p)
	}
	return client, nil
}

// Platforms returns the registered platforms
func (r *Registry) Platforms() []sync.Platform {
	platforms := make([]sync.Platform, 0, len(r.clients))
	for p := range r.clients {
		platforms = append(platforms, p)
	}
	return platforms
}

// Ensure Registry implements the registry port
var _ sync.PlatformClientRegistry = (*Registry)(nil)
