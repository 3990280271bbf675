package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailops/backend/internal/domain/sync"
)

func mustClient(t *testing.T, platform sync.Platform) *RESTClient {
	t.Helper()
	client, err := NewRESTClient(&ClientConfig{
		Platform: platform,
		BaseURL:  "http://localhost:9000",
	})
	require.NoError(t, err)
	return client
}

func TestRegistry_Register(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.Register(mustClient(t, sync.PlatformStorefront)))
	require.NoError(t, registry.Register(mustClient(t, sync.PlatformAccounting)))

	t.Run("duplicate", func(t *testing.T) {
		err := registry.Register(mustClient(t, sync.PlatformStorefront))
		assert.Error(t, err)
	})

	assert.ElementsMatch(t,
		[]sync.Platform{sync.PlatformStorefront, sync.PlatformAccounting},
		registry.Platforms())
}

func TestRegistry_GetClient(t *testing.T) {
	registry := NewRegistry()
	client := mustClient(t, sync.PlatformWarehouse)
	require.NoError(t, registry.Register(client))

	got, err := registry.GetClient(sync.PlatformWarehouse)
	require.NoError(t, err)
	assert.Equal(t, sync.PlatformWarehouse, got.Platform())

	_, err = registry.GetClient(sync.PlatformAccounting)
	assert.ErrorIs(t, err, sync.ErrClientNotFound)
}

func TestStaticSchemaProvider(t *testing.T) {
	provider := NewStaticSchemaProvider()

	t.Run("internal exposes every entity type", func(t *testing.T) {
		for _, entityType := range []sync.EntityType{
			sync.EntityTypeCustomer, sync.EntityTypeProduct, sync.EntityTypeOrder, sync.EntityTypeInvoice,
		} {
			schema, ok := provider.Schema(sync.PlatformInternal, entityType)
			require.True(t, ok, entityType)
			assert.NotEmpty(t, schema.Fields)
		}
	})

	t.Run("storefront does not expose invoices", func(t *testing.T) {
		_, ok := provider.Schema(sync.PlatformStorefront, sync.EntityTypeInvoice)
		assert.False(t, ok)
	})

	t.Run("storefront declares ceilings", func(t *testing.T) {
		schema, ok := provider.Schema(sync.PlatformStorefront, sync.EntityTypeCustomer)
		require.True(t, ok)
		assert.Greater(t, schema.MaxFieldMappings, 0)
		assert.Greater(t, schema.MaxCustomFieldMappings, 0)
	})

	t.Run("array element paths resolve", func(t *testing.T) {
		schema, ok := provider.Schema(sync.PlatformInternal, sync.EntityTypeOrder)
		require.True(t, ok)
		assert.True(t, schema.HasPath("items[].sku"))
	})

	t.Run("unknown platform", func(t *testing.T) {
		_, ok := provider.Schema(sync.Platform("EBAY"), sync.EntityTypeCustomer)
		assert.False(t, ok)
	})
}
