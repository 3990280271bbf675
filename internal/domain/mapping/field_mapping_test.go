package mapping

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailops/backend/internal/domain/sync"
)

func testRoute() sync.Route {
	return sync.Route{Source: sync.PlatformInternal, Target: sync.PlatformStorefront}
}

func TestFieldMap_Validate(t *testing.T) {
	tests := []struct {
		name    string
		fm      FieldMap
		wantErr bool
	}{
		{"valid leaf", FieldMap{SourcePath: "name", TargetPath: "title"}, false},
		{"missing source", FieldMap{TargetPath: "title"}, true},
		{"missing target", FieldMap{SourcePath: "name"}, true},
		{"array without item maps", FieldMap{SourcePath: "items", TargetPath: "lines", IsArray: true}, true},
		{"array with item maps", FieldMap{
			SourcePath: "items", TargetPath: "lines", IsArray: true,
			ItemMaps: []FieldMap{{SourcePath: "sku", TargetPath: "code"}},
		}, false},
		{"invalid nested item map", FieldMap{
			SourcePath: "items", TargetPath: "lines", IsArray: true,
			ItemMaps: []FieldMap{{SourcePath: "", TargetPath: "code"}},
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fm.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewFieldMapping(t *testing.T) {
	tenantID := uuid.New()
	maps := []FieldMap{{SourcePath: "name", TargetPath: "title"}}

	t.Run("success", func(t *testing.T) {
		m, err := NewFieldMapping(tenantID, "storefront products", testRoute(), sync.EntityTypeProduct, maps, nil)
		require.NoError(t, err)
		assert.False(t, m.IsActive)
		assert.Equal(t, 1, m.Version)
		assert.NotEqual(t, uuid.Nil, m.ID)
	})

	t.Run("nil tenant", func(t *testing.T) {
		_, err := NewFieldMapping(uuid.Nil, "m", testRoute(), sync.EntityTypeProduct, maps, nil)
		assert.ErrorIs(t, err, ErrMappingInvalidTenantID)
	})

	t.Run("invalid route", func(t *testing.T) {
		bad := sync.Route{Source: sync.PlatformInternal, Target: sync.PlatformInternal}
		_, err := NewFieldMapping(tenantID, "m", bad, sync.EntityTypeProduct, maps, nil)
		assert.ErrorIs(t, err, ErrMappingInvalidRoute)
	})

	t.Run("invalid entity type", func(t *testing.T) {
		_, err := NewFieldMapping(tenantID, "m", testRoute(), sync.EntityType("NOPE"), maps, nil)
		assert.ErrorIs(t, err, sync.ErrInvalidEntityType)
	})

	t.Run("no field maps", func(t *testing.T) {
		_, err := NewFieldMapping(tenantID, "m", testRoute(), sync.EntityTypeProduct, nil, nil)
		assert.ErrorIs(t, err, ErrMappingNoFieldMaps)
	})
}

func TestFieldMapping_TransformationsFor(t *testing.T) {
	m, err := NewFieldMapping(uuid.New(), "m", testRoute(), sync.EntityTypeProduct,
		[]FieldMap{{SourcePath: "price", TargetPath: "amount"}},
		[]TransformationSpec{
			{SourcePath: "price", Function: "multiply", Args: []string{"100"}},
			{SourcePath: "price", Function: "round", Args: []string{"0"}},
			{SourcePath: "name", Function: "trim"},
		})
	require.NoError(t, err)

	specs := m.TransformationsFor("price")
	require.Len(t, specs, 2)
	assert.Equal(t, "multiply", specs[0].Function)
	assert.Equal(t, "round", specs[1].Function)
	assert.Empty(t, m.TransformationsFor("sku"))
}

func TestFieldMapping_ActivateDeactivate(t *testing.T) {
	m, err := NewFieldMapping(uuid.New(), "m", testRoute(), sync.EntityTypeProduct,
		[]FieldMap{{SourcePath: "name", TargetPath: "title"}}, nil)
	require.NoError(t, err)

	m.Activate()
	assert.True(t, m.IsActive)
	assert.Equal(t, 2, m.Version)

	m.Deactivate()
	assert.False(t, m.IsActive)
	assert.Equal(t, 3, m.Version)
}
