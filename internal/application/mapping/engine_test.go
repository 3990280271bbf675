package mapping

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailops/backend/internal/domain/mapping"
	"github.com/retailops/backend/internal/domain/sync"
)

// fakeApplier implements a minimal function set without the transform registry.
type fakeApplier struct{}

func (fakeApplier) Apply(_ context.Context, name string, args []string, value any, resolver mapping.LookupResolver) (any, error) {
	switch name {
	case "uppercase":
		return strings.ToUpper(value.(string)), nil
	case "concat":
		return value.(string) + strings.Join(args, ""), nil
	case "lookup_reference":
		return resolver.ResolveReference(context.Background(), sync.EntityType(args[0]), value.(string))
	case "explode":
		return nil, errors.New("bad value")
	default:
		return nil, errors.New("unknown function")
	}
}

type fakeResolver struct {
	refs map[string]string
}

func (r *fakeResolver) ResolveReference(_ context.Context, _ sync.EntityType, sourceID string) (string, error) {
	if id, ok := r.refs[sourceID]; ok {
		return id, nil
	}
	return "", mapping.ErrLookupMiss
}

func (r *fakeResolver) ResolveNaturalKey(_ context.Context, _ sync.EntityType, _, _ string) (string, error) {
	return "", mapping.ErrLookupMiss
}

func newMapping(t *testing.T, maps []mapping.FieldMap, specs []mapping.TransformationSpec) *mapping.FieldMapping {
	t.Helper()
	route := sync.Route{Source: sync.PlatformInternal, Target: sync.PlatformStorefront}
	m, err := mapping.NewFieldMapping(uuid.New(), "test", route, sync.EntityTypeProduct, maps, specs)
	require.NoError(t, err)
	return m
}

func entity(fields map[string]any) *sync.RawEntity {
	return &sync.RawEntity{ID: "e-1", EntityType: sync.EntityTypeProduct, Fields: fields}
}

func TestEngine_Transform(t *testing.T) {
	engine := NewEngine(fakeApplier{})
	ctx := context.Background()

	t.Run("flat fields", func(t *testing.T) {
		m := newMapping(t, []mapping.FieldMap{
			{SourcePath: "name", TargetPath: "title"},
			{SourcePath: "sku", TargetPath: "code"},
		}, nil)

		out, err := engine.Transform(ctx, m, entity(map[string]any{"name": "Mug", "sku": "MUG-1"}), nil)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"title": "Mug", "code": "MUG-1"}, out)
	})

	t.Run("nested source and target paths", func(t *testing.T) {
		m := newMapping(t, []mapping.FieldMap{
			{SourcePath: "address.city", TargetPath: "shipping.town"},
		}, nil)

		out, err := engine.Transform(ctx, m, entity(map[string]any{
			"address": map[string]any{"city": "Lyon"},
		}), nil)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"shipping": map[string]any{"town": "Lyon"},
		}, out)
	})

	t.Run("transformations apply in order", func(t *testing.T) {
		m := newMapping(t,
			[]mapping.FieldMap{{SourcePath: "name", TargetPath: "title"}},
			[]mapping.TransformationSpec{
				{SourcePath: "name", Function: "uppercase"},
				{SourcePath: "name", Function: "concat", Args: []string{"!"}},
			})

		out, err := engine.Transform(ctx, m, entity(map[string]any{"name": "mug"}), nil)
		require.NoError(t, err)
		assert.Equal(t, "MUG!", out["title"])
	})

	t.Run("optional missing field omitted", func(t *testing.T) {
		m := newMapping(t, []mapping.FieldMap{
			{SourcePath: "name", TargetPath: "title"},
			{SourcePath: "subtitle", TargetPath: "tagline"},
		}, nil)

		out, err := engine.Transform(ctx, m, entity(map[string]any{"name": "Mug"}), nil)
		require.NoError(t, err)
		assert.NotContains(t, out, "tagline")
	})

	t.Run("default value substitutes missing field", func(t *testing.T) {
		m := newMapping(t, []mapping.FieldMap{
			{SourcePath: "currency", TargetPath: "currency", DefaultValue: "EUR"},
		}, nil)

		out, err := engine.Transform(ctx, m, entity(map[string]any{}), nil)
		require.NoError(t, err)
		assert.Equal(t, "EUR", out["currency"])
	})

	t.Run("required missing field fails the entity", func(t *testing.T) {
		m := newMapping(t, []mapping.FieldMap{
			{SourcePath: "name", TargetPath: "title", Required: true},
		}, nil)

		out, err := engine.Transform(ctx, m, entity(map[string]any{}), nil)
		assert.Nil(t, out)
		var missing *mapping.RequiredFieldMissingError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "name", missing.Field)
	})

	t.Run("transformation failure aborts the whole entity", func(t *testing.T) {
		m := newMapping(t,
			[]mapping.FieldMap{
				{SourcePath: "name", TargetPath: "title"},
				{SourcePath: "sku", TargetPath: "code"},
			},
			[]mapping.TransformationSpec{{SourcePath: "sku", Function: "explode"}})

		out, err := engine.Transform(ctx, m, entity(map[string]any{"name": "Mug", "sku": "MUG-1"}), nil)
		assert.Nil(t, out)
		assert.True(t, mapping.IsMappingError(err))
	})

	t.Run("array field map", func(t *testing.T) {
		m := newMapping(t, []mapping.FieldMap{
			{SourcePath: "items", TargetPath: "lines", IsArray: true,
				ItemMaps: []mapping.FieldMap{
					{SourcePath: "sku", TargetPath: "code"},
					{SourcePath: "qty", TargetPath: "quantity"},
				}},
		}, nil)

		out, err := engine.Transform(ctx, m, entity(map[string]any{
			"items": []any{
				map[string]any{"sku": "A", "qty": 1},
				map[string]any{"sku": "B", "qty": 2},
			},
		}), nil)
		require.NoError(t, err)
		assert.Equal(t, []any{
			map[string]any{"code": "A", "quantity": 1},
			map[string]any{"code": "B", "quantity": 2},
		}, out["lines"])
	})

	t.Run("array element transformations use absolute paths", func(t *testing.T) {
		m := newMapping(t,
			[]mapping.FieldMap{
				{SourcePath: "items", TargetPath: "lines", IsArray: true,
					ItemMaps: []mapping.FieldMap{{SourcePath: "sku", TargetPath: "code"}}},
			},
			[]mapping.TransformationSpec{{SourcePath: "items.sku", Function: "uppercase"}})

		out, err := engine.Transform(ctx, m, entity(map[string]any{
			"items": []any{map[string]any{"sku": "a"}},
		}), nil)
		require.NoError(t, err)
		assert.Equal(t, []any{map[string]any{"code": "A"}}, out["lines"])
	})

	t.Run("non array source for array map", func(t *testing.T) {
		m := newMapping(t, []mapping.FieldMap{
			{SourcePath: "items", TargetPath: "lines", IsArray: true,
				ItemMaps: []mapping.FieldMap{{SourcePath: "sku", TargetPath: "code"}}},
		}, nil)

		_, err := engine.Transform(ctx, m, entity(map[string]any{"items": "not-a-list"}), nil)
		assert.True(t, mapping.IsMappingError(err))
	})

	t.Run("absent optional array omitted", func(t *testing.T) {
		m := newMapping(t, []mapping.FieldMap{
			{SourcePath: "items", TargetPath: "lines", IsArray: true,
				ItemMaps: []mapping.FieldMap{{SourcePath: "sku", TargetPath: "code"}}},
		}, nil)

		out, err := engine.Transform(ctx, m, entity(map[string]any{}), nil)
		require.NoError(t, err)
		assert.NotContains(t, out, "lines")
	})

	t.Run("lookup resolves through the resolver", func(t *testing.T) {
		m := newMapping(t,
			[]mapping.FieldMap{{SourcePath: "customer_id", TargetPath: "customer_ref"}},
			[]mapping.TransformationSpec{{SourcePath: "customer_id", Function: "lookup_reference", Args: []string{"CUSTOMER"}}})
		resolver := &fakeResolver{refs: map[string]string{"c-1": "sf-42"}}

		out, err := engine.Transform(ctx, m, entity(map[string]any{"customer_id": "c-1"}), resolver)
		require.NoError(t, err)
		assert.Equal(t, "sf-42", out["customer_ref"])
	})
}
