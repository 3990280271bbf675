package mapping

import (
	"context"
	"fmt"
	"strings"

	"github.com/retailops/backend/internal/domain/mapping"
	"github.com/retailops/backend/internal/domain/sync"
)

// FunctionApplier executes a registered transformation function. The closed
// registry in the transform infrastructure package implements it.
type FunctionApplier interface {
	Apply(ctx context.Context, name string, args []string, value any, resolver mapping.LookupResolver) (any, error)
}

// Engine applies a validated field mapping to one entity instance,
// producing the target-platform payload. A failure on any field aborts the
// whole entity; the engine never returns a partial payload.
type Engine struct {
	applier FunctionApplier
}

// NewEngine creates a mapping engine
func NewEngine(applier FunctionApplier) *Engine {
	return &Engine{applier: applier}
}

// Transform walks every field map of the mapping over the source entity,
// applies the declared transformations in order, and assembles the target
// payload. Lookup transforms consult the resolver, which may trigger
// creation of the missing dependency.
func (e *Engine) Transform(ctx context.Context, m *mapping.FieldMapping, source *sync.RawEntity, resolver mapping.LookupResolver) (map[string]any, error) {
	return e.transformFields(ctx, m, m.FieldMaps, source.Fields, "", resolver)
}

func (e *Engine) transformFields(ctx context.Context, m *mapping.FieldMapping, maps []mapping.FieldMap, source map[string]any, pathPrefix string, resolver mapping.LookupResolver) (map[string]any, error) {
	target := make(map[string]any)
	for _, fm := range maps {
		absPath := joinPath(pathPrefix, fm.SourcePath)

		if fm.IsArray {
			items, err := e.transformArray(ctx, m, fm, source, absPath, resolver)
			if err != nil {
				return nil, err
			}
			if items != nil {
				setPath(target, fm.TargetPath, items)
			} else if fm.Required {
				return nil, mapping.NewRequiredFieldMissing(absPath)
			}
			continue
		}

		value := getPath(source, fm.SourcePath)

		for _, spec := range m.TransformationsFor(absPath) {
			if value == nil {
				break
			}
			transformed, err := e.applier.Apply(ctx, spec.Function, spec.Args, value, resolver)
			if err != nil {
				return nil, mapping.NewTransformationFailed(absPath, err.Error())
			}
			value = transformed
		}

		if value == nil {
			if fm.DefaultValue != nil {
				value = fm.DefaultValue
			} else if fm.Required {
				return nil, mapping.NewRequiredFieldMissing(absPath)
			} else {
				continue
			}
		}
		setPath(target, fm.TargetPath, value)
	}
	return target, nil
}

// transformArray maps every element of the source array through the field
// map's item maps. A nil result means the source array was absent.
func (e *Engine) transformArray(ctx context.Context, m *mapping.FieldMapping, fm mapping.FieldMap, source map[string]any, absPath string, resolver mapping.LookupResolver) ([]any, error) {
	raw := getPath(source, strings.TrimSuffix(fm.SourcePath, "[]"))
	if raw == nil {
		return nil, nil
	}
	elements, ok := raw.([]any)
	if !ok {
		return nil, mapping.NewTransformationFailed(absPath, fmt.Sprintf("expected array, got %T", raw))
	}
	items := make([]any, 0, len(elements))
	for i, el := range elements {
		fields, ok := el.(map[string]any)
		if !ok {
			return nil, mapping.NewTransformationFailed(absPath, fmt.Sprintf("element %d is not an object", i))
		}
		item, err := e.transformFields(ctx, m, fm.ItemMaps, fields, absPath, resolver)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// ---------------------------------------------------------------------------
// dot-notation path helpers
// ---------------------------------------------------------------------------

// getPath walks a nested document along a dot-notation path
func getPath(doc map[string]any, path string) any {
	parts := strings.Split(path, ".")
	var current any = doc
	for _, p := range parts {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = obj[p]
		if !ok {
			return nil
		}
	}
	return current
}

// setPath assigns a value along a dot-notation path, creating intermediate
// objects as needed
func setPath(doc map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := current[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[p] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

func joinPath(prefix, path string) string {
	if prefix == "" {
		return path
	}
	return prefix + "." + path
}
