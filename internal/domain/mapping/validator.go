package mapping

import (
	"fmt"

	"github.com/retailops/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Function catalog port
// ---------------------------------------------------------------------------

// FunctionInfo describes one registered transformation function. The
// function set is a closed, named registry so mappings stay validatable.
type FunctionInfo struct {
	Name string
	// Arity is the exact number of arguments, or the minimum when Variadic
	Arity    int
	Variadic bool
	// IsLookup marks functions that resolve a foreign entity's target id
	// through the cross-system reference store. Their first argument is the
	// looked-up entity type.
	IsLookup bool
}

// FunctionCatalog exposes the registered transformation functions for
// validation.
type FunctionCatalog interface {
	// Info returns the function descriptor, or false for unknown names
	Info(name string) (FunctionInfo, bool)
}

// ---------------------------------------------------------------------------
// ValidationError
// ---------------------------------------------------------------------------

// Validation error codes
const (
	ValidationCodeUnknownSourcePath   = "UNKNOWN_SOURCE_PATH"
	ValidationCodeUnknownTargetPath   = "UNKNOWN_TARGET_PATH"
	ValidationCodeFieldCeiling        = "FIELD_MAPPING_CEILING_EXCEEDED"
	ValidationCodeCustomFieldCeiling  = "CUSTOM_FIELD_CEILING_EXCEEDED"
	ValidationCodeUnknownFunction     = "UNKNOWN_TRANSFORMATION"
	ValidationCodeArityMismatch       = "TRANSFORMATION_ARITY_MISMATCH"
	ValidationCodeOrphanTransform     = "TRANSFORMATION_WITHOUT_FIELD_MAP"
	ValidationCodeDependencyCycle     = "DEPENDENCY_CYCLE"
	ValidationCodeUnknownLookupEntity = "UNKNOWN_LOOKUP_ENTITY"
	ValidationCodeSchemaUnavailable   = "SCHEMA_UNAVAILABLE"
)

// ValidationError names one defect found in a mapping.
type ValidationError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("mapping: %s (%s): %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("mapping: %s: %s", e.Code, e.Message)
}

// ---------------------------------------------------------------------------
// Validator
// ---------------------------------------------------------------------------

// Validator checks a field mapping against the declared platform schemas and
// the transformation function catalog. It runs at mapping save time and is
// repeated defensively at the start of every sync run.
type Validator struct {
	schemas SchemaProvider
	catalog FunctionCatalog
}

// NewValidator creates a mapping validator
func NewValidator(schemas SchemaProvider, catalog FunctionCatalog) *Validator {
	return &Validator{schemas: schemas, catalog: catalog}
}

// Validate returns all defects found in the mapping. An empty slice means
// the mapping is eligible to run.
func (v *Validator) Validate(m *FieldMapping) []ValidationError {
	var errs []ValidationError

	sourceSchema, ok := v.schemas.Schema(m.Route.Source, m.EntityType)
	if !ok {
		errs = append(errs, ValidationError{
			Code:    ValidationCodeSchemaUnavailable,
			Message: fmt.Sprintf("no %s schema declared for %s", m.EntityType, m.Route.Source),
		})
	}
	targetSchema, ok := v.schemas.Schema(m.Route.Target, m.EntityType)
	if !ok {
		errs = append(errs, ValidationError{
			Code:    ValidationCodeSchemaUnavailable,
			Message: fmt.Sprintf("no %s schema declared for %s", m.EntityType, m.Route.Target),
		})
	}
	if sourceSchema == nil || targetSchema == nil {
		return errs
	}

	errs = append(errs, v.validatePaths(m.FieldMaps, "", "", sourceSchema, targetSchema)...)
	errs = append(errs, v.validateCeilings(m, targetSchema)...)
	errs = append(errs, v.validateTransformations(m)...)
	return errs
}

// validatePaths confirms every source path exists in the source schema and
// every target path exists in the target schema. Item map paths are resolved
// relative to their array field map.
func (v *Validator) validatePaths(maps []FieldMap, sourcePrefix, targetPrefix string, sourceSchema, targetSchema *PlatformSchema) []ValidationError {
	var errs []ValidationError
	for _, fm := range maps {
		sourcePath := joinPath(sourcePrefix, fm.SourcePath)
		targetPath := joinPath(targetPrefix, fm.TargetPath)
		if !sourceSchema.HasPath(sourcePath) {
			errs = append(errs, ValidationError{
				Code:    ValidationCodeUnknownSourcePath,
				Field:   sourcePath,
				Message: fmt.Sprintf("source path not declared by %s", sourceSchema.Platform),
			})
		}
		if !targetSchema.HasPath(targetPath) {
			errs = append(errs, ValidationError{
				Code:    ValidationCodeUnknownTargetPath,
				Field:   targetPath,
				Message: fmt.Sprintf("target path not declared by %s", targetSchema.Platform),
			})
		}
		if fm.IsArray {
			errs = append(errs, v.validatePaths(fm.ItemMaps, sourcePath, targetPath, sourceSchema, targetSchema)...)
		}
	}
	return errs
}

// validateCeilings enforces the target platform's structural ceilings. A
// violation names the offending fields; nothing is ever silently truncated.
func (v *Validator) validateCeilings(m *FieldMapping, targetSchema *PlatformSchema) []ValidationError {
	var errs []ValidationError

	leaves := collectLeafMaps(m.FieldMaps, "", "")
	if ceiling := targetSchema.MaxFieldMappings; ceiling > 0 && len(leaves) > ceiling {
		offending := make([]string, 0, len(leaves)-ceiling)
		for _, l := range leaves[ceiling:] {
			offending = append(offending, l.targetPath)
		}
		errs = append(errs, ValidationError{
			Code:    ValidationCodeFieldCeiling,
			Field:   joinFields(offending),
			Message: fmt.Sprintf("%s allows at most %d field mappings, got %d", targetSchema.Platform, ceiling, len(leaves)),
		})
	}

	if ceiling := targetSchema.MaxCustomFieldMappings; ceiling > 0 {
		var custom []string
		for _, l := range leaves {
			if targetSchema.IsCustomPath(l.targetPath) {
				custom = append(custom, l.targetPath)
			}
		}
		if len(custom) > ceiling {
			errs = append(errs, ValidationError{
				Code:    ValidationCodeCustomFieldCeiling,
				Field:   joinFields(custom[ceiling:]),
				Message: fmt.Sprintf("%s allows at most %d custom-field mappings, got %d", targetSchema.Platform, ceiling, len(custom)),
			})
		}
	}
	return errs
}

// validateTransformations confirms every referenced function is registered
// with a matching argument arity, every transformation addresses a declared
// field map, and lookup transforms respect the static topological entity
// order (true cycles are rejected here, never discovered at runtime).
func (v *Validator) validateTransformations(m *FieldMapping) []ValidationError {
	var errs []ValidationError

	sourcePaths := make(map[string]struct{})
	for _, l := range collectLeafMaps(m.FieldMaps, "", "") {
		sourcePaths[l.sourcePath] = struct{}{}
	}
	for _, fm := range m.FieldMaps {
		sourcePaths[fm.SourcePath] = struct{}{}
	}

	for _, t := range m.Transformations {
		if _, ok := sourcePaths[t.SourcePath]; !ok {
			errs = append(errs, ValidationError{
				Code:    ValidationCodeOrphanTransform,
				Field:   t.SourcePath,
				Message: fmt.Sprintf("transformation %q references no declared field map", t.Function),
			})
		}

		info, ok := v.catalog.Info(t.Function)
		if !ok {
			errs = append(errs, ValidationError{
				Code:    ValidationCodeUnknownFunction,
				Field:   t.SourcePath,
				Message: fmt.Sprintf("transformation %q is not registered", t.Function),
			})
			continue
		}
		if (info.Variadic && len(t.Args) < info.Arity) || (!info.Variadic && len(t.Args) != info.Arity) {
			errs = append(errs, ValidationError{
				Code:    ValidationCodeArityMismatch,
				Field:   t.SourcePath,
				Message: fmt.Sprintf("transformation %q expects %d argument(s), got %d", t.Function, info.Arity, len(t.Args)),
			})
			continue
		}
		if info.IsLookup {
			errs = append(errs, v.validateLookup(m, t)...)
		}
	}
	return errs
}

// validateLookup checks that a lookup transform references a known entity
// type whose static dependency rank precedes the mapped entity type.
// Parents are always written before children; a lookup onto an equal or
// later rank would form a cycle.
func (v *Validator) validateLookup(m *FieldMapping, t TransformationSpec) []ValidationError {
	dep := sync.EntityType(t.Args[0])
	if !dep.IsValid() {
		return []ValidationError{{
			Code:    ValidationCodeUnknownLookupEntity,
			Field:   t.SourcePath,
			Message: fmt.Sprintf("lookup entity type %q is unknown", t.Args[0]),
		}}
	}
	if dep.DependencyRank() >= m.EntityType.DependencyRank() {
		return []ValidationError{{
			Code:    ValidationCodeDependencyCycle,
			Field:   t.SourcePath,
			Message: fmt.Sprintf("lookup of %s from %s violates the topological entity order", dep, m.EntityType),
		}}
	}
	return nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

type leafMap struct {
	sourcePath string
	targetPath string
}

// collectLeafMaps flattens nested item maps into absolute-path leaves in
// declaration order.
func collectLeafMaps(maps []FieldMap, sourcePrefix, targetPrefix string) []leafMap {
	var leaves []leafMap
	for _, fm := range maps {
		if fm.IsArray {
			leaves = append(leaves, collectLeafMaps(fm.ItemMaps,
				joinPath(sourcePrefix, fm.SourcePath),
				joinPath(targetPrefix, fm.TargetPath))...)
			continue
		}
		leaves = append(leaves, leafMap{
			sourcePath: joinPath(sourcePrefix, fm.SourcePath),
			targetPath: joinPath(targetPrefix, fm.TargetPath),
		})
	}
	return leaves
}

func joinPath(prefix, path string) string {
	if prefix == "" {
		return path
	}
	return prefix + "." + path
}

func joinFields(fields []string) string {
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += ", "
		}
		out += f
	}
	return out
}
