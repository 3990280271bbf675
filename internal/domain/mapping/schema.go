package mapping

import (
	"strings"

	"github.com/retailops/backend/internal/domain/sync"
)

// FieldKind is the declared type of a schema field.
type FieldKind string

const (
	FieldKindString  FieldKind = "STRING"
	FieldKindNumber  FieldKind = "NUMBER"
	FieldKindBool    FieldKind = "BOOL"
	FieldKindDate    FieldKind = "DATE"
	FieldKindObject  FieldKind = "OBJECT"
	FieldKindArray   FieldKind = "ARRAY"
	FieldKindUnknown FieldKind = "UNKNOWN"
)

// FieldDef describes one declared field of a platform schema.
type FieldDef struct {
	Path string
	Kind FieldKind
	// Custom marks tenant-defined custom fields, which count against the
	// platform's custom-field ceiling
	Custom bool
}

// PlatformSchema declares the structure one platform exposes for one entity
// type, together with the platform's structural ceilings. Schemas are
// versioned independently per platform; the validator only consults the
// declared paths and ceilings.
type PlatformSchema struct {
	Platform   sync.Platform
	EntityType sync.EntityType
	Version    string
	Fields     []FieldDef
	// MaxFieldMappings caps the total number of field maps targeting this
	// platform (0 = unlimited)
	MaxFieldMappings int
	// MaxCustomFieldMappings caps maps onto custom fields (0 = unlimited)
	MaxCustomFieldMappings int
}

// HasPath reports whether the schema declares the given dot-notation path.
// Array element paths are declared relative to the array field, so
// "items[].sku" resolves against the "items" array's "sku" element field.
func (s *PlatformSchema) HasPath(path string) bool {
	normalized := strings.ReplaceAll(path, "[]", "")
	for _, f := range s.Fields {
		if f.Path == normalized {
			return true
		}
	}
	return false
}

// FieldAt returns the field definition at the given path
func (s *PlatformSchema) FieldAt(path string) (FieldDef, bool) {
	normalized := strings.ReplaceAll(path, "[]", "")
	for _, f := range s.Fields {
		if f.Path == normalized {
			return f, true
		}
	}
	return FieldDef{}, false
}

// IsCustomPath reports whether the path addresses a custom field
func (s *PlatformSchema) IsCustomPath(path string) bool {
	f, ok := s.FieldAt(path)
	return ok && f.Custom
}

// SchemaProvider resolves the declared schema for (platform, entity type).
type SchemaProvider interface {
	// Schema returns the current schema, or false when the platform does not
	// expose the entity type
	Schema(platform sync.Platform, entityType sync.EntityType) (*PlatformSchema, bool)
}
