package platform

import (
	"github.com/retailops/backend/internal/domain/mapping"
	"github.com/retailops/backend/internal/domain/sync"
)

// StaticSchemaProvider serves the declared platform schemas from memory.
// Schemas change with platform API versions, not at runtime, so a static
// declaration keeps validation deterministic.
type StaticSchemaProvider struct {
	schemas map[schemaKey]*mapping.PlatformSchema
}

type schemaKey struct {
	platform   sync.Platform
	entityType sync.EntityType
}

// NewStaticSchemaProvider creates a provider with the built-in schemas
func NewStaticSchemaProvider() *StaticSchemaProvider {
	p := &StaticSchemaProvider{schemas: make(map[schemaKey]*mapping.PlatformSchema)}
	for _, s := range builtinSchemas() {
		p.add(s)
	}
	return p
}

// add registers one schema
func (p *StaticSchemaProvider) add(s mapping.PlatformSchema) {
	schema := s
	p.schemas[schemaKey{platform: s.Platform, entityType: s.EntityType}] = &schema
}

// Schema returns the declared schema for (platform, entity type)
func (p *StaticSchemaProvider) Schema(platform sync.Platform, entityType sync.EntityType) (*mapping.PlatformSchema, bool) {
	s, ok := p.schemas[schemaKey{platform: platform, entityType: entityType}]
	return s, ok
}

// Ensure StaticSchemaProvider implements the schema port
var _ mapping.SchemaProvider = (*StaticSchemaProvider)(nil)

// builtinSchemas declares what each platform exposes per entity type.
// Array element paths are declared relative to the array field.
func builtinSchemas() []mapping.PlatformSchema {
	return []mapping.PlatformSchema{
		// The back office exposes every entity type
		{
			Platform:   sync.PlatformInternal,
			EntityType: sync.EntityTypeCustomer,
			Version:    "2026-01",
			Fields: []mapping.FieldDef{
				{Path: "code", Kind: mapping.FieldKindString},
				{Path: "name", Kind: mapping.FieldKindString},
				{Path: "email", Kind: mapping.FieldKindString},
				{Path: "phone", Kind: mapping.FieldKindString},
				{Path: "level", Kind: mapping.FieldKindString},
				{Path: "balance", Kind: mapping.FieldKindNumber},
				{Path: "address.street", Kind: mapping.FieldKindString},
				{Path: "address.city", Kind: mapping.FieldKindString},
				{Path: "address.country", Kind: mapping.FieldKindString},
				{Path: "address.postal_code", Kind: mapping.FieldKindString},
				{Path: "created_at", Kind: mapping.FieldKindDate},
				{Path: "notes", Kind: mapping.FieldKindString},
			},
		},
		{
			Platform:   sync.PlatformInternal,
			EntityType: sync.EntityTypeProduct,
			Version:    "2026-01",
			Fields: []mapping.FieldDef{
				{Path: "sku", Kind: mapping.FieldKindString},
				{Path: "name", Kind: mapping.FieldKindString},
				{Path: "description", Kind: mapping.FieldKindString},
				{Path: "category", Kind: mapping.FieldKindString},
				{Path: "unit", Kind: mapping.FieldKindString},
				{Path: "price", Kind: mapping.FieldKindNumber},
				{Path: "cost", Kind: mapping.FieldKindNumber},
				{Path: "stock_quantity", Kind: mapping.FieldKindNumber},
				{Path: "active", Kind: mapping.FieldKindBool},
				{Path: "created_at", Kind: mapping.FieldKindDate},
			},
		},
		{
			Platform:   sync.PlatformInternal,
			EntityType: sync.EntityTypeOrder,
			Version:    "2026-01",
			Fields: []mapping.FieldDef{
				{Path: "order_no", Kind: mapping.FieldKindString},
				{Path: "customer_id", Kind: mapping.FieldKindString},
				{Path: "status", Kind: mapping.FieldKindString},
				{Path: "currency", Kind: mapping.FieldKindString},
				{Path: "total", Kind: mapping.FieldKindNumber},
				{Path: "placed_at", Kind: mapping.FieldKindDate},
				{Path: "items", Kind: mapping.FieldKindArray},
				{Path: "items.product_id", Kind: mapping.FieldKindString},
				{Path: "items.sku", Kind: mapping.FieldKindString},
				{Path: "items.quantity", Kind: mapping.FieldKindNumber},
				{Path: "items.unit_price", Kind: mapping.FieldKindNumber},
			},
		},
		{
			Platform:   sync.PlatformInternal,
			EntityType: sync.EntityTypeInvoice,
			Version:    "2026-01",
			Fields: []mapping.FieldDef{
				{Path: "invoice_no", Kind: mapping.FieldKindString},
				{Path: "order_id", Kind: mapping.FieldKindString},
				{Path: "customer_id", Kind: mapping.FieldKindString},
				{Path: "status", Kind: mapping.FieldKindString},
				{Path: "currency", Kind: mapping.FieldKindString},
				{Path: "amount", Kind: mapping.FieldKindNumber},
				{Path: "tax_amount", Kind: mapping.FieldKindNumber},
				{Path: "issued_at", Kind: mapping.FieldKindDate},
				{Path: "due_at", Kind: mapping.FieldKindDate},
				{Path: "lines", Kind: mapping.FieldKindArray},
				{Path: "lines.description", Kind: mapping.FieldKindString},
				{Path: "lines.amount", Kind: mapping.FieldKindNumber},
			},
		},

		// The storefront sells: customers, products and orders
		{
			Platform:   sync.PlatformStorefront,
			EntityType: sync.EntityTypeCustomer,
			Version:    "v3",
			Fields: []mapping.FieldDef{
				{Path: "email", Kind: mapping.FieldKindString},
				{Path: "first_name", Kind: mapping.FieldKindString},
				{Path: "last_name", Kind: mapping.FieldKindString},
				{Path: "display_name", Kind: mapping.FieldKindString},
				{Path: "phone", Kind: mapping.FieldKindString},
				{Path: "default_address.line1", Kind: mapping.FieldKindString},
				{Path: "default_address.city", Kind: mapping.FieldKindString},
				{Path: "default_address.country_code", Kind: mapping.FieldKindString},
				{Path: "default_address.zip", Kind: mapping.FieldKindString},
				{Path: "tags", Kind: mapping.FieldKindArray},
				{Path: "metafields.loyalty_tier", Kind: mapping.FieldKindString, Custom: true},
				{Path: "metafields.store_credit", Kind: mapping.FieldKindNumber, Custom: true},
			},
			MaxFieldMappings:       50,
			MaxCustomFieldMappings: 10,
		},
		{
			Platform:   sync.PlatformStorefront,
			EntityType: sync.EntityTypeProduct,
			Version:    "v3",
			Fields: []mapping.FieldDef{
				{Path: "sku", Kind: mapping.FieldKindString},
				{Path: "title", Kind: mapping.FieldKindString},
				{Path: "body_html", Kind: mapping.FieldKindString},
				{Path: "product_type", Kind: mapping.FieldKindString},
				{Path: "price", Kind: mapping.FieldKindNumber},
				{Path: "compare_at_price", Kind: mapping.FieldKindNumber},
				{Path: "inventory_quantity", Kind: mapping.FieldKindNumber},
				{Path: "published", Kind: mapping.FieldKindBool},
				{Path: "metafields.season", Kind: mapping.FieldKindString, Custom: true},
				{Path: "metafields.material", Kind: mapping.FieldKindString, Custom: true},
			},
			MaxFieldMappings:       50,
			MaxCustomFieldMappings: 10,
		},
		{
			Platform:   sync.PlatformStorefront,
			EntityType: sync.EntityTypeOrder,
			Version:    "v3",
			Fields: []mapping.FieldDef{
				{Path: "order_number", Kind: mapping.FieldKindString},
				{Path: "customer_id", Kind: mapping.FieldKindString},
				{Path: "financial_status", Kind: mapping.FieldKindString},
				{Path: "currency", Kind: mapping.FieldKindString},
				{Path: "total_price", Kind: mapping.FieldKindNumber},
				{Path: "created_at", Kind: mapping.FieldKindDate},
				{Path: "line_items", Kind: mapping.FieldKindArray},
				{Path: "line_items.product_id", Kind: mapping.FieldKindString},
				{Path: "line_items.sku", Kind: mapping.FieldKindString},
				{Path: "line_items.quantity", Kind: mapping.FieldKindNumber},
				{Path: "line_items.price", Kind: mapping.FieldKindNumber},
			},
			MaxFieldMappings: 50,
		},

		// The accounting platform books: customers, orders and invoices
		{
			Platform:   sync.PlatformAccounting,
			EntityType: sync.EntityTypeCustomer,
			Version:    "2025.2",
			Fields: []mapping.FieldDef{
				{Path: "contact_name", Kind: mapping.FieldKindString},
				{Path: "email", Kind: mapping.FieldKindString},
				{Path: "tax_number", Kind: mapping.FieldKindString},
				{Path: "billing_address.line1", Kind: mapping.FieldKindString},
				{Path: "billing_address.city", Kind: mapping.FieldKindString},
				{Path: "billing_address.country", Kind: mapping.FieldKindString},
				{Path: "payment_terms_days", Kind: mapping.FieldKindNumber},
			},
		},
		{
			Platform:   sync.PlatformAccounting,
			EntityType: sync.EntityTypeOrder,
			Version:    "2025.2",
			Fields: []mapping.FieldDef{
				{Path: "reference", Kind: mapping.FieldKindString},
				{Path: "contact_id", Kind: mapping.FieldKindString},
				{Path: "status", Kind: mapping.FieldKindString},
				{Path: "currency_code", Kind: mapping.FieldKindString},
				{Path: "total", Kind: mapping.FieldKindNumber},
				{Path: "date", Kind: mapping.FieldKindDate},
			},
		},
		{
			Platform:   sync.PlatformAccounting,
			EntityType: sync.EntityTypeInvoice,
			Version:    "2025.2",
			Fields: []mapping.FieldDef{
				{Path: "invoice_number", Kind: mapping.FieldKindString},
				{Path: "contact_id", Kind: mapping.FieldKindString},
				{Path: "order_reference", Kind: mapping.FieldKindString},
				{Path: "status", Kind: mapping.FieldKindString},
				{Path: "currency_code", Kind: mapping.FieldKindString},
				{Path: "subtotal", Kind: mapping.FieldKindNumber},
				{Path: "tax_total", Kind: mapping.FieldKindNumber},
				{Path: "total", Kind: mapping.FieldKindNumber},
				{Path: "issue_date", Kind: mapping.FieldKindDate},
				{Path: "due_date", Kind: mapping.FieldKindDate},
				{Path: "line_items", Kind: mapping.FieldKindArray},
				{Path: "line_items.description", Kind: mapping.FieldKindString},
				{Path: "line_items.amount", Kind: mapping.FieldKindNumber},
			},
		},

		// The warehouse ingests flattened records of every entity type
		{
			Platform:   sync.PlatformWarehouse,
			EntityType: sync.EntityTypeCustomer,
			Version:    "1",
			Fields: []mapping.FieldDef{
				{Path: "customer_key", Kind: mapping.FieldKindString},
				{Path: "name", Kind: mapping.FieldKindString},
				{Path: "email", Kind: mapping.FieldKindString},
				{Path: "segment", Kind: mapping.FieldKindString},
				{Path: "country", Kind: mapping.FieldKindString},
				{Path: "first_seen_at", Kind: mapping.FieldKindDate},
			},
		},
		{
			Platform:   sync.PlatformWarehouse,
			EntityType: sync.EntityTypeProduct,
			Version:    "1",
			Fields: []mapping.FieldDef{
				{Path: "product_key", Kind: mapping.FieldKindString},
				{Path: "sku", Kind: mapping.FieldKindString},
				{Path: "name", Kind: mapping.FieldKindString},
				{Path: "category", Kind: mapping.FieldKindString},
				{Path: "list_price", Kind: mapping.FieldKindNumber},
				{Path: "unit_cost", Kind: mapping.FieldKindNumber},
			},
		},
		{
			Platform:   sync.PlatformWarehouse,
			EntityType: sync.EntityTypeOrder,
			Version:    "1",
			Fields: []mapping.FieldDef{
				{Path: "order_key", Kind: mapping.FieldKindString},
				{Path: "customer_key", Kind: mapping.FieldKindString},
				{Path: "status", Kind: mapping.FieldKindString},
				{Path: "currency", Kind: mapping.FieldKindString},
				{Path: "total_amount", Kind: mapping.FieldKindNumber},
				{Path: "ordered_at", Kind: mapping.FieldKindDate},
			},
		},
		{
			Platform:   sync.PlatformWarehouse,
			EntityType: sync.EntityTypeInvoice,
			Version:    "1",
			Fields: []mapping.FieldDef{
				{Path: "invoice_key", Kind: mapping.FieldKindString},
				{Path: "order_key", Kind: mapping.FieldKindString},
				{Path: "customer_key", Kind: mapping.FieldKindString},
				{Path: "status", Kind: mapping.FieldKindString},
				{Path: "amount", Kind: mapping.FieldKindNumber},
				{Path: "tax_amount", Kind: mapping.FieldKindNumber},
				{Path: "issued_at", Kind: mapping.FieldKindDate},
			},
		},
	}
}
