package domain

import (
	"fmt"

	"github.com/samber/lo"
)

// Model names.
const (
	ModelTenant         = "Tenant"
	ModelUser           = "User"
	ModelClient         = "Client"
	ModelBooking        = "Booking"
	ModelServiceRequest = "ServiceRequest"
	ModelSetting        = "Setting"
)

// Field maps an API field name to its column.
type Field struct {
	Name   string
	Column string
	// Unique fields may be used as upsert conflict targets.
	Unique bool
}

// Relation is a to-one relation resolved through a local foreign key field.
type Relation struct {
	Model    string
	LocalKey string
}

// Model describes how a model is stored.
type Model struct {
	Name         string
	Table        string
	Fields       []Field
	Relations    map[string]Relation
	TenantScoped bool
}

// Column returns the column for an API field.
func (m Model) Column(field string) (string, bool) {
	f, ok := lo.Find(m.Fields, func(f Field) bool { return f.Name == field })
	return f.Column, ok
}

// FieldForColumn maps a column back to its API field name.
func (m Model) FieldForColumn(column string) (string, bool) {
	f, ok := lo.Find(m.Fields, func(f Field) bool { return f.Column == column })
	return f.Name, ok
}

// HasField reports whether field is a stored field.
func (m Model) HasField(field string) bool {
	_, ok := m.Column(field)
	return ok
}

// Columns lists every column in declaration order.
func (m Model) Columns() []string {
	return lo.Map(m.Fields, func(f Field, _ int) string { return f.Column })
}

func stdFields(extra ...Field) []Field {
	fields := []Field{{Name: "id", Column: "id", Unique: true}}
	fields = append(fields, extra...)
	return append(fields,
		Field{Name: "createdAt", Column: "created_at"},
		Field{Name: "updatedAt", Column: "updated_at"},
	)
}

var models = map[string]Model{
	ModelTenant: {
		Name:  ModelTenant,
		Table: "tenants",
		Fields: stdFields(
			Field{Name: "name", Column: "name"},
			Field{Name: "slug", Column: "slug", Unique: true},
		),
	},
	ModelUser: {
		Name:  ModelUser,
		Table: "users",
		Fields: stdFields(
			Field{Name: "tenantId", Column: "tenant_id"},
			Field{Name: "email", Column: "email"},
			Field{Name: "name", Column: "name"},
			Field{Name: "role", Column: "role"},
			Field{Name: "tenantRole", Column: "tenant_role"},
			Field{Name: "isSuperAdmin", Column: "is_super_admin"},
			Field{Name: "apiKeyHash", Column: "api_key_hash", Unique: true},
		),
		Relations:    map[string]Relation{"tenant": {Model: ModelTenant, LocalKey: "tenantId"}},
		TenantScoped: true,
	},
	ModelClient: {
		Name:  ModelClient,
		Table: "clients",
		Fields: stdFields(
			Field{Name: "tenantId", Column: "tenant_id"},
			Field{Name: "name", Column: "name"},
			Field{Name: "email", Column: "email"},
			Field{Name: "phone", Column: "phone"},
			Field{Name: "companyNumber", Column: "company_number"},
		),
		Relations:    map[string]Relation{"tenant": {Model: ModelTenant, LocalKey: "tenantId"}},
		TenantScoped: true,
	},
	ModelBooking: {
		Name:  ModelBooking,
		Table: "bookings",
		Fields: stdFields(
			Field{Name: "tenantId", Column: "tenant_id"},
			Field{Name: "clientId", Column: "client_id"},
			Field{Name: "staffId", Column: "staff_id"},
			Field{Name: "title", Column: "title"},
			Field{Name: "status", Column: "status"},
			Field{Name: "startsAt", Column: "starts_at"},
			Field{Name: "endsAt", Column: "ends_at"},
			Field{Name: "notes", Column: "notes"},
		),
		Relations: map[string]Relation{
			"client": {Model: ModelClient, LocalKey: "clientId"},
			"staff":  {Model: ModelUser, LocalKey: "staffId"},
		},
		TenantScoped: true,
	},
	ModelServiceRequest: {
		Name:  ModelServiceRequest,
		Table: "service_requests",
		Fields: stdFields(
			Field{Name: "tenantId", Column: "tenant_id"},
			Field{Name: "clientId", Column: "client_id"},
			Field{Name: "title", Column: "title"},
			Field{Name: "description", Column: "description"},
			Field{Name: "status", Column: "status"},
			Field{Name: "feeCents", Column: "fee_cents"},
		),
		Relations:    map[string]Relation{"client": {Model: ModelClient, LocalKey: "clientId"}},
		TenantScoped: true,
	},
	ModelSetting: {
		Name:  ModelSetting,
		Table: "settings",
		Fields: stdFields(
			Field{Name: "tenantId", Column: "tenant_id"},
			Field{Name: "key", Column: "key"},
			Field{Name: "value", Column: "value"},
		),
		Relations:    map[string]Relation{"tenant": {Model: ModelTenant, LocalKey: "tenantId"}},
		TenantScoped: true,
	},
}

// LookupModel returns the registered model.
func LookupModel(name string) (Model, error) {
	m, ok := models[name]
	if !ok {
		return Model{}, fmt.Errorf("unknown model %q", name)
	}
	return m, nil
}

// ModelNames lists every registered model.
func ModelNames() []string {
	return lo.Keys(models)
}

// UnscopedModels lists models that are not owned by a tenant.
func UnscopedModels() []string {
	return lo.FilterMap(lo.Values(models), func(m Model, _ int) (string, bool) {
		return m.Name, !m.TenantScoped
	})
}
