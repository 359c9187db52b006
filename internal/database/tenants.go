package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createTenant = `
INSERT INTO tenants (name, slug)
VALUES ($1, $2)
RETURNING id, name, slug, created_at
`

type CreateTenantParams struct {
	Name string
	Slug string
}

func (q *Queries) CreateTenant(ctx context.Context, arg CreateTenantParams) (Tenant, error) {
	row := q.db.QueryRow(ctx, createTenant, arg.Name, arg.Slug)
	var t Tenant
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt)
	return t, err
}

const getTenant = `
SELECT id, name, slug, created_at
FROM tenants
WHERE id = $1
`

func (q *Queries) GetTenant(ctx context.Context, id uuid.UUID) (Tenant, error) {
	row := q.db.QueryRow(ctx, getTenant, id)
	var t Tenant
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt)
	return t, err
}

const listActiveTaxSettings = `
SELECT id, tenant_id, name, rate, is_active, position
FROM tax_settings
WHERE tenant_id = $1 AND is_active = TRUE
ORDER BY position
`

func (q *Queries) ListActiveTaxSettings(ctx context.Context, tenantID uuid.UUID) ([]TaxSetting, error) {
	rows, err := q.db.Query(ctx, listActiveTaxSettings, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TaxSetting
	for rows.Next() {
		var t TaxSetting
		if err := rows.Scan(&t.ID, &t.TenantID, &t.Name, &t.Rate, &t.IsActive, &t.Position); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const createTaxSetting = `
INSERT INTO tax_settings (tenant_id, name, rate, position)
VALUES ($1, $2, $3, $4)
RETURNING id, tenant_id, name, rate, is_active, position
`

type CreateTaxSettingParams struct {
	TenantID uuid.UUID
	Name     string
	Rate     pgtype.Numeric
	Position int32
}

func (q *Queries) CreateTaxSetting(ctx context.Context, arg CreateTaxSettingParams) (TaxSetting, error) {
	row := q.db.QueryRow(ctx, createTaxSetting, arg.TenantID, arg.Name, arg.Rate, arg.Position)
	var t TaxSetting
	err := row.Scan(&t.ID, &t.TenantID, &t.Name, &t.Rate, &t.IsActive, &t.Position)
	return t, err
}
