package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getMenuItemForOrder = `
SELECT id, tenant_id, name, price
FROM menu_items
WHERE id = $1 AND tenant_id = $2 AND is_available = TRUE
`

type GetMenuItemForOrderParams struct {
	ID       uuid.UUID
	TenantID uuid.UUID
}

type GetMenuItemForOrderRow struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Name     string
	Price    pgtype.Numeric
}

func (q *Queries) GetMenuItemForOrder(ctx context.Context, arg GetMenuItemForOrderParams) (GetMenuItemForOrderRow, error) {
	row := q.db.QueryRow(ctx, getMenuItemForOrder, arg.ID, arg.TenantID)
	var m GetMenuItemForOrderRow
	err := row.Scan(&m.ID, &m.TenantID, &m.Name, &m.Price)
	return m, err
}

const listMenuItems = `
SELECT id, tenant_id, name, description, price, is_available, created_at
FROM menu_items
WHERE tenant_id = $1 AND is_available = TRUE
ORDER BY name
`

func (q *Queries) ListMenuItems(ctx context.Context, tenantID uuid.UUID) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItems, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MenuItem
	for rows.Next() {
		var m MenuItem
		if err := rows.Scan(&m.ID, &m.TenantID, &m.Name, &m.Description, &m.Price, &m.IsAvailable, &m.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const createMenuItem = `
INSERT INTO menu_items (tenant_id, name, description, price)
VALUES ($1, $2, $3, $4)
RETURNING id, tenant_id, name, description, price, is_available, created_at
`

type CreateMenuItemParams struct {
	TenantID    uuid.UUID
	Name        string
	Description pgtype.Text
	Price       pgtype.Numeric
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, createMenuItem, arg.TenantID, arg.Name, arg.Description, arg.Price)
	var m MenuItem
	err := row.Scan(&m.ID, &m.TenantID, &m.Name, &m.Description, &m.Price, &m.IsAvailable, &m.CreatedAt)
	return m, err
}
