package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getTableByQrToken = `
SELECT id, tenant_id, number, display_name, qr_token, is_active, created_at
FROM tables
WHERE qr_token = $1
`

func (q *Queries) GetTableByQrToken(ctx context.Context, qrToken string) (Table, error) {
	row := q.db.QueryRow(ctx, getTableByQrToken, qrToken)
	var t Table
	err := row.Scan(&t.ID, &t.TenantID, &t.Number, &t.DisplayName, &t.QrToken, &t.IsActive, &t.CreatedAt)
	return t, err
}

const getTable = `
SELECT id, tenant_id, number, display_name, qr_token, is_active, created_at
FROM tables
WHERE id = $1 AND tenant_id = $2
`

type GetTableParams struct {
	ID       uuid.UUID
	TenantID uuid.UUID
}

func (q *Queries) GetTable(ctx context.Context, arg GetTableParams) (Table, error) {
	row := q.db.QueryRow(ctx, getTable, arg.ID, arg.TenantID)
	var t Table
	err := row.Scan(&t.ID, &t.TenantID, &t.Number, &t.DisplayName, &t.QrToken, &t.IsActive, &t.CreatedAt)
	return t, err
}

const getTableByNumber = `
SELECT id, tenant_id, number, display_name, qr_token, is_active, created_at
FROM tables
WHERE number = $1 AND tenant_id = $2
`

type GetTableByNumberParams struct {
	Number   int32
	TenantID uuid.UUID
}

func (q *Queries) GetTableByNumber(ctx context.Context, arg GetTableByNumberParams) (Table, error) {
	row := q.db.QueryRow(ctx, getTableByNumber, arg.Number, arg.TenantID)
	var t Table
	err := row.Scan(&t.ID, &t.TenantID, &t.Number, &t.DisplayName, &t.QrToken, &t.IsActive, &t.CreatedAt)
	return t, err
}

const listTables = `
SELECT id, tenant_id, number, display_name, qr_token, is_active, created_at
FROM tables
WHERE tenant_id = $1
ORDER BY number
`

func (q *Queries) ListTables(ctx context.Context, tenantID uuid.UUID) ([]Table, error) {
	rows, err := q.db.Query(ctx, listTables, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Table
	for rows.Next() {
		var t Table
		if err := rows.Scan(&t.ID, &t.TenantID, &t.Number, &t.DisplayName, &t.QrToken, &t.IsActive, &t.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const createTable = `
INSERT INTO tables (tenant_id, number, display_name, qr_token)
VALUES ($1, $2, $3, $4)
RETURNING id, tenant_id, number, display_name, qr_token, is_active, created_at
`

type CreateTableParams struct {
	TenantID    uuid.UUID
	Number      int32
	DisplayName pgtype.Text
	QrToken     string
}

func (q *Queries) CreateTable(ctx context.Context, arg CreateTableParams) (Table, error) {
	row := q.db.QueryRow(ctx, createTable, arg.TenantID, arg.Number, arg.DisplayName, arg.QrToken)
	var t Table
	err := row.Scan(&t.ID, &t.TenantID, &t.Number, &t.DisplayName, &t.QrToken, &t.IsActive, &t.CreatedAt)
	return t, err
}

const setTableActive = `
UPDATE tables
SET is_active = $3
WHERE id = $1 AND tenant_id = $2
RETURNING id, tenant_id, number, display_name, qr_token, is_active, created_at
`

type SetTableActiveParams struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	IsActive bool
}

func (q *Queries) SetTableActive(ctx context.Context, arg SetTableActiveParams) (Table, error) {
	row := q.db.QueryRow(ctx, setTableActive, arg.ID, arg.TenantID, arg.IsActive)
	var t Table
	err := row.Scan(&t.ID, &t.TenantID, &t.Number, &t.DisplayName, &t.QrToken, &t.IsActive, &t.CreatedAt)
	return t, err
}

const countOpenOrdersByTable = `
SELECT COUNT(*)
FROM orders
WHERE table_id = $1 AND status NOT IN ('COMPLETED', 'CANCELLED')
`

func (q *Queries) CountOpenOrdersByTable(ctx context.Context, tableID uuid.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countOpenOrdersByTable, tableID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const deleteTable = `
DELETE FROM tables
WHERE id = $1 AND tenant_id = $2
`

type DeleteTableParams struct {
	ID       uuid.UUID
	TenantID uuid.UUID
}

func (q *Queries) DeleteTable(ctx context.Context, arg DeleteTableParams) error {
	_, err := q.db.Exec(ctx, deleteTable, arg.ID, arg.TenantID)
	return err
}
