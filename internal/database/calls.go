package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// createWaiterCall relies on the partial unique index
// waiter_calls_one_open_per_table: inserting a second open call for the same
// table fails with a 23505, which the service maps to an "already called" ack.
const createWaiterCall = `
INSERT INTO waiter_calls (tenant_id, table_id, reason)
VALUES ($1, $2, $3)
RETURNING id, tenant_id, table_id, reason, status, attended_by, attended_at, created_at
`

type CreateWaiterCallParams struct {
	TenantID uuid.UUID
	TableID  uuid.UUID
	Reason   pgtype.Text
}

func (q *Queries) CreateWaiterCall(ctx context.Context, arg CreateWaiterCallParams) (WaiterCall, error) {
	row := q.db.QueryRow(ctx, createWaiterCall, arg.TenantID, arg.TableID, arg.Reason)
	return scanWaiterCall(row)
}

const getWaiterCall = `
SELECT id, tenant_id, table_id, reason, status, attended_by, attended_at, created_at
FROM waiter_calls
WHERE id = $1 AND tenant_id = $2
`

type GetWaiterCallParams struct {
	ID       uuid.UUID
	TenantID uuid.UUID
}

func (q *Queries) GetWaiterCall(ctx context.Context, arg GetWaiterCallParams) (WaiterCall, error) {
	row := q.db.QueryRow(ctx, getWaiterCall, arg.ID, arg.TenantID)
	return scanWaiterCall(row)
}

const getOpenWaiterCallByTable = `
SELECT id, tenant_id, table_id, reason, status, attended_by, attended_at, created_at
FROM waiter_calls
WHERE table_id = $1 AND tenant_id = $2 AND status IN ('PENDING', 'ATTENDED')
`

type GetOpenWaiterCallByTableParams struct {
	TableID  uuid.UUID
	TenantID uuid.UUID
}

func (q *Queries) GetOpenWaiterCallByTable(ctx context.Context, arg GetOpenWaiterCallByTableParams) (WaiterCall, error) {
	row := q.db.QueryRow(ctx, getOpenWaiterCallByTable, arg.TableID, arg.TenantID)
	return scanWaiterCall(row)
}

const listWaiterCalls = `
SELECT id, tenant_id, table_id, reason, status, attended_by, attended_at, created_at
FROM waiter_calls
WHERE tenant_id = $1
	AND ($2::boolean = FALSE OR status IN ('PENDING', 'ATTENDED'))
ORDER BY created_at
`

type ListWaiterCallsParams struct {
	TenantID uuid.UUID
	OnlyOpen bool
}

func (q *Queries) ListWaiterCalls(ctx context.Context, arg ListWaiterCallsParams) ([]WaiterCall, error) {
	rows, err := q.db.Query(ctx, listWaiterCalls, arg.TenantID, arg.OnlyOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []WaiterCall
	for rows.Next() {
		c, err := scanWaiterCall(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// updateWaiterCallStatus is a compare-and-set like updateOrderStatus; a racing
// staff member gets no rows back rather than clobbering the transition.
const updateWaiterCallStatus = `
UPDATE waiter_calls
SET status = $3,
	attended_by = COALESCE($5, attended_by),
	attended_at = COALESCE($6, attended_at)
WHERE id = $1 AND tenant_id = $2 AND status = $4
RETURNING id, tenant_id, table_id, reason, status, attended_by, attended_at, created_at
`

type UpdateWaiterCallStatusParams struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	Status     CallStatus
	FromStatus CallStatus
	AttendedBy pgtype.UUID
	AttendedAt pgtype.Timestamptz
}

func (q *Queries) UpdateWaiterCallStatus(ctx context.Context, arg UpdateWaiterCallStatusParams) (WaiterCall, error) {
	row := q.db.QueryRow(ctx, updateWaiterCallStatus,
		arg.ID, arg.TenantID, arg.Status, arg.FromStatus, arg.AttendedBy, arg.AttendedAt)
	return scanWaiterCall(row)
}

func scanWaiterCall(row scanner) (WaiterCall, error) {
	var c WaiterCall
	err := row.Scan(&c.ID, &c.TenantID, &c.TableID, &c.Reason, &c.Status, &c.AttendedBy, &c.AttendedAt, &c.CreatedAt)
	return c, err
}
