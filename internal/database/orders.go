package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createOrder = `
INSERT INTO orders (
	tenant_id, table_id, order_number, customer_name, customer_phone,
	subtotal, tax_amount, total_amount, estimated_time, special_requests
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id, tenant_id, table_id, order_number, customer_name, customer_phone,
	status, payment_status, subtotal, tax_amount, total_amount,
	estimated_time, special_requests, created_at, updated_at
`

type CreateOrderParams struct {
	TenantID        uuid.UUID
	TableID         uuid.UUID
	OrderNumber     string
	CustomerName    pgtype.Text
	CustomerPhone   pgtype.Text
	Subtotal        pgtype.Numeric
	TaxAmount       pgtype.Numeric
	TotalAmount     pgtype.Numeric
	EstimatedTime   int32
	SpecialRequests pgtype.Text
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.TenantID, arg.TableID, arg.OrderNumber, arg.CustomerName, arg.CustomerPhone,
		arg.Subtotal, arg.TaxAmount, arg.TotalAmount, arg.EstimatedTime, arg.SpecialRequests,
	)
	return scanOrder(row)
}

const createOrderItem = `
INSERT INTO order_items (order_id, menu_item_id, name_snapshot, quantity, unit_price, customizations, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, order_id, menu_item_id, name_snapshot, quantity, unit_price, customizations, notes
`

type CreateOrderItemParams struct {
	OrderID        uuid.UUID
	MenuItemID     uuid.UUID
	NameSnapshot   string
	Quantity       int32
	UnitPrice      pgtype.Numeric
	Customizations []byte
	Notes          pgtype.Text
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID, arg.MenuItemID, arg.NameSnapshot, arg.Quantity,
		arg.UnitPrice, arg.Customizations, arg.Notes,
	)
	var it OrderItem
	err := row.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.NameSnapshot, &it.Quantity, &it.UnitPrice, &it.Customizations, &it.Notes)
	return it, err
}

const getOrder = `
SELECT id, tenant_id, table_id, order_number, customer_name, customer_phone,
	status, payment_status, subtotal, tax_amount, total_amount,
	estimated_time, special_requests, created_at, updated_at
FROM orders
WHERE id = $1 AND tenant_id = $2
`

type GetOrderParams struct {
	ID       uuid.UUID
	TenantID uuid.UUID
}

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, getOrder, arg.ID, arg.TenantID)
	return scanOrder(row)
}

const listOrders = `
SELECT id, tenant_id, table_id, order_number, customer_name, customer_phone,
	status, payment_status, subtotal, tax_amount, total_amount,
	estimated_time, special_requests, created_at, updated_at
FROM orders
WHERE tenant_id = $1
	AND ($2::text IS NULL OR status = $2)
	AND ($3::uuid IS NULL OR table_id = $3)
ORDER BY created_at DESC
LIMIT $4 OFFSET $5
`

type ListOrdersParams struct {
	TenantID uuid.UUID
	Status   NullOrderStatus
	TableID  pgtype.UUID
	Limit    int32
	Offset   int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	var status *string
	if arg.Status.Valid {
		s := string(arg.Status.OrderStatus)
		status = &s
	}
	var tableID *uuid.UUID
	if arg.TableID.Valid {
		id := uuid.UUID(arg.TableID.Bytes)
		tableID = &id
	}

	rows, err := q.db.Query(ctx, listOrders, arg.TenantID, status, tableID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const listOrdersByTable = `
SELECT id, tenant_id, table_id, order_number, customer_name, customer_phone,
	status, payment_status, subtotal, tax_amount, total_amount,
	estimated_time, special_requests, created_at, updated_at
FROM orders
WHERE table_id = $1 AND tenant_id = $2
ORDER BY created_at DESC
LIMIT 20
`

type ListOrdersByTableParams struct {
	TableID  uuid.UUID
	TenantID uuid.UUID
}

func (q *Queries) ListOrdersByTable(ctx context.Context, arg ListOrdersByTableParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByTable, arg.TableID, arg.TenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const listOrderItemsByOrder = `
SELECT id, order_id, menu_item_id, name_snapshot, quantity, unit_price, customizations, notes
FROM order_items
WHERE order_id = $1
ORDER BY id
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.NameSnapshot, &it.Quantity, &it.UnitPrice, &it.Customizations, &it.Notes); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// updateOrderStatus is a compare-and-set: the WHERE clause pins the status the
// caller validated against, so a concurrent transition makes this return no
// rows instead of silently overwriting.
const updateOrderStatus = `
UPDATE orders
SET status = $3, updated_at = NOW()
WHERE id = $1 AND tenant_id = $2 AND status = $4
RETURNING id, tenant_id, table_id, order_number, customer_name, customer_phone,
	status, payment_status, subtotal, tax_amount, total_amount,
	estimated_time, special_requests, created_at, updated_at
`

type UpdateOrderStatusParams struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	Status     OrderStatus
	FromStatus OrderStatus
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.TenantID, arg.Status, arg.FromStatus)
	return scanOrder(row)
}

const setOrderPaymentStatus = `
UPDATE orders
SET payment_status = $3, updated_at = NOW()
WHERE id = $1 AND tenant_id = $2
RETURNING id, tenant_id, table_id, order_number, customer_name, customer_phone,
	status, payment_status, subtotal, tax_amount, total_amount,
	estimated_time, special_requests, created_at, updated_at
`

type SetOrderPaymentStatusParams struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	PaymentStatus PaymentStatus
}

func (q *Queries) SetOrderPaymentStatus(ctx context.Context, arg SetOrderPaymentStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, setOrderPaymentStatus, arg.ID, arg.TenantID, arg.PaymentStatus)
	return scanOrder(row)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.TenantID, &o.TableID, &o.OrderNumber, &o.CustomerName, &o.CustomerPhone,
		&o.Status, &o.PaymentStatus, &o.Subtotal, &o.TaxAmount, &o.TotalAmount,
		&o.EstimatedTime, &o.SpecialRequests, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}
