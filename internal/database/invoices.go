package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createInvoice = `
INSERT INTO invoices (
	tenant_id, order_id, invoice_number, customer_name, customer_phone,
	subtotal, discount, tip, grand_total, payment_method, payment_status
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id, tenant_id, order_id, invoice_number, customer_name, customer_phone,
	subtotal, discount, tip, grand_total, payment_method, payment_status, created_at
`

type CreateInvoiceParams struct {
	TenantID      uuid.UUID
	OrderID       uuid.UUID
	InvoiceNumber string
	CustomerName  pgtype.Text
	CustomerPhone pgtype.Text
	Subtotal      pgtype.Numeric
	Discount      pgtype.Numeric
	Tip           pgtype.Numeric
	GrandTotal    pgtype.Numeric
	PaymentMethod string
	PaymentStatus PaymentStatus
}

func (q *Queries) CreateInvoice(ctx context.Context, arg CreateInvoiceParams) (Invoice, error) {
	row := q.db.QueryRow(ctx, createInvoice,
		arg.TenantID, arg.OrderID, arg.InvoiceNumber, arg.CustomerName, arg.CustomerPhone,
		arg.Subtotal, arg.Discount, arg.Tip, arg.GrandTotal, arg.PaymentMethod, arg.PaymentStatus,
	)
	return scanInvoice(row)
}

const createInvoiceTaxLine = `
INSERT INTO invoice_tax_lines (invoice_id, name, rate, amount, position)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, invoice_id, name, rate, amount, position
`

type CreateInvoiceTaxLineParams struct {
	InvoiceID uuid.UUID
	Name      string
	Rate      pgtype.Numeric
	Amount    pgtype.Numeric
	Position  int32
}

func (q *Queries) CreateInvoiceTaxLine(ctx context.Context, arg CreateInvoiceTaxLineParams) (InvoiceTaxLine, error) {
	row := q.db.QueryRow(ctx, createInvoiceTaxLine, arg.InvoiceID, arg.Name, arg.Rate, arg.Amount, arg.Position)
	var l InvoiceTaxLine
	err := row.Scan(&l.ID, &l.InvoiceID, &l.Name, &l.Rate, &l.Amount, &l.Position)
	return l, err
}

const getInvoice = `
SELECT id, tenant_id, order_id, invoice_number, customer_name, customer_phone,
	subtotal, discount, tip, grand_total, payment_method, payment_status, created_at
FROM invoices
WHERE id = $1 AND tenant_id = $2
`

type GetInvoiceParams struct {
	ID       uuid.UUID
	TenantID uuid.UUID
}

func (q *Queries) GetInvoice(ctx context.Context, arg GetInvoiceParams) (Invoice, error) {
	row := q.db.QueryRow(ctx, getInvoice, arg.ID, arg.TenantID)
	return scanInvoice(row)
}

const listInvoicesByOrder = `
SELECT id, tenant_id, order_id, invoice_number, customer_name, customer_phone,
	subtotal, discount, tip, grand_total, payment_method, payment_status, created_at
FROM invoices
WHERE order_id = $1 AND tenant_id = $2
ORDER BY created_at
`

type ListInvoicesByOrderParams struct {
	OrderID  uuid.UUID
	TenantID uuid.UUID
}

func (q *Queries) ListInvoicesByOrder(ctx context.Context, arg ListInvoicesByOrderParams) ([]Invoice, error) {
	rows, err := q.db.Query(ctx, listInvoicesByOrder, arg.OrderID, arg.TenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, inv)
	}
	return items, rows.Err()
}

const listInvoiceTaxLines = `
SELECT id, invoice_id, name, rate, amount, position
FROM invoice_tax_lines
WHERE invoice_id = $1
ORDER BY position
`

func (q *Queries) ListInvoiceTaxLines(ctx context.Context, invoiceID uuid.UUID) ([]InvoiceTaxLine, error) {
	rows, err := q.db.Query(ctx, listInvoiceTaxLines, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InvoiceTaxLine
	for rows.Next() {
		var l InvoiceTaxLine
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.Name, &l.Rate, &l.Amount, &l.Position); err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

func scanInvoice(row scanner) (Invoice, error) {
	var inv Invoice
	err := row.Scan(
		&inv.ID, &inv.TenantID, &inv.OrderID, &inv.InvoiceNumber, &inv.CustomerName, &inv.CustomerPhone,
		&inv.Subtotal, &inv.Discount, &inv.Tip, &inv.GrandTotal, &inv.PaymentMethod, &inv.PaymentStatus,
		&inv.CreatedAt,
	)
	return inv, err
}
