package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/scanbite/api/internal/database"
	"github.com/shopspring/decimal"
)

const maxInvoiceNumberRetries = 3

// Errors returned by the invoice service.
var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrNegativeAdjustment   = errors.New("discount and tip must be >= 0")
	ErrInvalidPaymentMethod = errors.New("invalid payment_method")
)

// InvoiceStore defines the DB methods needed to build invoice snapshots.
// Satisfied by *database.Queries (and its WithTx variant).
type InvoiceStore interface {
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListActiveTaxSettings(ctx context.Context, tenantID uuid.UUID) ([]database.TaxSetting, error)
	CreateInvoice(ctx context.Context, arg database.CreateInvoiceParams) (database.Invoice, error)
	CreateInvoiceTaxLine(ctx context.Context, arg database.CreateInvoiceTaxLineParams) (database.InvoiceTaxLine, error)
}

// NewInvoiceStore creates an InvoiceStore from a DBTX (pool or tx).
type NewInvoiceStore func(db database.DBTX) InvoiceStore

// BuildInvoiceRequest is the input for freezing an order into an invoice.
type BuildInvoiceRequest struct {
	TenantID      uuid.UUID
	OrderID       uuid.UUID
	Discount      decimal.Decimal
	Tip           decimal.Decimal
	PaymentMethod string
}

// BuildInvoiceResult is the created snapshot with its tax breakdown.
type BuildInvoiceResult struct {
	Invoice  database.Invoice
	TaxLines []database.InvoiceTaxLine
}

// InvoiceService freezes completed orders into immutable billing snapshots.
// Re-invoking for the same order creates a new invoice every time (no
// upsert); duplicate prevention, if wanted, belongs to the caller.
type InvoiceService struct {
	pool     TxBeginner
	newStore NewInvoiceStore
}

func NewInvoiceService(pool TxBeginner, newStore NewInvoiceStore) *InvoiceService {
	return &InvoiceService{pool: pool, newStore: newStore}
}

// BuildInvoice applies each active tenant tax rule to the order subtotal,
// computes grand_total = subtotal + taxes - discount + tip, and persists the
// invoice with its tax lines atomically. Retries on invoice_number
// collisions like order creation does.
func (s *InvoiceService) BuildInvoice(ctx context.Context, req BuildInvoiceRequest) (*BuildInvoiceResult, error) {
	if req.Discount.IsNegative() || req.Tip.IsNegative() {
		return nil, ErrNegativeAdjustment
	}
	if req.PaymentMethod == "" {
		return nil, ErrInvalidPaymentMethod
	}

	var lastErr error
	for attempt := 0; attempt < maxInvoiceNumberRetries; attempt++ {
		result, err := s.buildInvoiceTx(ctx, req)
		if err == nil {
			return result, nil
		}
		if isInvoiceNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func (s *InvoiceService) buildInvoiceTx(ctx context.Context, req BuildInvoiceRequest) (*BuildInvoiceResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrder(ctx, database.GetOrderParams{ID: req.OrderID, TenantID: req.TenantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	subtotal := numericToDecimal(order.Subtotal)

	// --- Tax breakdown: one line per active rule, in configured order ---
	settings, err := store.ListActiveTaxSettings(ctx, req.TenantID)
	if err != nil {
		return nil, fmt.Errorf("list tax settings: %w", err)
	}

	type taxLine struct {
		name   string
		rate   decimal.Decimal
		amount decimal.Decimal
	}
	var breakdown []taxLine
	taxTotal := decimal.Zero
	for _, ts := range settings {
		rate := numericToDecimal(ts.Rate)
		amount := subtotal.Mul(rate).Div(decimal.NewFromInt(100))
		taxTotal = taxTotal.Add(amount)
		breakdown = append(breakdown, taxLine{name: ts.Name, rate: rate, amount: amount})
	}

	grandTotal := subtotal.Add(taxTotal).Sub(req.Discount).Add(req.Tip)
	if grandTotal.IsNegative() {
		grandTotal = decimal.Zero
	}

	invoice, err := store.CreateInvoice(ctx, database.CreateInvoiceParams{
		TenantID:      req.TenantID,
		OrderID:       order.ID,
		InvoiceNumber: "INV-" + randomCode(6),
		CustomerName:  order.CustomerName,
		CustomerPhone: order.CustomerPhone,
		Subtotal:      decimalToNumeric(subtotal),
		Discount:      decimalToNumeric(req.Discount),
		Tip:           decimalToNumeric(req.Tip),
		GrandTotal:    decimalToNumeric(grandTotal),
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: order.PaymentStatus,
	})
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	var lines []database.InvoiceTaxLine
	for i, tl := range breakdown {
		line, err := store.CreateInvoiceTaxLine(ctx, database.CreateInvoiceTaxLineParams{
			InvoiceID: invoice.ID,
			Name:      tl.name,
			Rate:      decimalToNumeric(tl.rate),
			Amount:    decimalToNumeric(tl.amount),
			Position:  int32(i),
		})
		if err != nil {
			return nil, fmt.Errorf("create invoice tax line: %w", err)
		}
		lines = append(lines, line)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &BuildInvoiceResult{Invoice: invoice, TaxLines: lines}, nil
}

func isInvoiceNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "invoices_tenant_id_invoice_number_key"
	}
	return false
}
