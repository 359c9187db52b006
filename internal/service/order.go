package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"regexp"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/scanbite/api/internal/auth"
	"github.com/scanbite/api/internal/database"
	"github.com/shopspring/decimal"
)

const maxOrderNumberRetries = 3

// Errors returned by the order service.
var (
	ErrEmptyCart         = errors.New("cart has no items")
	ErrInvalidQuantity   = errors.New("quantity must be > 0")
	ErrInvalidPhone      = errors.New("customer phone must be 10 digits")
	ErrInvalidMenuItemID = errors.New("invalid menu_item_id")
	ErrMenuItemNotFound  = errors.New("menu item not found")
)

var phonePattern = regexp.MustCompile(`^[0-9]{10}$`)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to create orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetMenuItemForOrder(ctx context.Context, arg database.GetMenuItemForOrderParams) (database.GetMenuItemForOrderRow, error)
	ListActiveTaxSettings(ctx context.Context, tenantID uuid.UUID) ([]database.TaxSetting, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx), so the
// service can derive store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// CartLine is a single line in the customer's cart. UnitPrice is NOT taken
// from the client; the menu price is snapshotted server-side at order time.
type CartLine struct {
	MenuItemID     string
	Quantity       int32
	Customizations map[string]string
	Notes          string
}

// CreateOrderRequest is the validated input for creating an order.
// Session carries the table binding; without one the request is rejected
// before any write happens.
type CreateOrderRequest struct {
	Session         *auth.SessionClaims
	CustomerName    string
	CustomerPhone   string
	SpecialRequests string
	Items           []CartLine
}

// CreateOrderResult is the full created order with items.
type CreateOrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// OrderService handles order creation.
type OrderService struct {
	pool           TxBeginner
	newStore       NewOrderStore
	defaultTaxRate decimal.Decimal
}

// NewOrderService creates a new OrderService. defaultTaxRate is a percentage
// (5 means 5%) used when the tenant has no tax settings of its own.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, defaultTaxRate decimal.Decimal) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, defaultTaxRate: defaultTaxRate}
}

// CreateOrder validates the cart, snapshots menu prices, computes totals,
// and persists the order atomically. Retries up to maxOrderNumberRetries
// times on order_number unique violations (two devices can draw the same
// random code).
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if req.Session == nil {
		return nil, ErrNoActiveSession
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if req.CustomerPhone != "" && !phonePattern.MatchString(req.CustomerPhone) {
		return nil, ErrInvalidPhone
	}
	for i, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.createOrderTx(ctx, req)
		if err == nil {
			return result, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// isOrderNumberConflict checks for a unique constraint violation on the
// order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_tenant_id_order_number_key"
	}
	return false
}

func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	sess := req.Session

	// --- Resolve lines against the menu, snapshotting prices ---
	type preparedLine struct {
		params database.CreateOrderItemParams
	}
	subtotal := decimal.Zero
	var lines []preparedLine

	for i, line := range req.Items {
		itemID, err := uuid.Parse(line.MenuItemID)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidMenuItemID)
		}
		menuItem, err := store.GetMenuItemForOrder(ctx, database.GetMenuItemForOrderParams{
			ID:       itemID,
			TenantID: sess.TenantID,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("items[%d]: %w", i, ErrMenuItemNotFound)
			}
			return nil, fmt.Errorf("items[%d]: get menu item: %w", i, err)
		}

		unitPrice := numericToDecimal(menuItem.Price)
		subtotal = subtotal.Add(unitPrice.Mul(decimal.NewFromInt32(line.Quantity)))

		var customizations []byte
		if len(line.Customizations) > 0 {
			customizations, err = json.Marshal(line.Customizations)
			if err != nil {
				return nil, fmt.Errorf("items[%d]: encode customizations: %w", i, err)
			}
		}

		notes := pgtype.Text{}
		if line.Notes != "" {
			notes = pgtype.Text{String: line.Notes, Valid: true}
		}

		lines = append(lines, preparedLine{params: database.CreateOrderItemParams{
			MenuItemID:     itemID,
			NameSnapshot:   menuItem.Name,
			Quantity:       line.Quantity,
			UnitPrice:      decimalToNumeric(unitPrice),
			Customizations: customizations,
			Notes:          notes,
		}})
	}

	// --- Tax from tenant settings, falling back to the platform default ---
	taxRate, err := s.effectiveTaxRate(ctx, store, sess.TenantID)
	if err != nil {
		return nil, err
	}
	taxAmount := subtotal.Mul(taxRate).Div(decimal.NewFromInt(100))
	totalAmount := subtotal.Add(taxAmount)

	customerName := pgtype.Text{}
	if req.CustomerName != "" {
		customerName = pgtype.Text{String: req.CustomerName, Valid: true}
	}
	customerPhone := pgtype.Text{}
	if req.CustomerPhone != "" {
		customerPhone = pgtype.Text{String: req.CustomerPhone, Valid: true}
	}
	specialRequests := pgtype.Text{}
	if req.SpecialRequests != "" {
		specialRequests = pgtype.Text{String: req.SpecialRequests, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		TenantID:        sess.TenantID,
		TableID:         sess.TableID,
		OrderNumber:     "ORD-" + randomCode(6),
		CustomerName:    customerName,
		CustomerPhone:   customerPhone,
		Subtotal:        decimalToNumeric(subtotal),
		TaxAmount:       decimalToNumeric(taxAmount),
		TotalAmount:     decimalToNumeric(totalAmount),
		EstimatedTime:   estimateMinutes(len(req.Items)),
		SpecialRequests: specialRequests,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	var items []database.OrderItem
	for _, pl := range lines {
		pl.params.OrderID = order.ID
		item, err := store.CreateOrderItem(ctx, pl.params)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{Order: order, Items: items}, nil
}

func (s *OrderService) effectiveTaxRate(ctx context.Context, store OrderStore, tenantID uuid.UUID) (decimal.Decimal, error) {
	settings, err := store.ListActiveTaxSettings(ctx, tenantID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("list tax settings: %w", err)
	}
	if len(settings) == 0 {
		return s.defaultTaxRate, nil
	}
	rate := decimal.Zero
	for _, ts := range settings {
		rate = rate.Add(numericToDecimal(ts.Rate))
	}
	return rate, nil
}

// estimateMinutes derives an advisory prep estimate from cart size:
// 10 minutes base plus 5 per extra line, capped at an hour.
func estimateMinutes(lineCount int) int32 {
	est := 10 + 5*(lineCount-1)
	if est > 60 {
		est = 60
	}
	if est < 0 {
		est = 0
	}
	return int32(est)
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomCode(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}

// --- Helpers ---

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
