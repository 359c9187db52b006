package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type OrderStatus string

const (
	OrderStatusPENDING   OrderStatus = "PENDING"
	OrderStatusCONFIRMED OrderStatus = "CONFIRMED"
	OrderStatusPREPARING OrderStatus = "PREPARING"
	OrderStatusREADY     OrderStatus = "READY"
	OrderStatusSERVED    OrderStatus = "SERVED"
	OrderStatusCOMPLETED OrderStatus = "COMPLETED"
	OrderStatusCANCELLED OrderStatus = "CANCELLED"
)

type NullOrderStatus struct {
	OrderStatus OrderStatus
	Valid       bool
}

type PaymentStatus string

const (
	PaymentStatusPENDING  PaymentStatus = "PENDING"
	PaymentStatusPAID     PaymentStatus = "PAID"
	PaymentStatusFAILED   PaymentStatus = "FAILED"
	PaymentStatusREFUNDED PaymentStatus = "REFUNDED"
)

type CallStatus string

const (
	CallStatusPENDING   CallStatus = "PENDING"
	CallStatusATTENDED  CallStatus = "ATTENDED"
	CallStatusCOMPLETED CallStatus = "COMPLETED"
)

type Tenant struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	CreatedAt time.Time
}

type User struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Email        string
	PasswordHash string
	FullName     string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
}

type Table struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Number      int32
	DisplayName pgtype.Text
	QrToken     string
	IsActive    bool
	CreatedAt   time.Time
}

type MenuItem struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Name        string
	Description pgtype.Text
	Price       pgtype.Numeric
	IsAvailable bool
	CreatedAt   time.Time
}

type TaxSetting struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Name     string
	Rate     pgtype.Numeric
	IsActive bool
	Position int32
}

type Order struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	TableID         uuid.UUID
	OrderNumber     string
	CustomerName    pgtype.Text
	CustomerPhone   pgtype.Text
	Status          OrderStatus
	PaymentStatus   PaymentStatus
	Subtotal        pgtype.Numeric
	TaxAmount       pgtype.Numeric
	TotalAmount     pgtype.Numeric
	EstimatedTime   int32
	SpecialRequests pgtype.Text
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type OrderItem struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	MenuItemID     uuid.UUID
	NameSnapshot   string
	Quantity       int32
	UnitPrice      pgtype.Numeric
	Customizations []byte // JSONB: option name -> selected value
	Notes          pgtype.Text
}

type WaiterCall struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	TableID    uuid.UUID
	Reason     pgtype.Text
	Status     CallStatus
	AttendedBy pgtype.UUID
	AttendedAt pgtype.Timestamptz
	CreatedAt  time.Time
}

type Invoice struct {
	ID            uuid.UUID
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
	CreatedAt     time.Time
}

type InvoiceTaxLine struct {
	ID        uuid.UUID
	InvoiceID uuid.UUID
	Name      string
	Rate      pgtype.Numeric
	Amount    pgtype.Numeric
	Position  int32
}
