// Package enum holds string constants with no typed counterpart in the
// database layer. Order, payment, and call statuses live as typed constants
// in internal/database; do not duplicate them here.
package enum

// ── Roles (CHECK constrained in DB) ──

const (
	UserRoleAdmin   = "ADMIN"
	UserRoleKitchen = "KITCHEN"
	UserRoleWaiter  = "WAITER"
	UserRoleCashier = "CASHIER"
)

// ── Configurable labels (no DB constraint) ──

const (
	PaymentMethodCash = "CASH"
	PaymentMethodCard = "CARD"
	PaymentMethodUPI  = "UPI"
)
