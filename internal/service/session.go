package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/scanbite/api/internal/auth"
	"github.com/scanbite/api/internal/database"
)

// Errors returned by the session service.
var (
	ErrInvalidTable    = errors.New("table not found or inactive")
	ErrNoActiveSession = errors.New("no active table session")
)

// SessionStore defines the DB methods needed to resolve tables.
// Satisfied by *database.Queries; narrow interface for testability.
type SessionStore interface {
	GetTableByQrToken(ctx context.Context, qrToken string) (database.Table, error)
	GetTableByNumber(ctx context.Context, arg database.GetTableByNumberParams) (database.Table, error)
	GetTenant(ctx context.Context, id uuid.UUID) (database.Tenant, error)
}

// Binding is a resolved table plus the token the client holds for the visit.
// Tenant rides along so the menu page can show the restaurant name without a
// second round trip.
type Binding struct {
	Table        database.Table
	Tenant       database.Tenant
	SessionToken string
}

// SessionService resolves QR tokens to tables and mints table-session tokens.
// No server-side state is kept per binding: a device that scans again simply
// gets a fresh token, which makes re-resolution idempotent and lets a later
// scan of a different table silently replace the old binding.
type SessionService struct {
	store     SessionStore
	jwtSecret string
}

func NewSessionService(store SessionStore, jwtSecret string) *SessionService {
	return &SessionService{store: store, jwtSecret: jwtSecret}
}

// BindByToken resolves a scanned QR token and returns a session binding.
// Unknown or inactive tables fail with ErrInvalidTable.
func (s *SessionService) BindByToken(ctx context.Context, qrToken string) (*Binding, error) {
	table, err := s.store.GetTableByQrToken(ctx, qrToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidTable
		}
		return nil, fmt.Errorf("resolve table: %w", err)
	}
	return s.bind(ctx, table)
}

// BindByNumber supports the manual table-selection flow (no QR scan).
func (s *SessionService) BindByNumber(ctx context.Context, arg database.GetTableByNumberParams) (*Binding, error) {
	table, err := s.store.GetTableByNumber(ctx, arg)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidTable
		}
		return nil, fmt.Errorf("resolve table: %w", err)
	}
	return s.bind(ctx, table)
}

func (s *SessionService) bind(ctx context.Context, table database.Table) (*Binding, error) {
	if !table.IsActive {
		return nil, ErrInvalidTable
	}
	tenant, err := s.store.GetTenant(ctx, table.TenantID)
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	token, err := auth.GenerateSessionToken(s.jwtSecret, table.TenantID, table.ID, table.Number)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	return &Binding{Table: table, Tenant: tenant, SessionToken: token}, nil
}
