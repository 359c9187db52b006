package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/scanbite/api/internal/database"
)

// ErrCallNotFound is returned when a call does not exist for the tenant.
var ErrCallNotFound = errors.New("call not found")

// ErrOpenCallGone means the conflicting open call closed between our insert
// and the read-back. Recoverable: the client just presses the button again.
var ErrOpenCallGone = errors.New("call state changed, please retry")

// CallStore defines the DB methods needed by the waiter call service.
// Satisfied by *database.Queries.
type CallStore interface {
	CreateWaiterCall(ctx context.Context, arg database.CreateWaiterCallParams) (database.WaiterCall, error)
	GetWaiterCall(ctx context.Context, arg database.GetWaiterCallParams) (database.WaiterCall, error)
	GetOpenWaiterCallByTable(ctx context.Context, arg database.GetOpenWaiterCallByTableParams) (database.WaiterCall, error)
	UpdateWaiterCallStatus(ctx context.Context, arg database.UpdateWaiterCallStatusParams) (database.WaiterCall, error)
}

// RequestCallResult distinguishes a fresh call from an "already called" ack.
// AlreadyCalled is NOT an error: the customer gets a positive acknowledgment
// either way, and Call holds the open call in both cases.
type RequestCallResult struct {
	Call          database.WaiterCall
	AlreadyCalled bool
}

// WaiterCallService enforces at-most-one-open-call-per-table.
//
// The check-then-act race between "is there an open call" and "create one" is
// closed by the partial unique index on waiter_calls: both concurrent inserts
// go through, the loser gets a 23505 and is answered with the winner's call.
type WaiterCallService struct {
	store CallStore
}

func NewWaiterCallService(store CallStore) *WaiterCallService {
	return &WaiterCallService{store: store}
}

// RequestCall opens a PENDING call for the table, or reports the existing
// open call when one is already PENDING or ATTENDED.
func (s *WaiterCallService) RequestCall(ctx context.Context, tenantID, tableID uuid.UUID, reason string) (*RequestCallResult, error) {
	reasonText := pgtype.Text{}
	if reason != "" {
		reasonText = pgtype.Text{String: reason, Valid: true}
	}

	call, err := s.store.CreateWaiterCall(ctx, database.CreateWaiterCallParams{
		TenantID: tenantID,
		TableID:  tableID,
		Reason:   reasonText,
	})
	if err == nil {
		return &RequestCallResult{Call: call}, nil
	}
	if !isOpenCallConflict(err) {
		return nil, fmt.Errorf("create waiter call: %w", err)
	}

	existing, err := s.store.GetOpenWaiterCallByTable(ctx, database.GetOpenWaiterCallByTableParams{
		TableID:  tableID,
		TenantID: tenantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The open call closed between our insert and this read; let the
			// client retry rather than looping here.
			return nil, ErrOpenCallGone
		}
		return nil, fmt.Errorf("get open waiter call: %w", err)
	}
	return &RequestCallResult{Call: existing, AlreadyCalled: true}, nil
}

// Attend moves a PENDING call to ATTENDED and records who took it and when.
// Fails with ErrInvalidTransition if the call is not currently PENDING.
func (s *WaiterCallService) Attend(ctx context.Context, tenantID, callID, staffID uuid.UUID) (database.WaiterCall, error) {
	call, err := s.store.UpdateWaiterCallStatus(ctx, database.UpdateWaiterCallStatusParams{
		ID:         callID,
		TenantID:   tenantID,
		Status:     database.CallStatusATTENDED,
		FromStatus: database.CallStatusPENDING,
		AttendedBy: pgtype.UUID{Bytes: staffID, Valid: true},
		AttendedAt: pgtype.Timestamptz{Time: time.Now(), Valid: true},
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.WaiterCall{}, s.explainMiss(ctx, tenantID, callID, "call is not pending")
		}
		return database.WaiterCall{}, fmt.Errorf("attend call: %w", err)
	}
	return call, nil
}

// Complete moves an ATTENDED call to COMPLETED. A PENDING call cannot jump
// straight to COMPLETED; it must be acknowledged first.
func (s *WaiterCallService) Complete(ctx context.Context, tenantID, callID uuid.UUID) (database.WaiterCall, error) {
	call, err := s.store.UpdateWaiterCallStatus(ctx, database.UpdateWaiterCallStatusParams{
		ID:         callID,
		TenantID:   tenantID,
		Status:     database.CallStatusCOMPLETED,
		FromStatus: database.CallStatusATTENDED,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.WaiterCall{}, s.explainMiss(ctx, tenantID, callID, "call is not attended")
		}
		return database.WaiterCall{}, fmt.Errorf("complete call: %w", err)
	}
	return call, nil
}

// explainMiss turns a CAS miss into the right error: the call either does not
// exist for this tenant, or it exists in a state the transition rejects.
func (s *WaiterCallService) explainMiss(ctx context.Context, tenantID, callID uuid.UUID, reason string) error {
	if _, err := s.store.GetWaiterCall(ctx, database.GetWaiterCallParams{ID: callID, TenantID: tenantID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCallNotFound
		}
		return fmt.Errorf("get call: %w", err)
	}
	return fmt.Errorf("%w: %s", ErrInvalidTransition, reason)
}

// isOpenCallConflict checks for the partial unique index that enforces one
// open call per table (pgconn error code 23505).
func isOpenCallConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "waiter_calls_one_open_per_table"
	}
	return false
}
