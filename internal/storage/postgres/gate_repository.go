package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cmirandac/gatepass/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GateRepository backs the scan path. MarkUsed and CreateValidation are
// composed by the gate service inside one WithTx call; the unique constraint
// on validations.ticket_id is the final arbiter when two gates race.
type GateRepository struct {
	pool *pgxpool.Pool
}

func NewGateRepository(pool *pgxpool.Pool) *GateRepository {
	return &GateRepository{pool: pool}
}

func (r *GateRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// GetTicketWithContext loads a ticket with its zone name and the parent
// event's active flag, everything a scan decision needs in one round trip.
func (r *GateRepository) GetTicketWithContext(ctx context.Context, ticketID string) (domain.Ticket, string, bool, error) {
	const query = `
SELECT t.id, t.serial, t.zone_id, z.event_id, t.holder_id, t.holder_name, t.state,
       t.issued_token, t.void_reason, t.created_at, t.updated_at,
       z.name, e.active
FROM tickets t
JOIN zones z ON z.id = t.zone_id
JOIN events e ON e.id = z.event_id
WHERE t.id = $1`

	var t domain.Ticket
	var state, zoneName string
	var eventActive bool
	err := r.queryRow(ctx, query, ticketID).
		Scan(&t.ID, &t.Serial, &t.ZoneID, &t.EventID, &t.HolderID, &t.HolderName, &state,
			&t.IssuedToken, &t.VoidReason, &t.CreatedAt, &t.UpdatedAt,
			&zoneName, &eventActive)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Ticket{}, "", false, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Ticket{}, "", false, domain.ErrTicketNotFound
		}
		return domain.Ticket{}, "", false, fmt.Errorf("get ticket: %w", err)
	}
	t.State = domain.TicketState(state)
	return t, zoneName, eventActive, nil
}

// MarkUsed flips ACTIVE→USED for exactly one caller. The WHERE clause on
// state makes the read-modify-write a single atomic step; a loser of the
// race affects zero rows and gets ErrAlreadyConsumed.
func (r *GateRepository) MarkUsed(ctx context.Context, ticketID string, at time.Time) error {
	const stmt = `
UPDATE tickets
SET state = 'USED', updated_at = $2
WHERE id = $1 AND state = 'ACTIVE'`

	tag, err := r.exec(ctx, stmt, ticketID, at)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("mark used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyConsumed
	}
	return nil
}

// CreateValidation appends the audit row. A unique violation means another
// gate already admitted this ticket.
func (r *GateRepository) CreateValidation(ctx context.Context, v domain.ValidationRecord) error {
	const stmt = `
INSERT INTO validations (id, ticket_id, operator_id, observations, device, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.exec(ctx, stmt, v.ID, v.TicketID, v.OperatorID, v.Observations, v.Device, v.RecordedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyConsumed
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create validation: %w", err)
	}
	return nil
}

func (r *GateRepository) GetValidationByTicket(ctx context.Context, ticketID string) (*domain.ValidationRecord, error) {
	const query = `
SELECT id, ticket_id, operator_id, observations, device, recorded_at
FROM validations
WHERE ticket_id = $1`

	var v domain.ValidationRecord
	err := r.queryRow(ctx, query, ticketID).
		Scan(&v.ID, &v.TicketID, &v.OperatorID, &v.Observations, &v.Device, &v.RecordedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get validation: %w", err)
	}
	return &v, nil
}

// ListValidationsByEvent returns the admission history for an event, newest
// first.
func (r *GateRepository) ListValidationsByEvent(ctx context.Context, eventID string) ([]domain.ValidationRecord, error) {
	const query = `
SELECT v.id, v.ticket_id, v.operator_id, v.observations, v.device, v.recorded_at
FROM validations v
JOIN tickets t ON t.id = v.ticket_id
JOIN zones z ON z.id = t.zone_id
WHERE z.event_id = $1
ORDER BY v.recorded_at DESC`

	return r.listValidations(ctx, query, eventID)
}

func (r *GateRepository) ListValidationsByOperator(ctx context.Context, operatorID string) ([]domain.ValidationRecord, error) {
	const query = `
SELECT id, ticket_id, operator_id, observations, device, recorded_at
FROM validations
WHERE operator_id = $1
ORDER BY recorded_at DESC`

	return r.listValidations(ctx, query, operatorID)
}

func (r *GateRepository) listValidations(ctx context.Context, query string, arg any) ([]domain.ValidationRecord, error) {
	var rows pgx.Rows
	var err error
	if tx := txFromContext(ctx); tx != nil {
		rows, err = tx.Query(ctx, query, arg)
	} else {
		rows, err = r.pool.Query(ctx, query, arg)
	}
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list validations: %w", err)
	}
	defer rows.Close()

	var out []domain.ValidationRecord
	for rows.Next() {
		var v domain.ValidationRecord
		if err := rows.Scan(&v.ID, &v.TicketID, &v.OperatorID, &v.Observations, &v.Device, &v.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan validation: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list validations: %w", err)
	}
	return out, nil
}

func (r *GateRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *GateRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
