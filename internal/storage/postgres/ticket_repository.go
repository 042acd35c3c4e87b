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

// TicketRepository backs the issuance and cancellation flows. TryReserve and
// ReleaseZone are the inventory guard: both are single conditional UPDATEs so
// the check-and-increment is atomic inside the storage engine, never a
// count-then-decide sequence a concurrent seller could slip between.
type TicketRepository struct {
	pool *pgxpool.Pool
}

func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

func (r *TicketRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *TicketRepository) GetZone(ctx context.Context, zoneID string) (domain.Zone, error) {
	const query = `
SELECT id, event_id, name, capacity, active_count, price_cents
FROM zones
WHERE id = $1`

	var z domain.Zone
	err := r.queryRow(ctx, query, zoneID).
		Scan(&z.ID, &z.EventID, &z.Name, &z.Capacity, &z.ActiveCount, &z.PriceCents)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Zone{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Zone{}, domain.ErrZoneNotFound
		}
		return domain.Zone{}, fmt.Errorf("get zone: %w", err)
	}
	return z, nil
}

// TryReserve takes one capacity slot if any remains. Returning false is the
// expected sold-out outcome, not an error.
func (r *TicketRepository) TryReserve(ctx context.Context, zoneID string) (bool, error) {
	const stmt = `
UPDATE zones
SET active_count = active_count + 1
WHERE id = $1 AND active_count < capacity`

	tag, err := r.exec(ctx, stmt, zoneID)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("reserve zone: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseZone gives a capacity slot back; called only when a ticket is
// voided. Floored at zero so a stray release can never underflow the count.
func (r *TicketRepository) ReleaseZone(ctx context.Context, zoneID string) error {
	const stmt = `
UPDATE zones
SET active_count = active_count - 1
WHERE id = $1 AND active_count > 0`

	if _, err := r.exec(ctx, stmt, zoneID); err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("release zone: %w", err)
	}
	return nil
}

// CountActiveByHolder counts the holder's ACTIVE tickets across every zone of
// the event (the anti-scalping cap is event-scoped, not zone-scoped).
func (r *TicketRepository) CountActiveByHolder(ctx context.Context, eventID, holderID string) (int, error) {
	const query = `
SELECT COUNT(*)
FROM tickets t
JOIN zones z ON z.id = t.zone_id
WHERE z.event_id = $1 AND t.holder_id = $2 AND t.state = 'ACTIVE'`

	var n int
	if err := r.queryRow(ctx, query, eventID, holderID).Scan(&n); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("count holder tickets: %w", err)
	}
	return n, nil
}

// CreateTicket inserts the ticket and returns the database-assigned serial.
func (r *TicketRepository) CreateTicket(ctx context.Context, t domain.Ticket) (int64, error) {
	const stmt = `
INSERT INTO tickets (id, zone_id, holder_id, holder_name, state, issued_token, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING serial`

	var serial int64
	err := r.queryRow(ctx, stmt,
		t.ID,
		t.ZoneID,
		t.HolderID,
		t.HolderName,
		t.State,
		t.IssuedToken,
		t.CreatedAt,
		t.UpdatedAt,
	).Scan(&serial)
	if err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("create ticket: %w", err)
	}
	return serial, nil
}

// UpdateIssuedToken stores the token handed to the buyer. It is the
// anti-replay reference for every later scan of this ticket.
func (r *TicketRepository) UpdateIssuedToken(ctx context.Context, ticketID, tok string) error {
	const stmt = `UPDATE tickets SET issued_token = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, ticketID, tok)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update issued token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTicketNotFound
	}
	return nil
}

func (r *TicketRepository) GetTicket(ctx context.Context, ticketID string) (domain.Ticket, error) {
	const query = `
SELECT t.id, t.serial, t.zone_id, z.event_id, t.holder_id, t.holder_name, t.state,
       t.issued_token, t.void_reason, t.created_at, t.updated_at
FROM tickets t
JOIN zones z ON z.id = t.zone_id
WHERE t.id = $1`

	return r.scanTicket(r.queryRow(ctx, query, ticketID))
}

// ListActiveTicketsByEvent feeds the token-regeneration flow.
func (r *TicketRepository) ListActiveTicketsByEvent(ctx context.Context, eventID string) ([]domain.Ticket, error) {
	const query = `
SELECT t.id, t.serial, t.zone_id, z.event_id, t.holder_id, t.holder_name, t.state,
       t.issued_token, t.void_reason, t.created_at, t.updated_at
FROM tickets t
JOIN zones z ON z.id = t.zone_id
WHERE z.event_id = $1 AND t.state = 'ACTIVE'
ORDER BY t.serial`

	var rows pgx.Rows
	var err error
	if tx := txFromContext(ctx); tx != nil {
		rows, err = tx.Query(ctx, query, eventID)
	} else {
		rows, err = r.pool.Query(ctx, query, eventID)
	}
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list active tickets: %w", err)
	}
	defer rows.Close()

	var out []domain.Ticket
	for rows.Next() {
		var t domain.Ticket
		var state string
		if err := rows.Scan(&t.ID, &t.Serial, &t.ZoneID, &t.EventID, &t.HolderID, &t.HolderName,
			&state, &t.IssuedToken, &t.VoidReason, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		t.State = domain.TicketState(state)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list active tickets: %w", err)
	}
	return out, nil
}

func (r *TicketRepository) GetTicketForUpdate(ctx context.Context, ticketID string) (domain.Ticket, error) {
	const query = `
SELECT t.id, t.serial, t.zone_id, z.event_id, t.holder_id, t.holder_name, t.state,
       t.issued_token, t.void_reason, t.created_at, t.updated_at
FROM tickets t
JOIN zones z ON z.id = t.zone_id
WHERE t.id = $1
FOR UPDATE OF t`

	return r.scanTicket(r.queryRow(ctx, query, ticketID))
}

// MarkVoid performs the ACTIVE→VOID transition as a conditional update
// scoped to the one ticket row. The condition on state makes the transition
// a no-op if another writer got there first.
func (r *TicketRepository) MarkVoid(ctx context.Context, ticketID, reason string, at time.Time) error {
	const stmt = `
UPDATE tickets
SET state = 'VOID', void_reason = $2, updated_at = $3
WHERE id = $1 AND state = 'ACTIVE'`

	tag, err := r.exec(ctx, stmt, ticketID, reason, at)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("void ticket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyConsumed
	}
	return nil
}

func (r *TicketRepository) scanTicket(row pgx.Row) (domain.Ticket, error) {
	var t domain.Ticket
	var state string
	err := row.Scan(&t.ID, &t.Serial, &t.ZoneID, &t.EventID, &t.HolderID, &t.HolderName,
		&state, &t.IssuedToken, &t.VoidReason, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Ticket{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Ticket{}, domain.ErrTicketNotFound
		}
		return domain.Ticket{}, fmt.Errorf("get ticket: %w", err)
	}
	t.State = domain.TicketState(state)
	return t, nil
}

func (r *TicketRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *TicketRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
