package postgres

import (
	"context"
	"fmt"

	"github.com/cmirandac/gatepass/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AdminRepository struct {
	pool *pgxpool.Pool
}

func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

func (r *AdminRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *AdminRepository) CreateEvent(ctx context.Context, event domain.Event) error {
	const stmt = `INSERT INTO events (id, name, starts_at, active) VALUES ($1, $2, $3, $4)`

	if _, err := r.exec(ctx, stmt, event.ID, event.Name, event.StartsAt, event.Active); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (r *AdminRepository) ListEvents(ctx context.Context) ([]domain.Event, error) {
	const query = `SELECT id, name, starts_at, active FROM events ORDER BY starts_at`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.StartsAt, &e.Active); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

func (r *AdminRepository) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	const query = `SELECT id, name, starts_at, active FROM events WHERE id = $1`

	var e domain.Event
	err := r.queryRow(ctx, query, eventID).Scan(&e.ID, &e.Name, &e.StartsAt, &e.Active)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Event{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Event{}, domain.ErrEventNotFound
		}
		return domain.Event{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// SetActiveEvent marks one event active and deactivates every other, in one
// transaction so there is never more than one active event.
func (r *AdminRepository) SetActiveEvent(ctx context.Context, eventID string) error {
	return r.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := r.exec(txCtx, `UPDATE events SET active = FALSE WHERE active`); err != nil {
			return fmt.Errorf("deactivate events: %w", err)
		}
		tag, err := r.exec(txCtx, `UPDATE events SET active = TRUE WHERE id = $1`, eventID)
		if err != nil {
			if isInvalidUUID(err) {
				return domain.ErrInvalidID
			}
			return fmt.Errorf("activate event: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrEventNotFound
		}
		return nil
	})
}

func (r *AdminRepository) CreateZone(ctx context.Context, zone domain.Zone) error {
	const stmt = `
INSERT INTO zones (id, event_id, name, capacity, active_count, price_cents)
VALUES ($1, $2, $3, $4, 0, $5)`

	_, err := r.exec(ctx, stmt, zone.ID, zone.EventID, zone.Name, zone.Capacity, zone.PriceCents)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrZoneAlreadyExists
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create zone: %w", err)
	}
	return nil
}

func (r *AdminRepository) ListZonesByEvent(ctx context.Context, eventID string) ([]domain.Zone, error) {
	const query = `
SELECT id, event_id, name, capacity, active_count, price_cents
FROM zones
WHERE event_id = $1
ORDER BY name`

	rows, err := r.query(ctx, query, eventID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list zones: %w", err)
	}
	defer rows.Close()

	var out []domain.Zone
	for rows.Next() {
		var z domain.Zone
		if err := rows.Scan(&z.ID, &z.EventID, &z.Name, &z.Capacity, &z.ActiveCount, &z.PriceCents); err != nil {
			return nil, fmt.Errorf("scan zone: %w", err)
		}
		out = append(out, z)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list zones: %w", err)
	}
	return out, nil
}

func (r *AdminRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *AdminRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *AdminRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
