package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/restaurant-table-reservation/internal/database"
	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// ReservationRepo is the SQL backing store of the reservation ledger.  The
// ledger assigns ids and holds the authoritative copy in memory; this repo
// only mirrors it, plus the one-row reservation_ids mark of the largest id
// ever saved.  All timestamp fields are stored in UTC.
type ReservationRepo struct {
	db     *sql.DB
	driver string
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB, driver string) *ReservationRepo {
	return &ReservationRepo{db: db, driver: driver}
}

const reservationColumns = "id, user_id, table_id, res_date, start_time, end_time, seats, status, created_at, updated_at"

func (r *ReservationRepo) q(s string) string { return database.Rebind(r.driver, s) }

// Load returns every stored reservation ordered by id.
func (r *ReservationRepo) Load(ctx context.Context) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+reservationColumns+" FROM reservations ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Reservation
	for rows.Next() {
		var res model.Reservation
		if err := rows.Scan(&res.ID, &res.UserID, &res.TableID, &res.Date, &res.StartTime, &res.EndTime,
			&res.Seats, &res.Status, &res.CreatedAt, &res.UpdatedAt); err != nil {
			return nil, err
		}
		res.CreatedAt = res.CreatedAt.UTC()
		res.UpdatedAt = res.UpdatedAt.UTC()
		out = append(out, res)
	}
	return out, rows.Err()
}

// Save replaces the given reservations by id inside one transaction, so a
// failure leaves the table as it was.
func (r *ReservationRepo) Save(ctx context.Context, reservations []model.Reservation) error {
	if len(reservations) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	del, err := tx.PrepareContext(ctx, r.q("DELETE FROM reservations WHERE id = ?"))
	if err != nil {
		return err
	}
	defer del.Close()
	ins, err := tx.PrepareContext(ctx, r.q("INSERT INTO reservations ("+reservationColumns+") VALUES (?,?,?,?,?,?,?,?,?,?)"))
	if err != nil {
		return err
	}
	defer ins.Close()

	var last uint64
	for _, res := range reservations {
		last = max(last, res.ID)
		if _, err := del.ExecContext(ctx, res.ID); err != nil {
			return fmt.Errorf("reservation %d: %w", res.ID, err)
		}
		if _, err := ins.ExecContext(ctx, res.ID, res.UserID, res.TableID, res.Date, res.StartTime, res.EndTime,
			res.Seats, res.Status, res.CreatedAt.UTC(), res.UpdatedAt.UTC()); err != nil {
			return fmt.Errorf("reservation %d: %w", res.ID, err)
		}
	}
	if _, err := tx.ExecContext(ctx, r.q("UPDATE reservation_ids SET last_id = ? WHERE id = 1 AND last_id < ?"), last, last); err != nil {
		return fmt.Errorf("issued id mark: %w", err)
	}
	return tx.Commit()
}

// LastIssuedID reads the issued-id mark kept in reservation_ids.
func (r *ReservationRepo) LastIssuedID(ctx context.Context) (uint64, error) {
	var last uint64
	err := r.db.QueryRowContext(ctx, "SELECT last_id FROM reservation_ids WHERE id = 1").Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return last, err
}

// Remove deletes the reservations with the given ids.
func (r *ReservationRepo) Remove(ctx context.Context, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := r.q("DELETE FROM reservations WHERE id IN (" + database.Placeholders(len(ids)) + ")")
	_, err := r.db.ExecContext(ctx, q, args...)
	return err
}
