package model

import "time"

// Reservation status values.  A reservation starts CONFIRMED and may
// move to CANCELLED; CANCELLED is terminal.
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// Reservation records a party's booking of one table for a time window
// on a single calendar day.  Date is kept as YYYY-MM-DD and the times as
// HH:MM wall-clock values in the restaurant's time zone.
//
// Fields:
//  ID        – identifier assigned by the ledger, never reused.
//  UserID    – user who made (and owns) the reservation.
//  TableID   – table being booked.
//  Date      – calendar day of the booking.
//  StartTime – start of the half-open interval [StartTime, EndTime).
//  EndTime   – end of the interval; always after StartTime.
//  Seats     – party size; never more than the table capacity.
//  Status    – confirmed or cancelled.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last modification timestamp.
type Reservation struct {
	ID        uint64    `json:"id"`         // reservations.id
	UserID    uint64    `json:"user_id"`    // reservations.user_id
	TableID   uint64    `json:"table_id"`   // reservations.table_id
	Date      string    `json:"date"`       // reservations.res_date
	StartTime string    `json:"start_time"` // reservations.start_time
	EndTime   string    `json:"end_time"`   // reservations.end_time
	Seats     int       `json:"seats"`      // reservations.seats
	Status    string    `json:"status"`     // reservations.status
	CreatedAt time.Time `json:"created_at"` // reservations.created_at
	UpdatedAt time.Time `json:"updated_at"` // reservations.updated_at
}

// Confirmed reports whether the reservation still takes part in
// conflict checks.
func (r Reservation) Confirmed() bool { return r.Status == StatusConfirmed }
