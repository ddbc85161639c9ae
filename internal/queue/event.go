// Package queue carries reservation lifecycle events over RabbitMQ: a
// publisher used by the HTTP handlers and a consumer that keeps an
// append-only booking log.
package queue

import (
	"fmt"
	"time"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// QueueName is the durable queue both sides declare.
const QueueName = "reservation.events"

// Event types.
const (
	EventConfirmed = "reservation.confirmed"
	EventUpdated   = "reservation.updated"
	EventCancelled = "reservation.cancelled"
	EventDeleted   = "reservation.deleted"
)

// BookingEvent describes one change to a reservation.  It carries the full
// booking so consumers never need to query the service.
type BookingEvent struct {
	Type          string `json:"type"`
	ReservationID uint64 `json:"reservation_id"`
	UserID        uint64 `json:"user_id"`
	TableID       uint64 `json:"table_id"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Seats         int    `json:"seats"`
	Status        string `json:"status"`
	OccurredAt    string `json:"occurred_at"`
}

// NewBookingEvent snapshots r as an event of type typ at the given time.
func NewBookingEvent(typ string, r model.Reservation, at time.Time) BookingEvent {
	return BookingEvent{
		Type:          typ,
		ReservationID: r.ID,
		UserID:        r.UserID,
		TableID:       r.TableID,
		Date:          r.Date,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		Seats:         r.Seats,
		Status:        r.Status,
		OccurredAt:    at.UTC().Format(time.RFC3339),
	}
}

// Line renders the event as one human-friendly booking log line.
func (ev BookingEvent) Line() string {
	return fmt.Sprintf("[%s] %s | reservation_id=%d | user_id=%d | table_id=%d | date=%s | time=%s-%s | seats=%d | status=%s\n",
		ev.OccurredAt, ev.Type, ev.ReservationID, ev.UserID, ev.TableID, ev.Date, ev.StartTime, ev.EndTime, ev.Seats, ev.Status)
}
