// Package ledger owns the restaurant's table roster and reservation set
// and decides whether a booking may be accepted.  All read-modify-write
// sequences run under a single write lock; queries share a read lock so
// they observe either the state before a write or the state after it.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// Ledger is the reservation conflict and availability engine.
type Ledger struct {
	mu           sync.RWMutex
	tables       map[uint64]model.Table
	reservations map[uint64]model.Reservation
	nextID       uint64

	store     Store
	loc       *time.Location
	checkPast bool
	log       *slog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLocation sets the time zone used to combine a reservation's date
// and start time into an instant for the past-time check.  Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) {
		if loc != nil {
			l.loc = loc
		}
	}
}

// WithPastCheck enables or disables rejecting bookings whose start lies
// before the caller's reference time.  Enabled by default.
func WithPastCheck(enabled bool) Option {
	return func(l *Ledger) { l.checkPast = enabled }
}

// WithLogger sets the logger used for load-time diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.log = log
		}
	}
}

// New builds a ledger for the given roster and loads the persisted
// reservations from store.  Ids continue after the store's issued-id mark
// or the highest loaded id, whichever is larger, so ids of deleted or
// purged reservations are never handed out again.
func New(ctx context.Context, tables []model.Table, store Store, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger: nil store")
	}
	l := &Ledger{
		tables:       make(map[uint64]model.Table, len(tables)),
		reservations: make(map[uint64]model.Reservation),
		nextID:       1,
		store:        store,
		loc:          time.UTC,
		checkPast:    true,
		log:          slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	for _, t := range tables {
		if t.ID == 0 {
			return nil, fmt.Errorf("ledger: table id must be positive")
		}
		if t.Capacity < 1 {
			return nil, fmt.Errorf("ledger: table %d capacity must be positive", t.ID)
		}
		if _, dup := l.tables[t.ID]; dup {
			return nil, fmt.Errorf("ledger: duplicate table id %d", t.ID)
		}
		l.tables[t.ID] = t
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger: load reservations: %w", err)
	}
	for _, r := range loaded {
		if _, known := l.tables[r.TableID]; !known {
			l.log.Warn("reservation references unknown table", "reservation_id", r.ID, "table_id", r.TableID)
		}
		l.reservations[r.ID] = r
		if r.ID >= l.nextID {
			l.nextID = r.ID + 1
		}
	}
	last, err := store.LastIssuedID(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger: load issued id: %w", err)
	}
	if last >= l.nextID {
		l.nextID = last + 1
	}
	return l, nil
}

// ReserveRequest holds the fields of a new booking.
type ReserveRequest struct {
	UserID    uint64
	TableID   uint64
	Date      string
	StartTime string
	EndTime   string
	Seats     int
}

// Patch lists the fields an update may change.  Nil fields keep their
// current value.
type Patch struct {
	TableID   *uint64
	Date      *string
	StartTime *string
	EndTime   *string
	Seats     *int
}

// booking is a validated, parsed reservation window.
type booking struct {
	tableID   uint64
	date      string
	start     int
	end       int
	startText string
	endText   string
	seats     int
}

// Stats summarises the reservation set.
type Stats struct {
	Tables    int `json:"tables"`
	Confirmed int `json:"confirmed"`
	Cancelled int `json:"cancelled"`
}

// ListTables returns the roster sorted by id.
func (l *Ledger) ListTables() []model.Table {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.Table, 0, len(l.tables))
	for _, t := range l.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Reserve validates the request, rejects it when it overlaps a confirmed
// reservation on the same table and date, and otherwise records a new
// confirmed reservation.  now is the caller's reference time for the
// past check and the timestamps.
func (l *Ledger) Reserve(ctx context.Context, req ReserveRequest, now time.Time) (model.Reservation, error) {
	if req.UserID == 0 {
		return model.Reservation{}, &InputError{Field: "user_id", Reason: "required"}
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.validateLocked(req.TableID, req.Date, req.StartTime, req.EndTime, req.Seats)
	if err != nil {
		return model.Reservation{}, err
	}
	if err := l.checkPastLocked(b, now); err != nil {
		return model.Reservation{}, err
	}
	if hits := l.conflictsLocked(b, 0); len(hits) > 0 {
		return model.Reservation{}, &ConflictError{With: hits[0]}
	}

	res := model.Reservation{
		ID:        l.nextID,
		UserID:    req.UserID,
		TableID:   b.tableID,
		Date:      b.date,
		StartTime: b.startText,
		EndTime:   b.endText,
		Seats:     b.seats,
		Status:    model.StatusConfirmed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := l.store.Save(ctx, []model.Reservation{res}); err != nil {
		return model.Reservation{}, fmt.Errorf("save reservation: %w", err)
	}
	l.reservations[res.ID] = res
	l.nextID++
	return res, nil
}

// UpdateReservation merges patch over the requester's reservation and
// re-validates every invariant, checking conflicts against all other
// confirmed reservations.  On any failure the stored reservation is left
// unchanged.
func (l *Ledger) UpdateReservation(ctx context.Context, id, requesterID uint64, patch Patch, now time.Time) (model.Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cur, err := l.ownedLocked(id, requesterID)
	if err != nil {
		return model.Reservation{}, err
	}
	if !cur.Confirmed() {
		return model.Reservation{}, &InputError{Field: "status", Reason: "reservation is cancelled"}
	}

	tableID, date, start, end, seats := cur.TableID, cur.Date, cur.StartTime, cur.EndTime, cur.Seats
	if patch.TableID != nil {
		tableID = *patch.TableID
	}
	if patch.Date != nil {
		date = *patch.Date
	}
	if patch.StartTime != nil {
		start = *patch.StartTime
	}
	if patch.EndTime != nil {
		end = *patch.EndTime
	}
	if patch.Seats != nil {
		seats = *patch.Seats
	}

	b, err := l.validateLocked(tableID, date, start, end, seats)
	if err != nil {
		return model.Reservation{}, err
	}
	// The past check applies only when the start moves.
	if b.date != cur.Date || b.startText != cur.StartTime {
		if err := l.checkPastLocked(b, now); err != nil {
			return model.Reservation{}, err
		}
	}
	if hits := l.conflictsLocked(b, cur.ID); len(hits) > 0 {
		return model.Reservation{}, &ConflictError{With: hits[0]}
	}

	next := cur
	next.TableID = b.tableID
	next.Date = b.date
	next.StartTime = b.startText
	next.EndTime = b.endText
	next.Seats = b.seats
	next.UpdatedAt = now
	if err := l.store.Save(ctx, []model.Reservation{next}); err != nil {
		return model.Reservation{}, fmt.Errorf("save reservation: %w", err)
	}
	l.reservations[next.ID] = next
	return next, nil
}

// CancelReservation marks the requester's reservation cancelled so it no
// longer takes part in conflict checks.  Cancelling twice is a no-op.
func (l *Ledger) CancelReservation(ctx context.Context, id, requesterID uint64, now time.Time) (model.Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cur, err := l.ownedLocked(id, requesterID)
	if err != nil {
		return model.Reservation{}, err
	}
	if !cur.Confirmed() {
		return cur, nil
	}
	next := cur
	next.Status = model.StatusCancelled
	next.UpdatedAt = now
	if err := l.store.Save(ctx, []model.Reservation{next}); err != nil {
		return model.Reservation{}, fmt.Errorf("save reservation: %w", err)
	}
	l.reservations[next.ID] = next
	return next, nil
}

// Delete removes the requester's reservation outright.
func (l *Ledger) Delete(ctx context.Context, id, requesterID uint64) (model.Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cur, err := l.ownedLocked(id, requesterID)
	if err != nil {
		return model.Reservation{}, err
	}
	if err := l.store.Remove(ctx, []uint64{cur.ID}); err != nil {
		return model.Reservation{}, fmt.Errorf("remove reservation: %w", err)
	}
	delete(l.reservations, cur.ID)
	return cur, nil
}

// FindConflict returns every confirmed reservation on tableID and date
// whose interval overlaps [start, end), sorted by start time.  A non-zero
// excludeID is skipped, which lets an update check against the others.
func (l *Ledger) FindConflict(tableID uint64, date, start, end string, excludeID uint64) ([]model.Reservation, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	b, err := l.validateLocked(tableID, date, start, end, 1)
	if err != nil {
		return nil, err
	}
	return l.conflictsLocked(b, excludeID), nil
}

// TableSchedule returns the confirmed reservations of a table on a date,
// sorted by start time.
func (l *Ledger) TableSchedule(tableID uint64, date string) ([]model.Reservation, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, ok := l.tables[tableID]; !ok {
		return nil, fmt.Errorf("table %d: %w", tableID, ErrNotFound)
	}
	d, err := parseDate(date)
	if err != nil {
		return nil, err
	}
	day := d.Format(dateLayout)
	out := make([]model.Reservation, 0)
	for _, r := range l.reservations {
		if r.TableID == tableID && r.Date == day && r.Confirmed() {
			out = append(out, r)
		}
	}
	sortByStart(out)
	return out, nil
}

// Get returns a reservation regardless of owner.
func (l *Ledger) Get(id uint64) (model.Reservation, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.reservations[id]
	if !ok {
		return model.Reservation{}, fmt.Errorf("reservation %d: %w", id, ErrNotFound)
	}
	return r, nil
}

// GetForUser returns a reservation only when requesterID owns it.
func (l *Ledger) GetForUser(id, requesterID uint64) (model.Reservation, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ownedLocked(id, requesterID)
}

// ListByUser returns the user's reservations, cancelled ones included,
// sorted by id.
func (l *Ledger) ListByUser(userID uint64) []model.Reservation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.Reservation, 0)
	for _, r := range l.reservations {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sortByID(out)
	return out
}

// ListAll returns every reservation sorted by id.  Callers gate it behind
// their own admin check.
func (l *Ledger) ListAll() []model.Reservation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.Reservation, 0, len(l.reservations))
	for _, r := range l.reservations {
		out = append(out, r)
	}
	sortByID(out)
	return out
}

// PurgeCancelled hard-removes cancelled reservations last modified before
// the cutoff and returns how many were removed.
func (l *Ledger) PurgeCancelled(ctx context.Context, before time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var ids []uint64
	for _, r := range l.reservations {
		if !r.Confirmed() && r.UpdatedAt.Before(before) {
			ids = append(ids, r.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if err := l.store.Remove(ctx, ids); err != nil {
		return 0, fmt.Errorf("remove cancelled reservations: %w", err)
	}
	for _, id := range ids {
		delete(l.reservations, id)
	}
	return len(ids), nil
}

// Stats counts tables and reservations by status.
func (l *Ledger) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s := Stats{Tables: len(l.tables)}
	for _, r := range l.reservations {
		if r.Confirmed() {
			s.Confirmed++
		} else {
			s.Cancelled++
		}
	}
	return s
}

// validateLocked checks table existence, syntax, ordering and capacity.
// The caller must hold l.mu.
func (l *Ledger) validateLocked(tableID uint64, date, start, end string, seats int) (booking, error) {
	if tableID == 0 {
		return booking{}, &InputError{Field: "table_id", Reason: "required"}
	}
	table, ok := l.tables[tableID]
	if !ok {
		return booking{}, fmt.Errorf("table %d: %w", tableID, ErrNotFound)
	}
	d, err := parseDate(date)
	if err != nil {
		return booking{}, err
	}
	s, sText, err := parseClock("start_time", start)
	if err != nil {
		return booking{}, err
	}
	e, eText, err := parseClock("end_time", end)
	if err != nil {
		return booking{}, err
	}
	if e <= s {
		return booking{}, &InvariantError{Violation: EndBeforeStart, Detail: "end time must be after start time"}
	}
	if seats < 1 {
		return booking{}, &InputError{Field: "seats", Reason: "must be at least 1"}
	}
	if seats > table.Capacity {
		return booking{}, &InvariantError{
			Violation: SeatsExceedCapacity,
			Detail:    fmt.Sprintf("table %d seats at most %d", table.ID, table.Capacity),
		}
	}
	return booking{
		tableID:   tableID,
		date:      d.Format(dateLayout),
		start:     s,
		end:       e,
		startText: sText,
		endText:   eText,
		seats:     seats,
	}, nil
}

func (l *Ledger) checkPastLocked(b booking, now time.Time) error {
	if !l.checkPast {
		return nil
	}
	d, err := time.Parse(dateLayout, b.date)
	if err != nil {
		return &InputError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	// Wall clock in l.loc, not midnight plus an offset: days with a DST
	// shift are 23 or 25 hours long.
	at := time.Date(d.Year(), d.Month(), d.Day(), b.start/3600, (b.start%3600)/60, b.start%60, 0, l.loc)
	if at.Before(now) {
		return &InvariantError{Violation: PastDateTime, Detail: "reservation must start in the future"}
	}
	return nil
}

// conflictsLocked lists confirmed reservations overlapping b, skipping
// excludeID.  The caller must hold l.mu.
func (l *Ledger) conflictsLocked(b booking, excludeID uint64) []model.Reservation {
	var hits []model.Reservation
	for _, r := range l.reservations {
		if r.ID == excludeID || !r.Confirmed() || r.TableID != b.tableID || r.Date != b.date {
			continue
		}
		s, e := clockSeconds(r.StartTime), clockSeconds(r.EndTime)
		if s < 0 || e < 0 {
			continue
		}
		if overlaps(b.start, b.end, s, e) {
			hits = append(hits, r)
		}
	}
	sortByStart(hits)
	return hits
}

func (l *Ledger) ownedLocked(id, requesterID uint64) (model.Reservation, error) {
	r, ok := l.reservations[id]
	if !ok {
		return model.Reservation{}, fmt.Errorf("reservation %d: %w", id, ErrNotFound)
	}
	if r.UserID != requesterID {
		return model.Reservation{}, ErrForbidden
	}
	return r, nil
}

func sortByID(rs []model.Reservation) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].ID < rs[j].ID })
}

func sortByStart(rs []model.Reservation) {
	sort.Slice(rs, func(i, j int) bool {
		si, sj := clockSeconds(rs[i].StartTime), clockSeconds(rs[j].StartTime)
		if si != sj {
			return si < sj
		}
		return rs[i].ID < rs[j].ID
	})
}
