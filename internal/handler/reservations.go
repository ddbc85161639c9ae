package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-reservation/internal/ledger"
	"github.com/iliyamo/restaurant-table-reservation/internal/middleware"
	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/queue"
)

// ReservationHandler exposes the ledger over HTTP.  All methods assume
// JWTAuth has already run.
type ReservationHandler struct {
	Ledger *ledger.Ledger
	Events queue.Publisher
	Log    *slog.Logger
	Now    func() time.Time

	pending sync.WaitGroup
}

func NewReservationHandler(l *ledger.Ledger, events queue.Publisher, log *slog.Logger) *ReservationHandler {
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &ReservationHandler{Ledger: l, Events: events, Log: log, Now: time.Now}
}

type createReservationReq struct {
	TableID   uint64 `json:"table_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Seats     int    `json:"seats"`
}

type updateReservationReq struct {
	TableID   *uint64 `json:"table_id"`
	Date      *string `json:"date"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Seats     *int    `json:"seats"`
}

// Create handles POST /v1/reservations.
func (h *ReservationHandler) Create(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createReservationReq
	if err := bindValid(c, schemaReservationCreate, &req); err != nil {
		return writeBodyError(c, err)
	}

	now := h.Now()
	r, err := h.Ledger.Reserve(c.Request().Context(), ledger.ReserveRequest{
		UserID:    uid,
		TableID:   req.TableID,
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Seats:     req.Seats,
	}, now)
	if err != nil {
		return writeLedgerError(c, h.Log, err)
	}
	h.publish(queue.EventConfirmed, r, now)
	return c.JSON(http.StatusCreated, echo.Map{"message": "reservation created", "reservation": r})
}

// Conflicts handles GET /v1/reservations/conflicts.  It answers whether
// the window is free without booking it.
func (h *ReservationHandler) Conflicts(c echo.Context) error {
	tableID, err := strconv.ParseUint(c.QueryParam("table_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table_id", "field": "table_id"})
	}
	var exclude uint64
	if s := c.QueryParam("exclude_id"); s != "" {
		if exclude, err = strconv.ParseUint(s, 10, 64); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid exclude_id", "field": "exclude_id"})
		}
	}
	rs, err := h.Ledger.FindConflict(tableID, c.QueryParam("date"), c.QueryParam("start_time"), c.QueryParam("end_time"), exclude)
	if err != nil {
		return writeLedgerError(c, h.Log, err)
	}
	parts := make([]conflictPart, 0, len(rs))
	for _, r := range rs {
		parts = append(parts, conflictOf(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"available": len(parts) == 0, "conflicts": parts})
}

// ListMine handles GET /v1/reservations/user.
func (h *ReservationHandler) ListMine(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": h.Ledger.ListByUser(uid)})
}

// ListAll handles GET /v1/reservations/all.  The router restricts it to
// admins.
func (h *ReservationHandler) ListAll(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"reservations": h.Ledger.ListAll()})
}

// Get handles GET /v1/reservations/:id.  Admins may read any reservation,
// everyone else only their own.
func (h *ReservationHandler) Get(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := reservationID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var r model.Reservation
	if middleware.Role(c) == model.RoleAdmin {
		r, err = h.Ledger.Get(id)
	} else {
		r, err = h.Ledger.GetForUser(id, uid)
	}
	if err != nil {
		return writeLedgerError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": r})
}

// Update handles PUT /v1/reservations/:id with a partial body.
func (h *ReservationHandler) Update(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := reservationID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var req updateReservationReq
	if err := bindValid(c, schemaReservationUpdate, &req); err != nil {
		return writeBodyError(c, err)
	}

	now := h.Now()
	r, err := h.Ledger.UpdateReservation(c.Request().Context(), id, uid, ledger.Patch{
		TableID:   req.TableID,
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Seats:     req.Seats,
	}, now)
	if err != nil {
		return writeLedgerError(c, h.Log, err)
	}
	h.publish(queue.EventUpdated, r, now)
	return c.JSON(http.StatusOK, echo.Map{"message": "reservation updated", "reservation": r})
}

// Cancel handles DELETE /v1/reservations/:id.  By default the reservation
// is cancelled and kept; ?purge=true removes it outright.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := reservationID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	purge, _ := strconv.ParseBool(c.QueryParam("purge"))

	now := h.Now()
	if purge {
		r, err := h.Ledger.Delete(c.Request().Context(), id, uid)
		if err != nil {
			return writeLedgerError(c, h.Log, err)
		}
		h.publish(queue.EventDeleted, r, now)
		return c.NoContent(http.StatusNoContent)
	}

	r, err := h.Ledger.CancelReservation(c.Request().Context(), id, uid, now)
	if err != nil {
		return writeLedgerError(c, h.Log, err)
	}
	h.publish(queue.EventCancelled, r, now)
	return c.JSON(http.StatusOK, echo.Map{"message": "reservation cancelled", "reservation": r})
}

// Drain waits for in-flight event publishes, or until ctx is done.
func (h *ReservationHandler) Drain(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		h.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// publish sends the event in the background; the booking has already
// been committed, so a broker failure is only logged.
func (h *ReservationHandler) publish(typ string, r model.Reservation, at time.Time) {
	ev := queue.NewBookingEvent(typ, r, at)
	h.pending.Add(1)
	go func() {
		defer h.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := h.Events.Publish(ctx, ev); err != nil {
			h.Log.Warn("publish booking event failed", "err", err, "type", typ, "reservation_id", r.ID)
		}
	}()
}

func reservationID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err == nil && id == 0 {
		err = strconv.ErrRange
	}
	return id, err
}
