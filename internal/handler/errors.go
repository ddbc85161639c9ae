package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-reservation/internal/ledger"
	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// conflictPart is the colliding booking echoed back on 409.
type conflictPart struct {
	ID        uint64 `json:"id"`
	TableID   uint64 `json:"table_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func conflictOf(r model.Reservation) conflictPart {
	return conflictPart{ID: r.ID, TableID: r.TableID, Date: r.Date, StartTime: r.StartTime, EndTime: r.EndTime}
}

// writeLedgerError maps ledger failures onto status codes.  Anything it
// does not recognise is logged and reported as a 500 without detail.
func writeLedgerError(c echo.Context, log *slog.Logger, err error) error {
	var (
		ce *ledger.ConflictError
		ie *ledger.InvariantError
		fe *ledger.InputError
	)
	switch {
	case errors.As(err, &ce):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":    "table already reserved for this time slot",
			"conflict": conflictOf(ce.With),
		})
	case errors.As(err, &ie):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ie.Error(), "violation": ie.Violation})
	case errors.As(err, &fe):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": fe.Error(), "field": fe.Field})
	case errors.Is(err, ledger.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, ledger.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied: reservation belongs to another user"})
	}
	log.Error("ledger operation failed", "err", err, "path", c.Path(), "request_id", c.Response().Header().Get(echo.HeaderXRequestID))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
