package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-reservation/internal/ledger"
)

// TableHandler serves the public roster and the per-day table grid.
type TableHandler struct {
	Ledger *ledger.Ledger
	Log    *slog.Logger
}

func NewTableHandler(l *ledger.Ledger, log *slog.Logger) *TableHandler {
	return &TableHandler{Ledger: l, Log: log}
}

// List handles GET /v1/tables.
func (h *TableHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"tables": h.Ledger.ListTables()})
}

// Schedule handles GET /v1/tables/:id/schedule?date=YYYY-MM-DD and returns
// the confirmed bookings of that table on the day.
func (h *TableHandler) Schedule(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table id"})
	}
	date := c.QueryParam("date")
	if date == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date is required", "field": "date"})
	}
	rs, err := h.Ledger.TableSchedule(id, date)
	if err != nil {
		return writeLedgerError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"table_id": id, "date": date, "reservations": rs})
}
