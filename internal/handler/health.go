package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-reservation/internal/ledger"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports liveness for load balancers.  DB is nil for the
// memory store.
type HealthHandler struct {
	Ledger *ledger.Ledger
	DB     Pinger
}

// Health returns 200 with reservation counts, or 503 when the database
// does not answer.
func (h *HealthHandler) Health(c echo.Context) error {
	body := echo.Map{"status": "ok", "stats": h.Ledger.Stats()}
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.PingContext(ctx); err != nil {
			body["status"] = "degraded"
			body["database"] = err.Error()
			return c.JSON(http.StatusServiceUnavailable, body)
		}
		body["database"] = "ok"
	}
	return c.JSON(http.StatusOK, body)
}
