package router // package router defines how HTTP routes are registered for the API

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/restaurant-table-reservation/internal/handler"
	"github.com/iliyamo/restaurant-table-reservation/internal/middleware"
	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// New returns an Echo instance with the middleware every route shares:
// panic recovery, request ids, structured request logging and CORS for
// the configured client origins.
func New(log *slog.Logger, clientURL string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(log))

	origins := []string{"*"}
	if clientURL != "" {
		origins = strings.Split(clientURL, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	return e
}

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", h.Health)
}

// RegisterAuth registers all authentication-related routes.  Register,
// login, refresh and logout live under /v1/auth without a session; /v1/me
// requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)              // rotates the refresh token
	g.POST("/refresh-access", a.RefreshAccess) // new access token only
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleAdmin),
	)
	auth.GET("/me", a.Me)
}

// RegisterTables registers the public roster endpoints.  cache wraps the
// roster listing only; schedules change with every booking.
func RegisterTables(e *echo.Echo, t *handler.TableHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/tables", t.List, cache)
	e.GET("/v1/tables/:id/schedule", t.Schedule)
}

// RegisterReservations registers the booking endpoints.  All of them need
// a valid JWT; limiter throttles the writes per user.
func RegisterReservations(e *echo.Echo, r *handler.ReservationHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/reservations",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleAdmin),
	)
	g.GET("/conflicts", r.Conflicts)
	g.GET("/user", r.ListMine)
	g.GET("/all", r.ListAll, middleware.RequireRole(model.RoleAdmin))
	g.GET("/:id", r.Get)

	g.POST("", r.Create, limiter)
	g.PUT("/:id", r.Update, limiter)
	g.DELETE("/:id", r.Cancel, limiter)
}
