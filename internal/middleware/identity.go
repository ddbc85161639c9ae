package middleware

// identity.go holds the context keys JWTAuth fills in and the accessors
// handlers and the rate limiter read them through.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
	ctxEmail  = "email"
	ctxName   = "name"
)

// UserID returns the authenticated user's id, or false for anonymous
// requests.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ctxUserID).(uint64)
	return id, ok && id != 0
}

// Role returns the authenticated user's role claim, or "".
func Role(c echo.Context) string {
	r, _ := c.Get(ctxRole).(string)
	return r
}

// Email returns the authenticated user's email claim, or "".
func Email(c echo.Context) string {
	e, _ := c.Get(ctxEmail).(string)
	return e
}

// Name returns the authenticated user's display name claim, or "".
func Name(c echo.Context) string {
	n, _ := c.Get(ctxName).(string)
	return n
}

// subject identifies the caller for rate limiting: the user id when
// authenticated, otherwise the client IP.
func subject(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return "user:" + strconv.FormatUint(id, 10)
	}
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}
