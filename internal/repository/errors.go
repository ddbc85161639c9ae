// Package repository persists users, refresh tokens and reservations in
// MySQL or PostgreSQL, with in-memory equivalents for development and
// tests.  The sentinel values below let handlers tell failure scenarios
// apart without knowing which backend is in use.
package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// ErrNotFound is returned when a looked-up row does not exist.  SQL
// implementations translate sql.ErrNoRows into it.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned by UserRepo.Create for a duplicate email.
// Handlers should translate this into an HTTP 409 response.
var ErrEmailExists = errors.New("email already exists")

// ErrTokenInvalid is returned for unknown, revoked or expired refresh tokens.
var ErrTokenInvalid = errors.New("refresh token invalid")

// isDuplicate reports a unique-key violation from either driver.
func isDuplicate(err error) bool {
	var my *mysql.MySQLError
	if errors.As(err, &my) {
		return my.Number == 1062
	}
	var pg *pq.Error
	if errors.As(err, &pg) {
		return pg.Code == "23505"
	}
	return false
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
