// Package database opens the SQL connection pool and creates the schema.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// Supported drivers, matching the names registered with database/sql.
const (
	MySQL    = "mysql"
	Postgres = "postgres"
)

// Options identifies the server to connect to.
type Options struct {
	Driver  string
	User    string
	Pass    string
	Host    string
	Port    string
	Name    string
	SSLMode string // postgres only
}

// DSN renders the driver specific connection string.
func DSN(o Options) (string, error) {
	switch o.Driver {
	case MySQL:
		auth := o.User
		if o.Pass != "" {
			auth = fmt.Sprintf("%s:%s", o.User, o.Pass)
		}
		// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
		return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
			auth, o.Host, o.Port, o.Name), nil
	case Postgres:
		u := url.URL{
			Scheme: "postgres",
			Host:   o.Host + ":" + o.Port,
			Path:   "/" + o.Name,
		}
		if o.Pass != "" {
			u.User = url.UserPassword(o.User, o.Pass)
		} else {
			u.User = url.User(o.User)
		}
		sslmode := o.SSLMode
		if sslmode == "" {
			sslmode = "disable"
		}
		u.RawQuery = url.Values{"sslmode": {sslmode}, "timezone": {"UTC"}}.Encode()
		return u.String(), nil
	default:
		return "", fmt.Errorf("database: unsupported driver %q", o.Driver)
	}
}

// Open connects and verifies the connection.
func Open(ctx context.Context, o Options) (*sql.DB, error) {
	dsn, err := DSN(o)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(o.Driver, dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Rebind rewrites '?' placeholders as $1, $2, ... for postgres.  Queries
// are written once with '?' and passed through here.
func Rebind(driver, q string) string {
	if driver != Postgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

// Placeholders returns "?,?,?" with n marks, for IN lists.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
