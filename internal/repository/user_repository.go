package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/restaurant-table-reservation/internal/database"
	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

type UserRepo struct {
	DB     *sql.DB
	driver string
}

func NewUserRepo(db *sql.DB, driver string) *UserRepo { return &UserRepo{DB: db, driver: driver} }

const userColumns = "id,name,email,password_hash,role,is_active,created_at,updated_at"

// Create inserts u (PasswordHash already set) and returns its ID.
func (r *UserRepo) Create(ctx context.Context, u model.User) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	const q = "INSERT INTO users (name, email, password_hash, role) VALUES (?,?,?,?)"

	if r.driver == database.Postgres {
		var id uint64
		err := r.DB.QueryRowContext(ctx, database.Rebind(r.driver, q+" RETURNING id"),
			u.Name, email, u.PasswordHash, u.Role).Scan(&id)
		if err != nil {
			if isDuplicate(err) {
				return 0, ErrEmailExists
			}
			return 0, err
		}
		return id, nil
	}

	res, err := r.DB.ExecContext(ctx, q, u.Name, email, u.PasswordHash, u.Role)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx, database.Rebind(r.driver, q), arg).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, notFound(err)
	}
	return u, nil
}
