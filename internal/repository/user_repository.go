package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/expo-access/internal/model"
	"github.com/iliyamo/expo-access/internal/utils"
)

// UserRepo provides access to back office accounts.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

const userColumns = "id,email,password_hash,role,exhibitor_id,is_active,created_at,updated_at"

// Create hashes password and inserts the user, returning its ID.
// exhibitorID links exhibitor staff to their company and is nil for admins.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, exhibitorID *uint64, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role, exhibitor_id) VALUES (?,?,?,?)",
		email, hash, role, exhibitorID)
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
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

func scanUser(s rowScanner) (model.User, error) {
	var (
		u   model.User
		exh sql.NullInt64
	)
	err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &exh, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if exh.Valid {
		id := uint64(exh.Int64)
		u.ExhibitorID = &id
	}
	return u, err
}
