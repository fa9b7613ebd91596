package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/club-event-ticketing/internal/model"
	"github.com/iliyamo/club-event-ticketing/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NewUser carries the fields needed to register a user.
type NewUser struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// Create hashes the password, inserts the user and returns it.  An email
// that is already registered yields ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, nu NewUser, cost int) (*model.User, error) {
	email := normalizeEmail(nu.Email)
	hash, err := utils.HashPassword(nu.Password, cost)
	if err != nil {
		return nil, err
	}
	role := nu.Role
	if role == "" {
		role = model.RoleUser
	}
	id := uuid.NewString()
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, first_name, last_name, role) VALUES (?,?,?,?,?,?)",
		id, email, hash, nu.FirstName, nu.LastName, role)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return r.GetByID(ctx, id)
}

const userColumns = "id,email,password_hash,first_name,last_name,role,created_at,updated_at"

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", normalizeEmail(email)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
