package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/templui/pawcare/internal/db"
	"github.com/templui/pawcare/internal/model"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	ByID(ctx context.Context, id string) (*model.User, error)
	ByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, role string) ([]*model.User, error)
	UpdateRole(ctx context.Context, id, role string, flags model.AdminFlags, now time.Time) (*model.User, error)
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, email, role, admin_flags, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query, user.ID, user.Email, user.Role, user.AdminFlags, user.CreatedAt, user.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateEmail
	}

	return err
}

func (r *userRepository) ByID(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	query := `SELECT * FROM users WHERE id = $1`

	err := r.db.GetContext(ctx, user, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (r *userRepository) ByEmail(ctx context.Context, email string) (*model.User, error) {
	user := &model.User{}
	query := `SELECT * FROM users WHERE email = $1`

	err := r.db.GetContext(ctx, user, query, email)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return user, nil
}

// List returns users ordered by email, optionally restricted to one role.
func (r *userRepository) List(ctx context.Context, role string) ([]*model.User, error) {
	users := []*model.User{}

	var err error
	if role != "" {
		err = r.db.SelectContext(ctx, &users, `SELECT * FROM users WHERE role = $1 ORDER BY email ASC`, role)
	} else {
		err = r.db.SelectContext(ctx, &users, `SELECT * FROM users ORDER BY email ASC`)
	}
	if err != nil {
		return nil, err
	}

	return users, nil
}

func (r *userRepository) UpdateRole(ctx context.Context, id, role string, flags model.AdminFlags, now time.Time) (*model.User, error) {
	query := `UPDATE users SET role = $1, admin_flags = $2, updated_at = $3 WHERE id = $4 RETURNING *`

	user := &model.User{}
	err := r.db.GetContext(ctx, user, query, role, flags, now, id)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return user, nil
}
