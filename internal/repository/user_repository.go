package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/irfandhmahudi/backend-mern/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) (uuid.UUID, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByEmailOrUsername(ctx context.Context, email, username string) (*model.User, error)
	FindByOtp(ctx context.Context, otp string) (*model.User, error)
	MarkVerified(ctx context.Context, id uuid.UUID) error
	SetResetToken(ctx context.Context, id uuid.UUID, token string, expire time.Time) error
	FindByResetToken(ctx context.Context, token string) (*model.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateAvatar(ctx context.Context, id uuid.UUID, url, storageID string) error
}

const userColumns = `id, username, email, password_hash, is_verified, otp, reset_password_token, reset_password_expire, avatar_url, avatar_id, created_at, updated_at`

type postgresUserRepository struct {
	db *sqlx.DB
}

func NewPostgresUserRepository(db *sqlx.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

func (r *postgresUserRepository) Create(ctx context.Context, user *model.User) (uuid.UUID, error) {
	query := `INSERT INTO users (username, email, password_hash, otp) VALUES ($1, $2, $3, $4) RETURNING id`
	var newID uuid.UUID
	err := r.db.QueryRowxContext(ctx, query, user.Username, user.Email, user.PasswordHash, user.Otp).Scan(&newID)

	if err != nil {
		return uuid.Nil, err
	}

	return newID, nil
}

func (r *postgresUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	err := r.db.GetContext(ctx, &user, query, id)

	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *postgresUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	err := r.db.GetContext(ctx, &user, query, email)

	if err != nil {
		return nil, err
	}

	return &user, nil
}

// FindByEmailOrUsername backs the pre-insert uniqueness check. Returns
// (nil, nil) when no user matches.
func (r *postgresUserRepository) FindByEmailOrUsername(ctx context.Context, email, username string) (*model.User, error) {
	var user model.User
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 OR username = $2 LIMIT 1`
	err := r.db.GetContext(ctx, &user, query, email, username)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// FindByOtp matches a pending verification code globally, not per user.
// LIMIT 1 mirrors the lookup the verification flow relies on; two pending
// users sharing a code would resolve to an arbitrary one of them.
func (r *postgresUserRepository) FindByOtp(ctx context.Context, otp string) (*model.User, error) {
	var user model.User
	query := `SELECT ` + userColumns + ` FROM users WHERE otp = $1 LIMIT 1`
	err := r.db.GetContext(ctx, &user, query, otp)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *postgresUserRepository) MarkVerified(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET is_verified = true, otp = NULL, updated_at = now() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *postgresUserRepository) SetResetToken(ctx context.Context, id uuid.UUID, token string, expire time.Time) error {
	query := `UPDATE users SET reset_password_token = $1, reset_password_expire = $2, updated_at = now() WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, token, expire, id)
	return err
}

// FindByResetToken returns (nil, nil) when no user holds the token. Expiry
// is checked by the caller.
func (r *postgresUserRepository) FindByResetToken(ctx context.Context, token string) (*model.User, error) {
	var user model.User
	query := `SELECT ` + userColumns + ` FROM users WHERE reset_password_token = $1 LIMIT 1`
	err := r.db.GetContext(ctx, &user, query, token)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// UpdatePassword also consumes any outstanding reset token.
func (r *postgresUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, reset_password_token = NULL, reset_password_expire = NULL, updated_at = now() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, passwordHash, id)
	return err
}

func (r *postgresUserRepository) UpdateAvatar(ctx context.Context, id uuid.UUID, url, storageID string) error {
	query := `UPDATE users SET avatar_url = $1, avatar_id = $2, updated_at = now() WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, url, storageID, id)
	return err
}
