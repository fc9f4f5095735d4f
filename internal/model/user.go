package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	Username            string     `db:"username" json:"username"`
	Email               string     `db:"email" json:"email"`
	PasswordHash        string     `db:"password_hash" json:"-"`
	IsVerified          bool       `db:"is_verified" json:"is_verified"`
	Otp                 *string    `db:"otp" json:"-"`
	ResetPasswordToken  *string    `db:"reset_password_token" json:"-"`
	ResetPasswordExpire *time.Time `db:"reset_password_expire" json:"-"`
	AvatarURL           *string    `db:"avatar_url" json:"avatar_url,omitempty"`
	AvatarID            *string    `db:"avatar_id" json:"-"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}
