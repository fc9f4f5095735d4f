package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/irfandhmahudi/backend-mern/internal/events"
	"github.com/irfandhmahudi/backend-mern/internal/jwt"
	"github.com/irfandhmahudi/backend-mern/internal/model"
	"github.com/irfandhmahudi/backend-mern/internal/otp"
	"github.com/irfandhmahudi/backend-mern/internal/repository"
	"github.com/irfandhmahudi/backend-mern/internal/storage"
)

var (
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrAlreadyExists      = errors.New("email or username already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("user not verified")
	ErrInvalidOtp         = errors.New("invalid otp")
	ErrResetTokenInvalid  = errors.New("invalid or expired reset token")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const resetTokenTTL = time.Hour

type AccountService interface {
	Register(ctx context.Context, username, email, password string) (*model.User, string, error)
	Login(ctx context.Context, email, password string) (*model.User, string, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*model.User, error)
	VerifyOtp(ctx context.Context, code string) (*model.User, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	UpdateAvatar(ctx context.Context, userID uuid.UUID, filename string, file io.Reader) (*model.User, error)
}

type accountService struct {
	userRepo    repository.UserRepository
	issuer      *jwt.Issuer
	mailer      events.EmailPublisher
	storage     storage.ObjectStorage
	frontendURL string
}

func NewAccountService(userRepo repository.UserRepository, issuer *jwt.Issuer, mailer events.EmailPublisher, store storage.ObjectStorage, frontendURL string) AccountService {
	return &accountService{
		userRepo:    userRepo,
		issuer:      issuer,
		mailer:      mailer,
		storage:     store,
		frontendURL: frontendURL,
	}
}

// Register creates an unverified account, issues an identity token, and
// queues the OTP email. A failed email dispatch surfaces as an error but the
// created user is not rolled back.
func (s *accountService) Register(ctx context.Context, username, email, password string) (*model.User, string, error) {
	if len(password) < 6 {
		return nil, "", ErrPasswordTooShort
	}
	if !emailPattern.MatchString(email) {
		return nil, "", ErrInvalidEmail
	}

	// Check-then-act: a concurrent registration can slip past this and hit
	// the unique constraints instead.
	existing, err := s.userRepo.FindByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, "", err
	}
	if existing != nil {
		return nil, "", ErrAlreadyExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	code, err := otp.Generate()
	if err != nil {
		return nil, "", err
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Otp:          &code,
	}

	newID, err := s.userRepo.Create(ctx, user)
	if err != nil {
		return nil, "", err
	}
	user.ID = newID

	token, err := s.issuer.Generate(user)
	if err != nil {
		return nil, "", err
	}

	if err := s.mailer.PublishEmail(user.Email, "Verify your account", "Your OTP is "+code); err != nil {
		return nil, "", err
	}

	return user, token, nil
}

func (s *accountService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrUserNotFound
	}
	if err != nil {
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	if !user.IsVerified {
		return nil, "", ErrNotVerified
	}

	token, err := s.issuer.Generate(user)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

func (s *accountService) GetProfile(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return user, nil
}

// VerifyOtp resolves a pending code to its account by global lookup. Codes
// are assumed unique across pending accounts; a collision would verify an
// arbitrary one of the holders.
func (s *accountService) VerifyOtp(ctx context.Context, code string) (*model.User, error) {
	user, err := s.userRepo.FindByOtp(ctx, code)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Otp == nil || *user.Otp != code {
		return nil, ErrInvalidOtp
	}

	if err := s.userRepo.MarkVerified(ctx, user.ID); err != nil {
		return nil, err
	}

	user.IsVerified = true
	user.Otp = nil

	return user, nil
}

func (s *accountService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}

	token, err := otp.GenerateResetToken()
	if err != nil {
		return err
	}

	expire := time.Now().Add(resetTokenTTL)
	if err := s.userRepo.SetResetToken(ctx, user.ID, token, expire); err != nil {
		return err
	}

	resetURL := s.frontendURL + "/reset-password/" + token
	message := fmt.Sprintf("You have requested to reset your password. Please click the following link to reset your password:\n\n%s", resetURL)

	return s.mailer.PublishEmail(user.Email, "Reset Password", message)
}

// ResetPassword consumes a reset token: the token must exist, match, and be
// unexpired. Consuming clears both reset columns.
func (s *accountService) ResetPassword(ctx context.Context, token, password string) error {
	if len(password) < 6 {
		return ErrPasswordTooShort
	}

	user, err := s.userRepo.FindByResetToken(ctx, token)
	if err != nil {
		return err
	}
	if user == nil || user.ResetPasswordToken == nil || *user.ResetPasswordToken != token {
		return ErrResetTokenInvalid
	}
	if user.ResetPasswordExpire == nil || user.ResetPasswordExpire.Before(time.Now()) {
		return ErrResetTokenInvalid
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.userRepo.UpdatePassword(ctx, user.ID, string(hashedPassword))
}

func (s *accountService) UpdateAvatar(ctx context.Context, userID uuid.UUID, filename string, file io.Reader) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	uploaded, err := s.storage.Upload(ctx, "user-avatars", filename, file)
	if err != nil {
		return nil, err
	}

	if user.AvatarID != nil {
		if err := s.storage.Destroy(ctx, *user.AvatarID); err != nil {
			slog.Warn("Failed to destroy previous avatar", "avatar_id", *user.AvatarID, "error", err)
		}
	}

	if err := s.userRepo.UpdateAvatar(ctx, userID, uploaded.URL, uploaded.ID); err != nil {
		return nil, err
	}

	user.AvatarURL = &uploaded.URL
	user.AvatarID = &uploaded.ID

	return user, nil
}
