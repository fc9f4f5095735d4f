package service_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/irfandhmahudi/backend-mern/internal/jwt"
	"github.com/irfandhmahudi/backend-mern/internal/model"
	"github.com/irfandhmahudi/backend-mern/internal/service"
	"github.com/irfandhmahudi/backend-mern/internal/storage"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) (uuid.UUID, error) {
	id := uuid.New()
	stored := *user
	stored.ID = id
	r.users[id] = &stored
	return id, nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	if u, ok := r.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeUserRepo) FindByEmailOrUsername(_ context.Context, email, username string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email || u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindByOtp(_ context.Context, otp string) (*model.User, error) {
	for _, u := range r.users {
		if u.Otp != nil && *u.Otp == otp {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) MarkVerified(_ context.Context, id uuid.UUID) error {
	u, ok := r.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.IsVerified = true
	u.Otp = nil
	return nil
}

func (r *fakeUserRepo) SetResetToken(_ context.Context, id uuid.UUID, token string, expire time.Time) error {
	u, ok := r.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.ResetPasswordToken = &token
	u.ResetPasswordExpire = &expire
	return nil
}

func (r *fakeUserRepo) FindByResetToken(_ context.Context, token string) (*model.User, error) {
	for _, u := range r.users {
		if u.ResetPasswordToken != nil && *u.ResetPasswordToken == token {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	u, ok := r.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	u.ResetPasswordToken = nil
	u.ResetPasswordExpire = nil
	return nil
}

func (r *fakeUserRepo) UpdateAvatar(_ context.Context, id uuid.UUID, url, storageID string) error {
	u, ok := r.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.AvatarURL = &url
	u.AvatarID = &storageID
	return nil
}

type sentEmail struct {
	To      string
	Subject string
	Body    string
}

type fakeMailer struct {
	sent []sentEmail
	err  error
}

func (m *fakeMailer) PublishEmail(to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentEmail{To: to, Subject: subject, Body: body})
	return nil
}

type fakeStorage struct {
	uploads   int
	destroyed []string
}

func (s *fakeStorage) Upload(_ context.Context, folder, filename string, _ io.Reader) (*storage.UploadedObject, error) {
	s.uploads++
	key := folder + "/" + filename
	return &storage.UploadedObject{URL: "http://objects/" + key, ID: key}, nil
}

func (s *fakeStorage) Destroy(_ context.Context, id string) error {
	s.destroyed = append(s.destroyed, id)
	return nil
}

type accountFixture struct {
	repo    *fakeUserRepo
	mailer  *fakeMailer
	store   *fakeStorage
	issuer  *jwt.Issuer
	service service.AccountService
}

func newAccountFixture() *accountFixture {
	repo := newFakeUserRepo()
	mailer := &fakeMailer{}
	store := &fakeStorage{}
	issuer := jwt.NewIssuer("test-secret", false)
	return &accountFixture{
		repo:    repo,
		mailer:  mailer,
		store:   store,
		issuer:  issuer,
		service: service.NewAccountService(repo, issuer, mailer, store, "http://localhost:5173"),
	}
}

var otpPattern = regexp.MustCompile(`^\d{6}$`)

func TestRegister_CreatesUnverifiedUserWithOtp(t *testing.T) {
	f := newAccountFixture()

	user, token, err := f.service.Register(context.Background(), "ana", "ana@x.com", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	stored, err := f.repo.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.False(t, stored.IsVerified)
	require.NotNil(t, stored.Otp)
	require.Regexp(t, otpPattern, *stored.Otp)

	// Plaintext password is never persisted.
	require.NotEqual(t, "secret1", stored.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret1")))

	require.Len(t, f.mailer.sent, 1)
	require.Equal(t, "ana@x.com", f.mailer.sent[0].To)
	require.Contains(t, f.mailer.sent[0].Body, *stored.Otp)

	claims, err := f.issuer.Validate(token)
	require.NoError(t, err)
	require.Equal(t, user.ID.String(), claims["sub"])
}

func TestRegister_ShortPasswordRejectedBeforeAnyWrite(t *testing.T) {
	f := newAccountFixture()

	_, _, err := f.service.Register(context.Background(), "ana", "ana@x.com", "12345")
	require.ErrorIs(t, err, service.ErrPasswordTooShort)
	require.Empty(t, f.repo.users)
	require.Empty(t, f.mailer.sent)
}

func TestRegister_InvalidEmail(t *testing.T) {
	f := newAccountFixture()

	for _, email := range []string{"not-an-email", "a@b", "a b@c.com", "a@b c.com"} {
		_, _, err := f.service.Register(context.Background(), "ana", email, "secret1")
		require.ErrorIs(t, err, service.ErrInvalidEmail, "email %q", email)
	}
	require.Empty(t, f.repo.users)
}

func TestRegister_DuplicateEmailOrUsername(t *testing.T) {
	f := newAccountFixture()

	_, _, err := f.service.Register(context.Background(), "ana", "ana@x.com", "secret1")
	require.NoError(t, err)

	_, _, err = f.service.Register(context.Background(), "other", "ana@x.com", "secret1")
	require.ErrorIs(t, err, service.ErrAlreadyExists)

	_, _, err = f.service.Register(context.Background(), "ana", "other@x.com", "secret1")
	require.ErrorIs(t, err, service.ErrAlreadyExists)

	require.Len(t, f.repo.users, 1)
}

// A failed email dispatch surfaces as an error but the created user stays:
// there is no compensating rollback.
func TestRegister_EmailFailureDoesNotRollBackUser(t *testing.T) {
	f := newAccountFixture()
	f.mailer.err = errors.New("smtp down")

	_, _, err := f.service.Register(context.Background(), "ana", "ana@x.com", "secret1")
	require.Error(t, err)
	require.Len(t, f.repo.users, 1)
}

func TestVerifyOtp_Success(t *testing.T) {
	f := newAccountFixture()

	user, _, err := f.service.Register(context.Background(), "ana", "ana@x.com", "secret1")
	require.NoError(t, err)

	code := *f.repo.users[user.ID].Otp

	verified, err := f.service.VerifyOtp(context.Background(), code)
	require.NoError(t, err)
	require.Equal(t, user.ID, verified.ID)
	require.True(t, verified.IsVerified)
	require.Nil(t, verified.Otp)

	stored := f.repo.users[user.ID]
	require.True(t, stored.IsVerified)
	require.Nil(t, stored.Otp)
}

func TestVerifyOtp_NoMatch(t *testing.T) {
	f := newAccountFixture()

	_, err := f.service.VerifyOtp(context.Background(), "000000")
	require.ErrorIs(t, err, service.ErrInvalidOtp)
}

// Codes are looked up globally, not per account. Two pending users holding
// the same code resolve to an arbitrary one of them; exactly one gets
// verified. This is documented behavior, not something to prevent.
func TestVerifyOtp_CollidingCodesVerifyExactlyOne(t *testing.T) {
	f := newAccountFixture()
	code := "555555"

	for _, u := range []struct{ name, email string }{
		{"first", "first@x.com"},
		{"second", "second@x.com"},
	} {
		c := code
		_, err := f.repo.Create(context.Background(), &model.User{
			Username: u.name, Email: u.email, PasswordHash: "h", Otp: &c,
		})
		require.NoError(t, err)
	}

	verified, err := f.service.VerifyOtp(context.Background(), code)
	require.NoError(t, err)
	require.True(t, verified.IsVerified)

	verifiedCount := 0
	for _, u := range f.repo.users {
		if u.IsVerified {
			verifiedCount++
			require.Nil(t, u.Otp)
		}
	}
	require.Equal(t, 1, verifiedCount)
}

func registerVerified(t *testing.T, f *accountFixture, username, email, password string) *model.User {
	t.Helper()

	user, _, err := f.service.Register(context.Background(), username, email, password)
	require.NoError(t, err)

	_, err = f.service.VerifyOtp(context.Background(), *f.repo.users[user.ID].Otp)
	require.NoError(t, err)

	return user
}

func TestLogin_UnverifiedUserRejectedEvenWithCorrectPassword(t *testing.T) {
	f := newAccountFixture()

	_, _, err := f.service.Register(context.Background(), "ana", "ana@x.com", "secret1")
	require.NoError(t, err)

	_, _, err = f.service.Login(context.Background(), "ana@x.com", "secret1")
	require.ErrorIs(t, err, service.ErrNotVerified)
}

func TestLogin_VerifiedUser(t *testing.T) {
	f := newAccountFixture()
	user := registerVerified(t, f, "ana", "ana@x.com", "secret1")

	got, token, err := f.service.Login(context.Background(), "ana@x.com", "secret1")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)

	claims, err := f.issuer.Validate(token)
	require.NoError(t, err)
	require.Equal(t, user.ID.String(), claims["sub"])
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newAccountFixture()
	registerVerified(t, f, "ana", "ana@x.com", "secret1")

	_, _, err := f.service.Login(context.Background(), "ana@x.com", "wrong")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestLogin_UnknownEmail(t *testing.T) {
	f := newAccountFixture()

	_, _, err := f.service.Login(context.Background(), "ghost@x.com", "secret1")
	require.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestForgotPassword_SetsTokenAndSendsEmail(t *testing.T) {
	f := newAccountFixture()
	user := registerVerified(t, f, "ana", "ana@x.com", "secret1")
	f.mailer.sent = nil

	require.NoError(t, f.service.ForgotPassword(context.Background(), "ana@x.com"))

	stored := f.repo.users[user.ID]
	require.NotNil(t, stored.ResetPasswordToken)
	require.Len(t, *stored.ResetPasswordToken, 64)
	require.NotNil(t, stored.ResetPasswordExpire)
	require.WithinDuration(t, time.Now().Add(time.Hour), *stored.ResetPasswordExpire, time.Minute)

	require.Len(t, f.mailer.sent, 1)
	require.Contains(t, f.mailer.sent[0].Body, "http://localhost:5173/reset-password/"+*stored.ResetPasswordToken)
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	f := newAccountFixture()

	err := f.service.ForgotPassword(context.Background(), "ghost@x.com")
	require.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestResetPassword_ConsumesToken(t *testing.T) {
	f := newAccountFixture()
	user := registerVerified(t, f, "ana", "ana@x.com", "secret1")
	require.NoError(t, f.service.ForgotPassword(context.Background(), "ana@x.com"))

	token := *f.repo.users[user.ID].ResetPasswordToken

	require.NoError(t, f.service.ResetPassword(context.Background(), token, "newsecret"))

	stored := f.repo.users[user.ID]
	require.Nil(t, stored.ResetPasswordToken)
	require.Nil(t, stored.ResetPasswordExpire)

	_, _, err := f.service.Login(context.Background(), "ana@x.com", "newsecret")
	require.NoError(t, err)

	// Single use: the same token no longer works.
	err = f.service.ResetPassword(context.Background(), token, "another1")
	require.ErrorIs(t, err, service.ErrResetTokenInvalid)
}

func TestResetPassword_ExpiredToken(t *testing.T) {
	f := newAccountFixture()
	user := registerVerified(t, f, "ana", "ana@x.com", "secret1")
	require.NoError(t, f.service.ForgotPassword(context.Background(), "ana@x.com"))

	stored := f.repo.users[user.ID]
	expired := time.Now().Add(-time.Minute)
	stored.ResetPasswordExpire = &expired

	err := f.service.ResetPassword(context.Background(), *stored.ResetPasswordToken, "newsecret")
	require.ErrorIs(t, err, service.ErrResetTokenInvalid)
}

func TestResetPassword_UnknownToken(t *testing.T) {
	f := newAccountFixture()

	err := f.service.ResetPassword(context.Background(), strings.Repeat("ab", 32), "newsecret")
	require.ErrorIs(t, err, service.ErrResetTokenInvalid)
}

func TestResetPassword_ShortPassword(t *testing.T) {
	f := newAccountFixture()

	err := f.service.ResetPassword(context.Background(), "whatever", "123")
	require.ErrorIs(t, err, service.ErrPasswordTooShort)
}

func TestUpdateAvatar_ReplacesPreviousObject(t *testing.T) {
	f := newAccountFixture()
	user := registerVerified(t, f, "ana", "ana@x.com", "secret1")

	_, err := f.service.UpdateAvatar(context.Background(), user.ID, "first.jpg", strings.NewReader("img"))
	require.NoError(t, err)
	require.Empty(t, f.store.destroyed)

	updated, err := f.service.UpdateAvatar(context.Background(), user.ID, "second.jpg", strings.NewReader("img"))
	require.NoError(t, err)
	require.Equal(t, 2, f.store.uploads)
	require.Equal(t, []string{"user-avatars/first.jpg"}, f.store.destroyed)
	require.NotNil(t, updated.AvatarURL)
	require.Contains(t, *updated.AvatarURL, "second.jpg")

	stored := f.repo.users[user.ID]
	require.NotNil(t, stored.AvatarID)
	require.Equal(t, "user-avatars/second.jpg", *stored.AvatarID)
}
