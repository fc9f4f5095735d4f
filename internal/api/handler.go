package api

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/irfandhmahudi/backend-mern/internal/jwt"
	"github.com/irfandhmahudi/backend-mern/internal/model"
	"github.com/irfandhmahudi/backend-mern/internal/service"
)

type AccountHandler struct {
	accounts service.AccountService
	issuer   *jwt.Issuer
	validate *validator.Validate
}

func NewAccountHandler(accounts service.AccountService, issuer *jwt.Issuer) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		issuer:   issuer,
		validate: validator.New(),
	}
}

// fail writes the uniform failure envelope.
func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "message": message})
}

// serviceError maps the account sentinel errors to a status and user-facing
// message; everything unanticipated becomes a 500 with the message only.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrPasswordTooShort):
		return fail(c, fiber.StatusBadRequest, "Password must be at least 6 characters")
	case errors.Is(err, service.ErrInvalidEmail):
		return fail(c, fiber.StatusBadRequest, "Invalid email format")
	case errors.Is(err, service.ErrAlreadyExists):
		return fail(c, fiber.StatusBadRequest, "Email or username already exists")
	case errors.Is(err, service.ErrUserNotFound):
		return fail(c, fiber.StatusNotFound, "User not found")
	case errors.Is(err, service.ErrInvalidCredentials):
		return fail(c, fiber.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, service.ErrNotVerified):
		return fail(c, fiber.StatusUnauthorized, "User not verified")
	case errors.Is(err, service.ErrInvalidOtp):
		return fail(c, fiber.StatusBadRequest, "Invalid OTP")
	case errors.Is(err, service.ErrResetTokenInvalid):
		return fail(c, fiber.StatusBadRequest, "Invalid or expired reset token")
	case errors.Is(err, service.ErrProductNotFound):
		return fail(c, fiber.StatusNotFound, "Product not found")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		// Concurrent registration slipped past the pre-insert check and hit
		// the unique constraint instead.
		return fail(c, fiber.StatusBadRequest, "Email or username already exists")
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"message": "Server error",
		"error":   err.Error(),
	})
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *AccountHandler) Register(c *fiber.Ctx) error {
	var request RegisterRequest

	if err := c.BodyParser(&request); err != nil {
		return fail(c, fiber.StatusBadRequest, "Cannot parse JSON")
	}

	if err := h.validate.Struct(&request); err != nil {
		return fail(c, fiber.StatusBadRequest, "All fields are required")
	}

	_, token, err := h.accounts.Register(c.Context(), request.Username, request.Email, request.Password)
	if err != nil {
		return serviceError(c, err)
	}

	h.issuer.SetCookie(c, token)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "User registered. Check your email for OTP.",
	})
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *AccountHandler) Login(c *fiber.Ctx) error {
	var request LoginRequest

	if err := c.BodyParser(&request); err != nil {
		return fail(c, fiber.StatusBadRequest, "Cannot parse JSON")
	}

	if err := h.validate.Struct(&request); err != nil {
		return fail(c, fiber.StatusBadRequest, "Email and password are required")
	}

	_, token, err := h.accounts.Login(c.Context(), request.Email, request.Password)
	if err != nil {
		return serviceError(c, err)
	}

	h.issuer.SetCookie(c, token)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Login successful",
	})
}

func (h *AccountHandler) GetMe(c *fiber.Ctx) error {
	user, ok := c.Locals("user").(*model.User)
	if !ok {
		return fail(c, fiber.StatusNotFound, "User not found")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    user,
	})
}

func (h *AccountHandler) Logout(c *fiber.Ctx) error {
	h.issuer.ClearCookie(c)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Logout successful",
	})
}

type VerifyOtpRequest struct {
	Otp string `json:"otp"`
}

func (h *AccountHandler) VerifyOtp(c *fiber.Ctx) error {
	var request VerifyOtpRequest

	if err := c.BodyParser(&request); err != nil {
		return fail(c, fiber.StatusBadRequest, "Cannot parse JSON")
	}

	user, err := h.accounts.VerifyOtp(c.Context(), request.Otp)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Account verified",
		"data":    user,
	})
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required"`
}

func (h *AccountHandler) ForgotPassword(c *fiber.Ctx) error {
	var request ForgotPasswordRequest

	if err := c.BodyParser(&request); err != nil {
		return fail(c, fiber.StatusBadRequest, "Cannot parse JSON")
	}

	if err := h.validate.Struct(&request); err != nil {
		return fail(c, fiber.StatusBadRequest, "Email is required")
	}

	if err := h.accounts.ForgotPassword(c.Context(), request.Email); err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Password reset email sent",
	})
}

type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

func (h *AccountHandler) ResetPassword(c *fiber.Ctx) error {
	var request ResetPasswordRequest

	if err := c.BodyParser(&request); err != nil {
		return fail(c, fiber.StatusBadRequest, "Cannot parse JSON")
	}

	if err := h.validate.Struct(&request); err != nil {
		return fail(c, fiber.StatusBadRequest, "Password is required")
	}

	if err := h.accounts.ResetPassword(c.Context(), c.Params("token"), request.Password); err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Password reset successful",
	})
}

func (h *AccountHandler) UploadAvatar(c *fiber.Ctx) error {
	user, ok := c.Locals("user").(*model.User)
	if !ok {
		return fail(c, fiber.StatusNotFound, "User not found")
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Avatar file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return serviceError(c, err)
	}
	defer file.Close()

	updated, err := h.accounts.UpdateAvatar(c.Context(), user.ID, fileHeader.Filename, file)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Avatar updated",
		"data":    fiber.Map{"avatar_url": updated.AvatarURL},
	})
}
