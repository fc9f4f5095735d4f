package jwt

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/irfandhmahudi/backend-mern/internal/model"
)

// CookieName is the cookie the identity token travels in.
const CookieName = "jwt"

// TokenTTL is the validity window of an issued identity token. Logout only
// clears the client cookie; an issued token stays valid until this expiry.
const TokenTTL = 30 * 24 * time.Hour

type Issuer struct {
	secret []byte
	secure bool
}

// NewIssuer holds the process-wide signing secret. secure controls the
// Secure cookie attribute and should be true only in production.
func NewIssuer(secret string, secure bool) *Issuer {
	return &Issuer{secret: []byte(secret), secure: secure}
}

// Generate signs an identity token bound to the user's id, username and email.
func (i *Issuer) Generate(user *model.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":      user.ID.String(),
		"username": user.Username,
		"email":    user.Email,
		"exp":      time.Now().Add(TokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

func (i *Issuer) Validate(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrInvalidKey
}

// SetCookie attaches the token as an HTTP-only, same-site-strict cookie.
func (i *Issuer) SetCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    token,
		MaxAge:   int(TokenTTL / time.Second),
		HTTPOnly: true,
		Secure:   i.secure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

// ClearCookie overwrites the cookie with an empty value and immediate
// expiry. The token itself is not revoked server-side.
func (i *Issuer) ClearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   i.secure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}
