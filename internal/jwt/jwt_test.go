package jwt_test

import (
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/irfandhmahudi/backend-mern/internal/jwt"
	"github.com/irfandhmahudi/backend-mern/internal/model"
)

func testUser() *model.User {
	return &model.User{
		ID:       uuid.New(),
		Username: "ana",
		Email:    "ana@x.com",
	}
}

func TestGenerateAndValidate(t *testing.T) {
	issuer := jwt.NewIssuer("test-secret", false)
	user := testUser()

	token, err := issuer.Generate(user)
	require.NoError(t, err)

	claims, err := issuer.Validate(token)
	require.NoError(t, err)
	require.Equal(t, user.ID.String(), claims["sub"])
	require.Equal(t, "ana", claims["username"])
	require.Equal(t, "ana@x.com", claims["email"])

	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(jwt.TokenTTL), exp.Time, time.Minute)
}

func TestValidate_WrongSecret(t *testing.T) {
	token, err := jwt.NewIssuer("secret-a", false).Generate(testUser())
	require.NoError(t, err)

	_, err = jwt.NewIssuer("secret-b", false).Validate(token)
	require.Error(t, err)
}

func TestValidate_Expired(t *testing.T) {
	secret := []byte("test-secret")
	claims := jwtv5.MapClaims{
		"sub": uuid.NewString(),
		"exp": time.Now().Add(-time.Minute).Unix(),
	}
	token, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)

	_, err = jwt.NewIssuer("test-secret", false).Validate(token)
	require.ErrorIs(t, err, jwtv5.ErrTokenExpired)
}

// Logout only clears the client cookie; there is no revocation list, so a
// token issued before logout verifies until its natural expiry.
func TestValidate_TokenRemainsValidAfterLogout(t *testing.T) {
	issuer := jwt.NewIssuer("test-secret", false)

	token, err := issuer.Generate(testUser())
	require.NoError(t, err)

	// Simulated logout: nothing happens server-side.
	_, err = issuer.Validate(token)
	require.NoError(t, err)
}
