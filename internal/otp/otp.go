// Package otp generates the one-time codes and reset tokens used by the
// account verification and password reset flows.
package otp

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	otpMin = 100000
	otpMax = 999999
)

// Generate returns a 6-digit numeric code in [100000, 999999].
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", otpMin+n.Int64()), nil
}

// GenerateResetToken returns a hex-encoded token from 32 bytes of entropy.
func GenerateResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
