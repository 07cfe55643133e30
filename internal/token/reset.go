// Package token issues and verifies password reset tokens.
//
// A reset token is a signed JWT whose fingerprint claim binds it to the
// account's current credential state. Changing the password, the email, or
// the active flag changes the fingerprint, so every outstanding token for
// that account stops verifying without any server-side bookkeeping.
package token

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gnetorg/gnet/internal/model"
)

// ResetTokenTTL is how long a password reset link stays usable.
const ResetTokenTTL = 24 * time.Hour

var ErrInvalidToken = errors.New("invalid or expired reset token")

type resetClaims struct {
	jwt.RegisteredClaims
	Fingerprint string `json:"fpr"`
}

// Fingerprint derives the account-state digest a reset token is bound to.
func Fingerprint(u *model.User) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%s|%t|%s", u.PasswordHash, u.IsActive, u.Email))
	return hex.EncodeToString(h[:])
}

// GenerateReset signs a reset token for the given account.
func GenerateReset(u *model.User, secretKey []byte) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, resetClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ResetTokenTTL)),
		},
		Fingerprint: Fingerprint(u),
	})
	signed, err := token.SignedString(secretKey)
	if err != nil {
		return "", fmt.Errorf("sign reset token: %w", err)
	}
	return signed, nil
}

// VerifyReset checks the token's signature, expiry, subject, and fingerprint
// against the account's current state. It returns ErrInvalidToken for every
// failure mode so callers cannot distinguish them.
func VerifyReset(tokenString string, u *model.User, secretKey []byte) error {
	claims := &resetClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secretKey, nil
	})
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	if claims.Subject != strconv.FormatInt(u.ID, 10) {
		return ErrInvalidToken
	}
	if claims.Fingerprint != Fingerprint(u) {
		return ErrInvalidToken
	}
	return nil
}

// EncodeUID renders a user id as the opaque uid segment of a reset link.
func EncodeUID(id int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(id, 10)))
}

// DecodeUID reverses EncodeUID.
func DecodeUID(uid string) (int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return 0, ErrInvalidToken
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}
