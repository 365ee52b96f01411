package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ResetTTL is how long a password reset link stays valid.
const ResetTTL = 3 * 24 * time.Hour

const resetPurpose = "password_reset"

// ResetTokens issues single-use password reset tokens. A token embeds a
// fingerprint of the user's password hash and last login, so it stops
// validating once either changes.
type ResetTokens struct {
	tokens *TokenManager
}

func NewResetTokens(secret string) *ResetTokens {
	return &ResetTokens{tokens: NewTokenManager(secret)}
}

// Fingerprint summarises the account state a reset token is bound to.
func Fingerprint(passwordHash string, lastLogin *time.Time) string {
	login := ""
	if lastLogin != nil {
		login = strconv.FormatInt(lastLogin.Unix(), 10)
	}
	sum := sha256.Sum256([]byte(passwordHash + "|" + login))
	return hex.EncodeToString(sum[:12])
}

func (r *ResetTokens) Generate(userID int64, fingerprint string) (string, error) {
	now := r.tokens.now()
	claims := jwt.MapClaims{
		"sub":     userID,
		"purpose": resetPurpose,
		"fp":      fingerprint,
		"exp":     now.Add(ResetTTL).Unix(),
		"iat":     now.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.tokens.secret)
}

// Validate checks the signature, expiry, purpose, user and fingerprint.
func (r *ResetTokens) Validate(token string, userID int64, fingerprint string) error {
	claims, err := r.tokens.parse(token)
	if err != nil {
		return err
	}
	if claims["purpose"] != resetPurpose {
		return ErrInvalidToken
	}
	sub, ok := claims["sub"].(float64)
	if !ok || int64(sub) != userID {
		return ErrInvalidToken
	}
	if fp, _ := claims["fp"].(string); fp != fingerprint {
		return errors.New("reset token already used")
	}
	return nil
}

// EncodeUID renders a user id for a reset URL.
func EncodeUID(userID int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(userID, 10)))
}

// DecodeUID reverses EncodeUID.
func DecodeUID(uidb64 string) (int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(uidb64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return id, nil
}
