package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTTL is how long an access token stays valid.
const AccessTTL = 72 * time.Hour

var ErrInvalidToken = errors.New("invalid token")

// AccessClaims is what a validated access token carries.
type AccessClaims struct {
	UserID       int64
	TokenVersion int
}

// TokenManager signs and validates HS256 access tokens.
type TokenManager struct {
	secret []byte
	now    func() time.Time
}

func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret), now: time.Now}
}

// GenerateToken creates a new JWT for a user. version is the user's
// current token version; bumping it server-side revokes the token.
func (m *TokenManager) GenerateToken(userID int64, version int) (string, error) {
	now := m.now()
	claims := jwt.MapClaims{
		"sub": userID, // "sub" (Subject) is the standard claim for User ID
		"ver": version,
		"exp": now.Add(AccessTTL).Unix(),
		"iat": now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateToken parses and validates a token string.
func (m *TokenManager) ValidateToken(tokenString string) (AccessClaims, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return AccessClaims{}, err
	}

	userID, ok := claims["sub"].(float64)
	if !ok {
		return AccessClaims{}, errors.New("invalid subject claim")
	}
	version, ok := claims["ver"].(float64)
	if !ok {
		return AccessClaims{}, errors.New("invalid version claim")
	}
	// JSON numbers decode as float64
	return AccessClaims{UserID: int64(userID), TokenVersion: int(version)}, nil
}

func (m *TokenManager) parse(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Only accept the algorithm we sign with.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
