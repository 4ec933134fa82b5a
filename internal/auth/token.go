package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleUser is the only role the service hands out.
const RoleUser = 4

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("jwt expired")
)

// Identity is the payload carried by a token. It is signed, not encrypted,
// so it must never hold secrets.
type Identity struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     int    `json:"role"`
}

type claims struct {
	Identity
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 identity tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService constructs a TokenService. A zero ttl issues tokens that
// never expire.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs identity into a token string.
func (s *TokenService) Issue(identity Identity) (string, error) {
	now := s.now()
	registered := jwt.RegisteredClaims{
		Subject:  strconv.FormatInt(identity.UserID, 10),
		IssuedAt: jwt.NewNumericDate(now),
	}
	if s.ttl > 0 {
		registered.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Identity:         identity,
		RegisteredClaims: registered,
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of tokenString and returns its
// identity. Failures are ErrTokenExpired or ErrInvalidToken.
func (s *TokenService) Verify(tokenString string) (Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	if c.UserID < 1 {
		return Identity{}, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}
	return c.Identity, nil
}
