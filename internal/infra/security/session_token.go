package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/havenlane/estate-iam/internal/core/domain"
)

var (
	ErrInvalidToken = errors.New("session token is invalid")
	ErrExpiredToken = errors.New("session token has expired")
)

type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenSigner issues and verifies HMAC-signed session tokens. Tokens carry
// only the identity id and role; everything else is read fresh on each
// request.
type TokenSigner struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewTokenSigner(secret, issuer string, ttl time.Duration) (*TokenSigner, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("session secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &TokenSigner{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}, nil
}

// TTL reports the configured session lifetime.
func (s *TokenSigner) TTL() time.Duration {
	return s.ttl
}

// Sign produces a signed token for the given session claim.
func (s *TokenSigner) Sign(claim domain.SessionClaim) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(s.ttl)

	claims := sessionClaims{
		Role: string(claim.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claim.IdentityID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}

	return signed, expiresAt, nil
}

// Verify parses and validates a signed token and returns the embedded claim.
// Expired tokens return ErrExpiredToken; any other failure maps to
// ErrInvalidToken.
func (s *TokenSigner) Verify(raw string) (domain.SessionClaim, error) {
	var claims sessionClaims

	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.SessionClaim{}, ErrExpiredToken
		}
		return domain.SessionClaim{}, ErrInvalidToken
	}
	if !token.Valid {
		return domain.SessionClaim{}, ErrInvalidToken
	}

	if _, err := uuid.Parse(claims.Subject); err != nil {
		return domain.SessionClaim{}, ErrInvalidToken
	}

	return domain.SessionClaim{
		IdentityID: claims.Subject,
		Role:       domain.ClassifyRole(claims.Role),
	}, nil
}
