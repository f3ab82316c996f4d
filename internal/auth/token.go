package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "paymanni-web"

// ErrInvalidToken indicates a session cookie that failed validation. Treated
// identically to "no cookie": the request resolves as anonymous.
var ErrInvalidToken = errors.New("auth: invalid session token")

type cookieClaims struct {
	jwt.RegisteredClaims
}

// signSessionToken mints the HS256 JWT stored in the session cookie. The
// token carries only the session key; identity and bearer token stay
// server-side in the session store.
func (s *Service) signSessionToken(sessionKey string) (string, error) {
	now := s.now().UTC()
	claims := cookieClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   sessionKey,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cookieTTL)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// parseSessionToken verifies the cookie signature and claims and returns the
// session key. Any failure maps to ErrInvalidToken; a tampered cookie must
// look exactly like an absent one.
func (s *Service) parseSessionToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &cookieClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*cookieClaims)
	if !ok || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if claims.Issuer != issuer || strings.TrimSpace(claims.Subject) == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
