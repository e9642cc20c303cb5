// Package auth issues and verifies the bearer tokens used by both
// dashboards, and hashes account passwords.
//
// Tokens are HS256 JWTs carrying the account id (sub) and its role.
// There is no session table: a token is valid until it expires, and
// logging out means the client discards it.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aayamfest/ambassador/backend/internal/models"
)

// TokenDuration is how long a session token stays valid after login.
const TokenDuration = 7 * 24 * time.Hour

// Claims are the JWT claims embedded in each session token.
type Claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// SubjectID returns the admin or ambassador id the token was issued to.
func (c *Claims) SubjectID() string {
	return c.Subject
}

// GenerateToken creates a signed session token for subjectID.
func GenerateToken(subjectID string, role models.Role, secret string) (string, error) {
	return GenerateTokenAt(subjectID, role, secret, time.Now())
}

// GenerateTokenAt is GenerateToken with an explicit issue time, so tests
// can mint tokens that are already expired.
func GenerateTokenAt(subjectID string, role models.Role, secret string, issuedAt time.Time) (string, error) {
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(TokenDuration)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a token string and returns its claims.
// It rejects bad signatures, expired tokens, non-HMAC algorithms and
// tokens without a subject or a known role.
func ParseToken(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		// Guard against "alg:none" or RS256 tokens being passed to an HS256 server.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	if claims.Role != models.RoleAdmin && claims.Role != models.RoleAmbassador {
		return nil, fmt.Errorf("unknown role %q", claims.Role)
	}
	return claims, nil
}
