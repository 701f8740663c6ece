package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the JWT payload. RegisteredClaims.ID carries the user's current
// JTI, so rotating it on the user revokes every token issued before.
type Claims struct {
	jwt.RegisteredClaims
	CompanyID string `json:"cid,omitempty"`
	UserID    string `json:"uid"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"typ"` // "access", "refresh" or "password"
}

const (
	TokenTypeAccess   = "access"
	TokenTypeRefresh  = "refresh"
	TokenTypePassword = "password"

	issuer = "widgetboard"
)

// Subject identifies who a token is issued to.
type Subject struct {
	CompanyID uuid.UUID
	UserID    uuid.UUID
	Role      string
	JTI       string
}

// ErrInvalidToken is returned when a JWT cannot be parsed, has expired or has
// been revoked.
var ErrInvalidToken = errors.New("auth: invalid or expired token")

func IssueAccessToken(secret string, sub Subject, ttl time.Duration) (string, error) {
	return issueToken(secret, sub, TokenTypeAccess, ttl)
}

func IssueRefreshToken(secret string, sub Subject, ttl time.Duration) (string, error) {
	return issueToken(secret, sub, TokenTypeRefresh, ttl)
}

// IssuePasswordToken signs the link a newly registered user follows to set a
// password. It carries no company or role.
func IssuePasswordToken(secret string, userID uuid.UUID, jti string, ttl time.Duration) (string, error) {
	return issueToken(secret, Subject{UserID: userID, JTI: jti}, TokenTypePassword, ttl)
}

func issueToken(secret string, sub Subject, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sub.JTI,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
		UserID:    sub.UserID.String(),
		Role:      sub.Role,
		TokenType: tokenType,
	}
	if sub.CompanyID != uuid.Nil {
		claims.CompanyID = sub.CompanyID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("auth.issueToken: %w", err)
	}

	return signed, nil
}

// ValidateToken parses and validates a JWT token string. Returns the embedded claims.
func ValidateToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(issuer))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("auth.ValidateToken: %w", ErrInvalidToken)
	}

	return claims, nil
}

// Subject parses the ids embedded in c.
func (c *Claims) Subject() (Subject, error) {
	userID, err := uuid.Parse(c.UserID)
	if err != nil {
		return Subject{}, fmt.Errorf("auth.Claims.Subject: user id: %w", ErrInvalidToken)
	}

	sub := Subject{UserID: userID, Role: c.Role, JTI: c.ID}
	if c.CompanyID != "" {
		sub.CompanyID, err = uuid.Parse(c.CompanyID)
		if err != nil {
			return Subject{}, fmt.Errorf("auth.Claims.Subject: company id: %w", ErrInvalidToken)
		}
	}

	return sub, nil
}
