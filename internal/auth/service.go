package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"

	"github.com/gosuda/widgetboard/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrWeakPassword       = errors.New("auth: password too short")
)

// MinPasswordLength is the shortest password SetPassword accepts.
const MinPasswordLength = 8

// argon2id parameters following OWASP recommendations.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // 64 MiB
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

// TokenPair is what a successful login returns.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type Service struct {
	users      domain.UserRepository
	jwtSecret  string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewService(users domain.UserRepository, jwtSecret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		users:      users,
		jwtSecret:  jwtSecret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Login checks the password and issues tokens scoped to companyID. The user
// must hold a role in that company.
func (s *Service) Login(ctx context.Context, companyID uuid.UUID, email, password string) (*TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("auth.Login: %w", ErrInvalidCredentials)
	}

	if !verifyPassword(password, user.PasswordHash) {
		return nil, fmt.Errorf("auth.Login: %w", ErrInvalidCredentials)
	}

	role, err := s.roleIn(ctx, user.ID, companyID)
	if err != nil {
		return nil, fmt.Errorf("auth.Login: %w", err)
	}

	sub := Subject{CompanyID: companyID, UserID: user.ID, Role: role, JTI: user.JTI}

	access, err := IssueAccessToken(s.jwtSecret, sub, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("auth.Login: %w", err)
	}

	refresh, err := IssueRefreshToken(s.jwtSecret, sub, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("auth.Login: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// RefreshToken validates a refresh token and issues a new access token with
// the user's current role.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := ValidateToken(s.jwtSecret, refreshToken)
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: %w", err)
	}
	if claims.TokenType != TokenTypeRefresh {
		return "", fmt.Errorf("auth.RefreshToken: %w", ErrInvalidToken)
	}

	sub, err := claims.Subject()
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: %w", err)
	}

	user, err := s.users.GetByID(ctx, sub.UserID)
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: %w", ErrInvalidToken)
	}
	if user.JTI != sub.JTI {
		return "", fmt.Errorf("auth.RefreshToken: revoked: %w", ErrInvalidToken)
	}

	sub.Role, err = s.roleIn(ctx, user.ID, sub.CompanyID)
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: %w", err)
	}

	access, err := IssueAccessToken(s.jwtSecret, sub, s.accessTTL)
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: %w", err)
	}

	return access, nil
}

// SetPassword consumes a password token. The user's JTI is rotated, so the
// token cannot be used twice and earlier sessions are revoked.
func (s *Service) SetPassword(ctx context.Context, token, password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("auth.SetPassword: %w", ErrWeakPassword)
	}

	claims, err := ValidateToken(s.jwtSecret, token)
	if err != nil {
		return fmt.Errorf("auth.SetPassword: %w", err)
	}
	if claims.TokenType != TokenTypePassword {
		return fmt.Errorf("auth.SetPassword: %w", ErrInvalidToken)
	}

	sub, err := claims.Subject()
	if err != nil {
		return fmt.Errorf("auth.SetPassword: %w", err)
	}

	user, err := s.users.GetByID(ctx, sub.UserID)
	if err != nil {
		return fmt.Errorf("auth.SetPassword: %w", ErrInvalidToken)
	}
	if user.JTI != sub.JTI {
		return fmt.Errorf("auth.SetPassword: already used: %w", ErrInvalidToken)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("auth.SetPassword: %w", err)
	}

	if err := s.users.SetPassword(ctx, user.ID, hash, NewJTI()); err != nil {
		return fmt.Errorf("auth.SetPassword: %w", err)
	}

	return nil
}

func (s *Service) roleIn(ctx context.Context, userID, companyID uuid.UUID) (string, error) {
	memberships, err := s.users.Memberships(ctx, userID)
	if err != nil {
		return "", err
	}
	for _, m := range memberships {
		if m.CompanyID == companyID {
			return m.Role, nil
		}
	}
	return "", domain.ErrForbidden
}

// NewJTI returns a fresh random token id.
func NewJTI() string {
	return uuid.NewString()
}

// hashPassword generates an argon2id hash with a random salt.
// Format: hex(salt) + "$" + hex(hash)
func hashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash), nil
}

func verifyPassword(password, encoded string) bool {
	saltHex, hashHex, ok := strings.Cut(encoded, "$")
	if !ok || saltHex == "" || hashHex == "" {
		return false
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}

	expected, err := hex.DecodeString(hashHex)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return subtle.ConstantTimeCompare(computed, expected) == 1
}
