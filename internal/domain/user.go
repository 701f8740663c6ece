package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"-"` // argon2id, empty until the user sets a password
	JTI          string    `json:"-"` // rotated to revoke issued tokens
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserRoleRelation links a user to a company with a role.
type UserRoleRelation struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	CompanyID uuid.UUID
	RoleID    uuid.UUID
	CreatedAt time.Time
}

// Membership is the resolved company/role pair a user acts under.
type Membership struct {
	CompanyID uuid.UUID
	Role      string
}

type UserRepository interface {
	// CreateWithRelation persists the user and its company/role link atomically.
	CreateWithRelation(ctx context.Context, u *User, rel *UserRoleRelation) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	SetPassword(ctx context.Context, id uuid.UUID, hash, jti string) error
	Memberships(ctx context.Context, userID uuid.UUID) ([]*Membership, error)
}
