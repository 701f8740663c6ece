package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/widgetboard/internal/domain"
)

// uniqueViolation is the postgres SQLSTATE for unique constraint errors.
const uniqueViolation = "23505"

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, email, first_name, last_name, password_hash, jti, created_at, updated_at`

// CreateWithRelation inserts the user and its company link in one
// transaction; either both rows exist afterwards or neither does.
func (r *UserRepo) CreateWithRelation(ctx context.Context, u *domain.User, rel *domain.UserRoleRelation) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO users (`+userColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			u.ID, u.Email, u.FirstName, u.LastName, nilIfEmpty(u.PasswordHash), u.JTI, u.CreatedAt, u.UpdatedAt,
		)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO user_role_relations (id, user_id, company_id, role_id, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			rel.ID, rel.UserID, rel.CompanyID, rel.RoleID, rel.CreatedAt,
		)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("userRepo.CreateWithRelation: %w", domain.ErrConflict)
		}
		return fmt.Errorf("userRepo.CreateWithRelation: %w", err)
	}

	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("userRepo.GetByID: %w", err)
	}
	return u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return nil, fmt.Errorf("userRepo.GetByEmail: %w", err)
	}
	return u, nil
}

// SetPassword stores a new hash and rotates the token id, which revokes every
// token issued before.
func (r *UserRepo) SetPassword(ctx context.Context, id uuid.UUID, hash, jti string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $1, jti = $2, updated_at = now() WHERE id = $3`,
		hash, jti, id,
	)
	if err != nil {
		return fmt.Errorf("userRepo.SetPassword: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("userRepo.SetPassword: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *UserRepo) Memberships(ctx context.Context, userID uuid.UUID) ([]*domain.Membership, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT rel.company_id, roles.name
		 FROM user_role_relations rel
		 JOIN roles ON roles.id = rel.role_id
		 WHERE rel.user_id = $1
		 ORDER BY rel.created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("userRepo.Memberships: %w", err)
	}
	defer rows.Close()

	var out []*domain.Membership
	for rows.Next() {
		var m domain.Membership
		if err := rows.Scan(&m.CompanyID, &m.Role); err != nil {
			return nil, fmt.Errorf("userRepo.Memberships: scan: %w", err)
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("userRepo.Memberships: rows: %w", err)
	}

	return out, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var passwordHash *string

	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &passwordHash, &u.JTI, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.PasswordHash = derefStr(passwordHash)
	return &u, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
