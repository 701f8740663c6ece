package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/widgetboard/internal/domain"
)

//go:embed schema.sql
var schema string

type Store struct {
	pool       *pgxpool.Pool
	companies  *CompanyRepo
	roles      *RoleRepo
	users      *UserRepo
	dashboards *DashboardRepo
	widgets    *WidgetRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{
		pool:       pool,
		companies:  NewCompanyRepo(pool),
		roles:      NewRoleRepo(pool),
		users:      NewUserRepo(pool),
		dashboards: NewDashboardRepo(pool),
		widgets:    NewWidgetRepo(pool),
	}, nil
}

// Migrate creates missing tables. Statements are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres.Migrate: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres.Ping: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Companies() domain.CompanyRepository    { return s.companies }
func (s *Store) Roles() domain.RoleRepository           { return s.roles }
func (s *Store) Users() domain.UserRepository           { return s.users }
func (s *Store) Dashboards() domain.DashboardRepository { return s.dashboards }
func (s *Store) Widgets() domain.WidgetRepository       { return s.widgets }
