package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/widgetboard/internal/domain"
)

type WidgetRepo struct {
	pool *pgxpool.Pool
}

func NewWidgetRepo(pool *pgxpool.Pool) *WidgetRepo {
	return &WidgetRepo{pool: pool}
}

const widgetColumns = `w.id, w.dashboard_id, w.kind, w.title, w.pos_x, w.pos_y, w.size_x, w.size_y,
	w.z_index, w.expanded, w.created_at, w.updated_at`

func (r *WidgetRepo) Create(ctx context.Context, w *domain.Widget) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO widgets (id, dashboard_id, kind, title, pos_x, pos_y, size_x, size_y,
		                      z_index, expanded, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		w.ID, w.DashboardID, string(w.Kind), w.Title,
		w.Geometry.X, w.Geometry.Y, w.Geometry.Width, w.Geometry.Height,
		w.Geometry.Z, w.Expanded, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("widgetRepo.Create: %w", err)
	}

	return nil
}

func (r *WidgetRepo) GetByID(ctx context.Context, dashboardID, id uuid.UUID) (*domain.Widget, error) {
	w, err := scanWidget(r.pool.QueryRow(ctx,
		`SELECT `+widgetColumns+` FROM widgets w WHERE w.id = $1 AND w.dashboard_id = $2`,
		id, dashboardID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("widgetRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("widgetRepo.GetByID: %w", err)
	}

	return w, nil
}

func (r *WidgetRepo) GetForCompany(ctx context.Context, companyID, id uuid.UUID) (*domain.Widget, error) {
	w, err := scanWidget(r.pool.QueryRow(ctx,
		`SELECT `+widgetColumns+`
		 FROM widgets w
		 JOIN dashboards d ON d.id = w.dashboard_id
		 WHERE w.id = $1 AND d.company_id = $2`,
		id, companyID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("widgetRepo.GetForCompany: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("widgetRepo.GetForCompany: %w", err)
	}

	return w, nil
}

func (r *WidgetRepo) ListByDashboard(ctx context.Context, dashboardID uuid.UUID) ([]*domain.Widget, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+widgetColumns+` FROM widgets w WHERE w.dashboard_id = $1 ORDER BY w.z_index, w.created_at`,
		dashboardID,
	)
	if err != nil {
		return nil, fmt.Errorf("widgetRepo.ListByDashboard: %w", err)
	}
	defer rows.Close()

	var out []*domain.Widget
	for rows.Next() {
		w, err := scanWidget(rows)
		if err != nil {
			return nil, fmt.Errorf("widgetRepo.ListByDashboard: scan: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("widgetRepo.ListByDashboard: rows: %w", err)
	}

	return out, nil
}

func (r *WidgetRepo) Update(ctx context.Context, w *domain.Widget) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE widgets SET pos_x = $1, pos_y = $2, size_x = $3, size_y = $4,
		                    z_index = $5, expanded = $6, title = $7, updated_at = now()
		 WHERE id = $8 AND dashboard_id = $9`,
		w.Geometry.X, w.Geometry.Y, w.Geometry.Width, w.Geometry.Height,
		w.Geometry.Z, w.Expanded, w.Title, w.ID, w.DashboardID,
	)
	if err != nil {
		return fmt.Errorf("widgetRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("widgetRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *WidgetRepo) Delete(ctx context.Context, dashboardID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM widgets WHERE id = $1 AND dashboard_id = $2`,
		id, dashboardID,
	)
	if err != nil {
		return fmt.Errorf("widgetRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("widgetRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}

func scanWidget(row pgx.Row) (*domain.Widget, error) {
	var w domain.Widget
	var kind string

	err := row.Scan(&w.ID, &w.DashboardID, &kind, &w.Title,
		&w.Geometry.X, &w.Geometry.Y, &w.Geometry.Width, &w.Geometry.Height,
		&w.Geometry.Z, &w.Expanded, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	w.Kind = domain.WidgetKind(kind)
	return &w, nil
}
