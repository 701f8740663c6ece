package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/widgetboard/internal/domain"
)

type DashboardRepo struct {
	pool *pgxpool.Pool
}

func NewDashboardRepo(pool *pgxpool.Pool) *DashboardRepo {
	return &DashboardRepo{pool: pool}
}

const dashboardColumns = `id, company_id, name, width, height, request_options, created_at, updated_at`

func (r *DashboardRepo) Create(ctx context.Context, d *domain.Dashboard) error {
	opts, err := encodeOptions(d.RequestOptions)
	if err != nil {
		return fmt.Errorf("dashboardRepo.Create: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO dashboards (`+dashboardColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.ID, d.CompanyID, d.Name, d.Width, d.Height, opts, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("dashboardRepo.Create: %w", err)
	}

	return nil
}

func (r *DashboardRepo) GetByID(ctx context.Context, companyID, id uuid.UUID) (*domain.Dashboard, error) {
	d, err := scanDashboard(r.pool.QueryRow(ctx,
		`SELECT `+dashboardColumns+` FROM dashboards WHERE id = $1 AND company_id = $2`,
		id, companyID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("dashboardRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("dashboardRepo.GetByID: %w", err)
	}

	return d, nil
}

func (r *DashboardRepo) List(ctx context.Context, companyID uuid.UUID) ([]*domain.Dashboard, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+dashboardColumns+` FROM dashboards WHERE company_id = $1 ORDER BY created_at`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("dashboardRepo.List: %w", err)
	}
	defer rows.Close()

	var out []*domain.Dashboard
	for rows.Next() {
		d, err := scanDashboard(rows)
		if err != nil {
			return nil, fmt.Errorf("dashboardRepo.List: scan: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dashboardRepo.List: rows: %w", err)
	}

	return out, nil
}

func (r *DashboardRepo) UpdateRequestOptions(ctx context.Context, companyID, id uuid.UUID, opts domain.RequestOptions) error {
	raw, err := encodeOptions(opts)
	if err != nil {
		return fmt.Errorf("dashboardRepo.UpdateRequestOptions: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE dashboards SET request_options = $1, updated_at = now()
		 WHERE id = $2 AND company_id = $3`,
		raw, id, companyID,
	)
	if err != nil {
		return fmt.Errorf("dashboardRepo.UpdateRequestOptions: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("dashboardRepo.UpdateRequestOptions: %w", domain.ErrNotFound)
	}

	return nil
}

func scanDashboard(row pgx.Row) (*domain.Dashboard, error) {
	var d domain.Dashboard
	var opts []byte

	err := row.Scan(&d.ID, &d.CompanyID, &d.Name, &d.Width, &d.Height, &opts, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(opts) > 0 {
		if err := json.Unmarshal(opts, &d.RequestOptions); err != nil {
			return nil, fmt.Errorf("decode request_options: %w", err)
		}
	}
	return &d, nil
}

func encodeOptions(opts domain.RequestOptions) ([]byte, error) {
	if opts == nil {
		return []byte(`{}`), nil
	}
	raw, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("encode request_options: %w", err)
	}
	return raw, nil
}
