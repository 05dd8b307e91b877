package projects

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const projectSelect = `
	SELECT p.id, p.name, p.address,
	       COALESCE(p.manager_id, 0), COALESCE(p.designer_id, 0), COALESCE(p.foreman_id, 0),
	       COALESCE(p.supply_id, 0), COALESCE(p.customer_id, 0), p.odoo_id,
	       COALESCE(array_agg(w.user_id) FILTER (WHERE w.user_id IS NOT NULL), '{}')
	FROM projects p
	LEFT JOIN project_workers w ON w.project_id = p.id
`

func scanProject(row pgx.Row) (*Project, error) {
	var p Project
	if err := row.Scan(&p.ID, &p.Name, &p.Address, &p.ManagerID, &p.DesignerID, &p.ForemanID,
		&p.SupplyID, &p.CustomerID, &p.OdooID, &p.WorkerIDs); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repo) Get(ctx context.Context, id int64) (*Project, error) {
	p, err := scanProject(r.pool.QueryRow(ctx, projectSelect+` WHERE p.id = $1 GROUP BY p.id`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// List все проекты; доступ фильтруется через Allowed
func (r *Repo) List(ctx context.Context) ([]Project, error) {
	rows, err := r.pool.Query(ctx, projectSelect+` GROUP BY p.id ORDER BY p.name, p.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
