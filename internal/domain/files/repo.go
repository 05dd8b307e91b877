package files

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// Rooms помещения проекта, где есть актуальные файлы
func (r *Repo) Rooms(ctx context.Context, projectID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT room_ref FROM project_files
		WHERE project_id = $1 AND is_latest
		ORDER BY room_ref
	`, projectID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *Repo) Categories(ctx context.Context, projectID int64, room string) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT c.id, c.name, c.seq
		FROM project_files f
		JOIN file_categories c ON c.id = f.category_id
		WHERE f.project_id = $1 AND f.room_ref = $2 AND f.is_latest
		ORDER BY c.seq, c.name
	`, projectID, room)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		var seq int
		if err := rows.Scan(&c.ID, &c.Name, &seq); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const fileColumns = `id, project_id, room_ref, category_id, name, version, is_latest, tg_file_id, uploaded_by`

func scanFile(row pgx.Row) (*File, error) {
	var f File
	if err := row.Scan(&f.ID, &f.ProjectID, &f.Room, &f.CategoryID, &f.Name, &f.Version, &f.IsLatest,
		&f.TGFileID, &f.UploadedBy); err != nil {
		return nil, err
	}
	return &f, nil
}

// Latest только последние версии файлов в помещении и категории
func (r *Repo) Latest(ctx context.Context, projectID int64, room string, categoryID int64) ([]File, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+fileColumns+`
		FROM project_files
		WHERE project_id = $1 AND room_ref = $2 AND category_id = $3 AND is_latest
		ORDER BY name, id
	`, projectID, room, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, id int64) (*File, error) {
	f, err := scanFile(r.pool.QueryRow(ctx, `SELECT `+fileColumns+` FROM project_files WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return f, err
}
