package tasks

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const taskColumns = `id, project_id, stage_id, name, COALESCE(assignee_id, 0), deadline, status`

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	if err := row.Scan(&t.ID, &t.ProjectID, &t.StageID, &t.Name, &t.AssigneeID, &t.Deadline, &t.Status); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repo) Get(ctx context.Context, id int64) (*Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM work_tasks WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// ListForAssignee задачи исполнителя по проекту; day != nil — только с дедлайном на этот день
func (r *Repo) ListForAssignee(ctx context.Context, userID, projectID int64, day *time.Time) ([]Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM work_tasks
		WHERE assignee_id = $1 AND project_id = $2
		  AND ($3::date IS NULL OR deadline = $3::date)
		ORDER BY deadline NULLS LAST, id
	`, userID, projectID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *Repo) SetStatus(ctx context.Context, id int64, st Status) error {
	_, err := r.pool.Exec(ctx, `UPDATE work_tasks SET status = $2 WHERE id = $1`, id, st)
	return err
}
