package issues

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Create(ctx context.Context, is *Issue) (int64, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO issues (project_id, stage_id, task_id, reporter_id, text, priority, status, photo_ids)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id, created_at
	`, is.ProjectID, is.StageID, is.TaskID, is.ReporterID, is.Text, is.Priority, is.Status, is.PhotoIDs).
		Scan(&is.ID, &is.CreatedAt)
	return is.ID, err
}

func (r *Repo) Get(ctx context.Context, id int64) (*Issue, error) {
	var is Issue
	err := r.pool.QueryRow(ctx, `
		SELECT id, project_id, stage_id, task_id, reporter_id, text, priority, status, photo_ids,
		       notify_chat_id, notify_message_id, created_at
		FROM issues WHERE id = $1
	`, id).Scan(&is.ID, &is.ProjectID, &is.StageID, &is.TaskID, &is.ReporterID, &is.Text, &is.Priority,
		&is.Status, &is.PhotoIDs, &is.NotifyChatID, &is.NotifyMessageID, &is.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &is, nil
}

func (r *Repo) SetStatus(ctx context.Context, id int64, st Status) error {
	_, err := r.pool.Exec(ctx, `UPDATE issues SET status = $2 WHERE id = $1`, id, st)
	return err
}

// SetNotification запоминает отправленное уведомление для последующего редактирования
func (r *Repo) SetNotification(ctx context.Context, id, chatID int64, messageID int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE issues SET notify_chat_id = $2, notify_message_id = $3 WHERE id = $1
	`, id, chatID, messageID)
	return err
}
