package dailyreports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// Append добавляет текст и медиа к отчёту за день, создавая его при необходимости
func (r *Repo) Append(ctx context.Context, projectID, foremanID int64, day time.Time, text string, media []string) (*Report, error) {
	if media == nil {
		media = []string{}
	}
	var rep Report
	err := r.pool.QueryRow(ctx, `
		INSERT INTO daily_reports (project_id, foreman_id, date, text, media_ids)
		VALUES ($1,$2,$3::date,$4,$5)
		ON CONFLICT (project_id, date)
		DO UPDATE SET
			text = CASE
				WHEN daily_reports.text = '' THEN EXCLUDED.text
				WHEN EXCLUDED.text = '' THEN daily_reports.text
				ELSE daily_reports.text || E'\n\n' || EXCLUDED.text
			END,
			media_ids = daily_reports.media_ids || EXCLUDED.media_ids
		RETURNING id, project_id, foreman_id, date, text, media_ids
	`, projectID, foremanID, day, text, media).
		Scan(&rep.ID, &rep.ProjectID, &rep.ForemanID, &rep.Date, &rep.Text, &rep.MediaIDs)
	if err != nil {
		return nil, err
	}
	return &rep, nil
}
