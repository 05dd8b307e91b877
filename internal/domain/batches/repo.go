package batches

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const batchColumns = `id, name, project_id, requester_id, COALESCE(task_id, 0), stage_id, date, status,
	COALESCE(approver_id, 0), decided_at, created_at`

func scanBatch(row pgx.Row) (*Batch, error) {
	var b Batch
	if err := row.Scan(&b.ID, &b.Name, &b.ProjectID, &b.RequesterID, &b.TaskID, &b.StageID, &b.Date, &b.Status,
		&b.ApproverID, &b.DecidedAt, &b.CreatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// Create сохраняет заявку со строками в одной транзакции и присваивает номер
func (r *Repo) Create(ctx context.Context, b *Batch) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var taskID *int64
	if b.TaskID != 0 {
		taskID = &b.TaskID
	}
	var id int64
	if err := tx.QueryRow(ctx, `
		INSERT INTO mr_batches (project_id, requester_id, task_id, stage_id, date, status)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id
	`, b.ProjectID, b.RequesterID, taskID, b.StageID, b.Date, b.Status).Scan(&id); err != nil {
		return 0, err
	}
	name := fmt.Sprintf("MR/%d/%05d", b.Date.Year(), id)
	if _, err := tx.Exec(ctx, `UPDATE mr_batches SET name = $2 WHERE id = $1`, id, name); err != nil {
		return 0, err
	}
	if err := insertLines(ctx, tx, id, 0, b.Lines); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	b.ID, b.Name = id, name
	return id, nil
}

func insertLines(ctx context.Context, tx pgx.Tx, batchID int64, seq int, lines []Line) error {
	for _, l := range lines {
		seq += 10
		if _, err := tx.Exec(ctx, `
			INSERT INTO mr_lines (batch_id, seq, product_name, quantity, unit_price)
			VALUES ($1,$2,$3,$4,$5)
		`, batchID, seq, l.ProductName, l.Quantity, l.UnitPrice); err != nil {
			return err
		}
	}
	return nil
}

// AppendLines дописывает строки в существующую заявку
func (r *Repo) AppendLines(ctx context.Context, batchID int64, lines []Line) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var seq int
	if err := tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM mr_lines WHERE batch_id = $1
	`, batchID).Scan(&seq); err != nil {
		return err
	}
	if err := insertLines(ctx, tx, batchID, seq, lines); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repo) Get(ctx context.Context, id int64) (*Batch, error) {
	b, err := scanBatch(r.pool.QueryRow(ctx, `SELECT `+batchColumns+` FROM mr_batches WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if b.Lines, err = r.lines(ctx, id); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *Repo) lines(ctx context.Context, batchID int64) ([]Line, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, batch_id, seq, product_name, quantity, unit_price, target_ref
		FROM mr_lines WHERE batch_id = $1
		ORDER BY seq, id
	`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.BatchID, &l.Seq, &l.ProductName, &l.Quantity, &l.UnitPrice, &l.TargetRef); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// FindDraftForTask черновик по задаче на дату, чтобы не плодить заявки за день
func (r *Repo) FindDraftForTask(ctx context.Context, taskID int64, day time.Time) (*Batch, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		SELECT id FROM mr_batches
		WHERE task_id = $1 AND date = $2::date AND status = 'draft'
		ORDER BY id LIMIT 1
	`, taskID, day).Scan(&id)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// ListByProject заявки проекта (без строк), новые сверху
func (r *Repo) ListByProject(ctx context.Context, projectID int64, statuses []Status, limit int) ([]Batch, error) {
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, string(s))
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+batchColumns+`
		FROM mr_batches
		WHERE project_id = $1 AND (cardinality($2::text[]) = 0 OR status = ANY($2))
		ORDER BY date DESC, id DESC
		LIMIT $3
	`, projectID, names, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// ListOpenLines строки заявок проекта в статусах draft/priced
func (r *Repo) ListOpenLines(ctx context.Context, projectID int64) ([]OpenLine, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.id, l.batch_id, l.seq, l.product_name, l.quantity, l.unit_price, l.target_ref, b.status
		FROM mr_lines l
		JOIN mr_batches b ON b.id = l.batch_id
		WHERE b.project_id = $1 AND b.status IN ('draft', 'priced')
		ORDER BY b.id, l.seq
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OpenLine
	for rows.Next() {
		var ol OpenLine
		if err := rows.Scan(&ol.ID, &ol.BatchID, &ol.Seq, &ol.ProductName, &ol.Quantity, &ol.UnitPrice,
			&ol.TargetRef, &ol.BatchStatus); err != nil {
			return nil, err
		}
		out = append(out, ol)
	}
	return out, rows.Err()
}

func (r *Repo) SetLinePrice(ctx context.Context, lineID int64, price float64) error {
	_, err := r.pool.Exec(ctx, `UPDATE mr_lines SET unit_price = $2 WHERE id = $1`, lineID, price)
	return err
}

func (r *Repo) SetLineTarget(ctx context.Context, lineID int64, ref string) error {
	_, err := r.pool.Exec(ctx, `UPDATE mr_lines SET target_ref = $2 WHERE id = $1`, lineID, ref)
	return err
}

// UpdateStatus фиксирует статус; approverID/decidedAt пишутся только при решении
func (r *Repo) UpdateStatus(ctx context.Context, id int64, st Status, approverID int64, decidedAt *time.Time) error {
	var approver *int64
	if approverID != 0 {
		approver = &approverID
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE mr_batches
		SET status = $2,
		    approver_id = COALESCE($3, approver_id),
		    decided_at = COALESCE($4, decided_at)
		WHERE id = $1
	`, id, st, approver, decidedAt)
	return err
}
