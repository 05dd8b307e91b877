package deliveries

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

const deliveryColumns = `id, batch_id, status, COALESCE(updated_by, 0), updated_at, note`

func scanDelivery(row pgx.Row) (*Delivery, error) {
	var d Delivery
	if err := row.Scan(&d.ID, &d.BatchID, &d.Status, &d.UpdatedBy, &d.UpdatedAt, &d.Note); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Repo) GetByBatch(ctx context.Context, batchID int64) (*Delivery, error) {
	d, err := scanDelivery(r.pool.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE batch_id = $1`, batchID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return d, err
}

// Ensure возвращает поставку заявки, создавая её в статусе status при первом обращении.
// created=true только для того вызова, который реально создал запись.
func (r *Repo) Ensure(ctx context.Context, batchID int64, status Status, actorID int64, src Source) (*Delivery, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	d, created, err := ensureTx(ctx, tx, batchID, status, actorID, src)
	if err != nil {
		return nil, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return d, created, nil
}

func ensureTx(ctx context.Context, tx pgx.Tx, batchID int64, status Status, actorID int64, src Source) (*Delivery, bool, error) {
	var actor *int64
	if actorID != 0 {
		actor = &actorID
	}
	d, err := scanDelivery(tx.QueryRow(ctx, `
		INSERT INTO deliveries (batch_id, status, updated_by)
		VALUES ($1,$2,$3)
		ON CONFLICT (batch_id) DO NOTHING
		RETURNING `+deliveryColumns, batchID, status, actor))
	switch {
	case err == pgx.ErrNoRows:
		d, err = scanDelivery(tx.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE batch_id = $1 FOR UPDATE`, batchID))
		return d, false, err
	case err != nil:
		return nil, false, err
	}
	if err := insertLog(ctx, tx, InitialLog(d, actorID, src)); err != nil {
		return nil, false, err
	}
	return d, true, nil
}

// SetStatus меняет статус под блокировкой строки. changed=false — статус уже такой.
func (r *Repo) SetStatus(ctx context.Context, batchID int64, ch Change, p Policy) (*Delivery, bool, error) {
	if !ch.Status.Valid() {
		return nil, false, ErrUnknownStatus
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	d, created, err := ensureTx(ctx, tx, batchID, ch.Status, ch.ActorID, ch.Source)
	if err != nil {
		return nil, false, err
	}
	if created {
		if err := tx.Commit(ctx); err != nil {
			return nil, false, err
		}
		return d, true, nil
	}

	entry, err := Apply(d, ch, p, time.Now())
	if err != nil || entry == nil {
		return d, false, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE deliveries SET status = $2, updated_by = $3, updated_at = $4, note = $5 WHERE id = $1
	`, d.ID, d.Status, d.UpdatedBy, d.UpdatedAt, d.Note); err != nil {
		return nil, false, err
	}
	if err := insertLog(ctx, tx, *entry); err != nil {
		return nil, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return d, true, nil
}

func insertLog(ctx context.Context, tx pgx.Tx, e LogEntry) error {
	var actor *int64
	if e.ActorID != 0 {
		actor = &e.ActorID
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO delivery_logs (delivery_id, old_status, new_status, actor_id, source, note)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, e.DeliveryID, e.Old, e.New, actor, e.Source, e.Note)
	return err
}

// Logs журнал поставки, старые записи первыми
func (r *Repo) Logs(ctx context.Context, deliveryID int64) ([]LogEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, delivery_id, old_status, new_status, COALESCE(actor_id, 0), source, note, created_at
		FROM delivery_logs WHERE delivery_id = $1
		ORDER BY id
	`, deliveryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.DeliveryID, &e.Old, &e.New, &e.ActorID, &e.Source, &e.Note, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
