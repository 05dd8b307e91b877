package dialog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Get(ctx context.Context, chatID int64) (*Item, error) {
	row := r.pool.QueryRow(ctx, `SELECT state, payload FROM dialog_states WHERE chat_id = $1`, chatID)
	var state string
	var raw []byte
	if err := row.Scan(&state, &raw); err != nil {
		if err == pgx.ErrNoRows {
			// строки нет — пользователь ещё ни разу не писал
			return &Item{ChatID: chatID, State: StateIdle, Payload: Payload{}}, nil
		}
		return nil, err
	}
	p := Payload{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
	}
	if state == "" {
		state = string(StateIdle)
	}
	return &Item{ChatID: chatID, State: State(state), Payload: p}, nil
}

func (r *Repo) Set(ctx context.Context, chatID int64, state State, payload Payload) error {
	if payload == nil {
		payload = Payload{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO dialog_states (chat_id, state, payload, updated_at)
		VALUES ($1,$2,$3,now())
		ON CONFLICT (chat_id) DO UPDATE SET
		  state=$2, payload=$3, updated_at=now()
	`, chatID, string(state), raw)
	return err
}

// Reset обнуляет состояние и все слоты, водяные знаки остаются на месте
func (r *Repo) Reset(ctx context.Context, chatID int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE dialog_states SET state='idle', payload='{}'::jsonb, updated_at=now()
		WHERE chat_id = $1
	`, chatID)
	return err
}

// AdvanceUpdate берёт строку актёра под FOR UPDATE, сравнивает update_id с
// водяным знаком и фиксирует новый знак сразу, до запуска обработчика.
// false — апдейт уже был (или старее), его нужно молча подтвердить.
func (r *Repo) AdvanceUpdate(ctx context.Context, chatID int64, updateID int) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err = tx.Exec(ctx, `
		INSERT INTO dialog_states (chat_id, state, payload)
		VALUES ($1,'idle','{}'::jsonb)
		ON CONFLICT (chat_id) DO NOTHING
	`, chatID); err != nil {
		return false, err
	}

	var last int64
	if err = tx.QueryRow(ctx, `
		SELECT last_update_id FROM dialog_states WHERE chat_id = $1 FOR UPDATE
	`, chatID).Scan(&last); err != nil {
		return false, err
	}
	if int64(updateID) <= last {
		return false, tx.Commit(ctx)
	}

	if _, err = tx.Exec(ctx, `
		UPDATE dialog_states SET last_update_id = $2 WHERE chat_id = $1
	`, chatID, updateID); err != nil {
		return false, err
	}
	if err = tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// MarkMessage условная запись message_id: пишем, только если он отличается
func (r *Repo) MarkMessage(ctx context.Context, chatID int64, messageID int) (bool, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		UPDATE dialog_states SET last_msg_id = $2
		WHERE chat_id = $1 AND last_msg_id IS DISTINCT FROM $2
		RETURNING chat_id
	`, chatID, messageID).Scan(&id)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
