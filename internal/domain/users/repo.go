package users

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const userColumns = `id, telegram_id, chat_id, username, full_name, role, status, allowed_project_ids, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.TelegramID, &u.ChatID, &u.Username, &u.FullName, &u.Role, &u.Status,
		&u.AllowedProjectIDs, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) GetByTelegramID(ctx context.Context, tgID int64) (*User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, tgID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// Register заводит пользователя при первом контакте. Повторный вызов обновляет
// username/chat_id, роль и статус не трогает.
func (r *Repo) Register(ctx context.Context, tg Telegram, role Role, status Status) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		INSERT INTO users (telegram_id, chat_id, username, role, status)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (telegram_id)
		DO UPDATE SET
			chat_id    = EXCLUDED.chat_id,
			username   = EXCLUDED.username,
			updated_at = now()
		RETURNING `+userColumns, tg.ID, tg.ChatID, tg.Username, role, status))
}

func (r *Repo) SetFullName(ctx context.Context, id int64, name string) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET full_name = $2, updated_at = now() WHERE id = $1`, id, name)
	return err
}

// Activate завершает регистрацию выбранной ролью. Админа не понижаем.
func (r *Repo) Activate(ctx context.Context, id int64, role Role) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users
		SET role = CASE WHEN role = 'admin' THEN role ELSE $2 END,
		    status = 'active',
		    updated_at = now()
		WHERE id = $1
	`, id, role)
	return err
}

// ListByRole активные пользователи с одной из ролей
func (r *Repo) ListByRole(ctx context.Context, roles ...Role) ([]User, error) {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE status = 'active' AND role = ANY($1)
		ORDER BY id
	`, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}
