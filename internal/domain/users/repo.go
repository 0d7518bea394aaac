package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("users: not found")

type Repo struct{ db *pgxpool.Pool }

func NewRepo(db *pgxpool.Pool) *Repo { return &Repo{db: db} }

// GetOrCreate создаёт пользователя при первом контакте и обновляет
// username/first_name при каждом — они в Telegram меняются.
func (r *Repo) GetOrCreate(ctx context.Context, tgID int64, username, firstName string) (*User, error) {
	const q = `
INSERT INTO users (tg_id, username, first_name)
VALUES ($1, $2, $3)
ON CONFLICT (tg_id) DO UPDATE SET username = $2, first_name = $3
RETURNING id, tg_id, username, first_name, created_at`
	var u User
	if err := r.db.QueryRow(ctx, q, tgID, username, firstName).Scan(
		&u.ID, &u.TgID, &u.Username, &u.FirstName, &u.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*User, error) {
	const q = `SELECT id, tg_id, username, first_name, created_at FROM users WHERE id = $1`
	var u User
	if err := r.db.QueryRow(ctx, q, id).Scan(
		&u.ID, &u.TgID, &u.Username, &u.FirstName, &u.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repo) GetByTelegramID(ctx context.Context, tgID int64) (*User, error) {
	const q = `SELECT id, tg_id, username, first_name, created_at FROM users WHERE tg_id = $1`
	var u User
	if err := r.db.QueryRow(ctx, q, tgID).Scan(
		&u.ID, &u.TgID, &u.Username, &u.FirstName, &u.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
