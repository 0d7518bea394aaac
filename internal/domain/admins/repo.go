package admins

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Admin struct {
	TgID      int64
	Username  string
	AddedBy   int64
	CreatedAt time.Time
}

// Repo — ростер админов. Root-админ задаётся конфигом и в таблице не живёт.
type Repo struct{ db *pgxpool.Pool }

func NewRepo(db *pgxpool.Pool) *Repo { return &Repo{db: db} }

func (r *Repo) IsAdmin(ctx context.Context, tgID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM admins WHERE tg_id = $1)`, tgID).Scan(&exists)
	return exists, err
}

func (r *Repo) Add(ctx context.Context, tgID int64, username string, addedBy int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
INSERT INTO admins (tg_id, username, added_by) VALUES ($1, $2, $3)
ON CONFLICT (tg_id) DO NOTHING`, tgID, username, addedBy)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repo) Remove(ctx context.Context, tgID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM admins WHERE tg_id = $1`, tgID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repo) List(ctx context.Context) ([]Admin, error) {
	rows, err := r.db.Query(ctx,
		`SELECT tg_id, username, added_by, created_at FROM admins ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Admin
	for rows.Next() {
		var a Admin
		if err := rows.Scan(&a.TgID, &a.Username, &a.AddedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
