package plans

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("plans: not found or inactive")

type Repo struct{ db *pgxpool.Pool }

func NewRepo(db *pgxpool.Pool) *Repo { return &Repo{db: db} }

func (r *Repo) ListActive(ctx context.Context) ([]Plan, error) {
	const q = `SELECT id, code, title, gb, days, devices, price_toman, active
	           FROM plans WHERE active ORDER BY price_toman`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Plan
	for rows.Next() {
		var p Plan
		if err := rows.Scan(&p.ID, &p.Code, &p.Title, &p.GB, &p.Days, &p.Devices, &p.PriceToman, &p.Active); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) GetActiveByCode(ctx context.Context, code string) (*Plan, error) {
	const q = `SELECT id, code, title, gb, days, devices, price_toman, active
	           FROM plans WHERE code = $1 AND active`
	var p Plan
	if err := r.db.QueryRow(ctx, q, code).Scan(
		&p.ID, &p.Code, &p.Title, &p.GB, &p.Days, &p.Devices, &p.PriceToman, &p.Active,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
