package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("orders: not found")

type Repo struct{ db *pgxpool.Pool }

func NewRepo(db *pgxpool.Pool) *Repo { return &Repo{db: db} }

func (r *Repo) Create(ctx context.Context, userID int64, planCode string, amountToman int) (*Order, error) {
	const q = `
INSERT INTO orders (user_id, plan_code, amount_toman, status)
VALUES ($1, $2, $3, 'pending')
RETURNING id, user_id, plan_code, amount_toman, status, provider, provider_ref, created_at, paid_at`
	var o Order
	if err := r.db.QueryRow(ctx, q, userID, planCode, amountToman).Scan(
		&o.ID, &o.UserID, &o.PlanCode, &o.AmountToman, &o.Status,
		&o.Provider, &o.ProviderRef, &o.CreatedAt, &o.PaidAt,
	); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Order, error) {
	const q = `SELECT id, user_id, plan_code, amount_toman, status, provider, provider_ref, created_at, paid_at
	           FROM orders WHERE id = $1`
	var o Order
	if err := r.db.QueryRow(ctx, q, id).Scan(
		&o.ID, &o.UserID, &o.PlanCode, &o.AmountToman, &o.Status,
		&o.Provider, &o.ProviderRef, &o.CreatedAt, &o.PaidAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// MarkPaid помечает заказ оплаченным. Только из pending — повторное нажатие
// «подтвердить» у админа не должно провоцировать второй provisioning.
func (r *Repo) MarkPaid(ctx context.Context, id int64, provider, providerRef string) (bool, error) {
	const q = `
UPDATE orders SET status = 'paid', provider = $2, provider_ref = $3, paid_at = NOW()
WHERE id = $1 AND status = 'pending'`
	tag, err := r.db.Exec(ctx, q, id, provider, providerRef)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repo) MarkRejected(ctx context.Context, id int64) (bool, error) {
	const q = `UPDATE orders SET status = 'rejected' WHERE id = $1 AND status = 'pending'`
	tag, err := r.db.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
