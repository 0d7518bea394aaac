package subscriptions

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("subscriptions: not found")

type Repo struct{ db *pgxpool.Pool }

func NewRepo(db *pgxpool.Pool) *Repo { return &Repo{db: db} }

const subCols = `id, user_id, order_id, source_plan, quota_bytes, consumed_bytes,
	device_count, start_at, end_at, status, quota_notified, expired_notified`

func scanSub(row pgx.Row) (*Subscription, error) {
	var s Subscription
	if err := row.Scan(
		&s.ID, &s.UserID, &s.OrderID, &s.SourcePlan, &s.QuotaBytes, &s.ConsumedBytes,
		&s.DeviceCount, &s.StartAt, &s.EndAt, &s.Status, &s.QuotaNotified, &s.ExpiredNotified,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

// Create вставляет подписку вместе со всеми её аккаунтами одной транзакцией:
// полуготовая подписка без слотов в леджере появляться не должна.
func (r *Repo) Create(ctx context.Context, s *Subscription) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const q = `
INSERT INTO subscriptions (user_id, order_id, source_plan, quota_bytes, consumed_bytes,
	device_count, start_at, end_at, status, quota_notified, expired_notified)
VALUES ($1,$2,$3,$4,0,$5,$6,$7,'active',false,false)
RETURNING id`
	if err := tx.QueryRow(ctx, q,
		s.UserID, s.OrderID, s.SourcePlan, s.QuotaBytes, s.DeviceCount, s.StartAt, s.EndAt,
	).Scan(&s.ID); err != nil {
		return err
	}

	for i := range s.Accounts {
		a := &s.Accounts[i]
		a.SubscriptionID = s.ID
		if err := tx.QueryRow(ctx, `
INSERT INTO proxy_accounts (subscription_id, slot, identity, secret, baseline_bytes, baseline_set)
VALUES ($1,$2,$3,$4,0,false)
RETURNING id`, s.ID, a.Slot, a.Identity, a.Secret).Scan(&a.ID); err != nil {
			return err
		}
	}

	s.Status = StatusActive
	s.ConsumedBytes = 0
	return tx.Commit(ctx)
}

func (r *Repo) loadAccounts(ctx context.Context, subs []*Subscription) error {
	if len(subs) == 0 {
		return nil
	}
	byID := make(map[int64]*Subscription, len(subs))
	ids := make([]int64, 0, len(subs))
	for _, s := range subs {
		byID[s.ID] = s
		ids = append(ids, s.ID)
	}
	rows, err := r.db.Query(ctx, `
SELECT id, subscription_id, slot, identity, secret, baseline_bytes, baseline_set
FROM proxy_accounts WHERE subscription_id = ANY($1) ORDER BY subscription_id, slot`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var a ProxyAccount
		if err := rows.Scan(&a.ID, &a.SubscriptionID, &a.Slot, &a.Identity, &a.Secret, &a.BaselineBytes, &a.BaselineSet); err != nil {
			return err
		}
		if s, ok := byID[a.SubscriptionID]; ok {
			s.Accounts = append(s.Accounts, a)
		}
	}
	return rows.Err()
}

func (r *Repo) list(ctx context.Context, q string, args ...any) ([]*Subscription, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Subscription
	for rows.Next() {
		s, err := scanSub(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadAccounts(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListActive — все активные подписки с аккаунтами; вход обоих обходов.
func (r *Repo) ListActive(ctx context.Context) ([]*Subscription, error) {
	return r.list(ctx, `SELECT `+subCols+` FROM subscriptions WHERE status = 'active' ORDER BY id`)
}

func (r *Repo) ListByUser(ctx context.Context, userID int64) ([]*Subscription, error) {
	return r.list(ctx, `SELECT `+subCols+` FROM subscriptions WHERE user_id = $1 ORDER BY id DESC`, userID)
}

// GetActiveTrial — непросроченный активный триал пользователя, если есть.
func (r *Repo) GetActiveTrial(ctx context.Context, userID int64) (*Subscription, error) {
	subs, err := r.list(ctx, `
SELECT `+subCols+` FROM subscriptions
WHERE user_id = $1 AND source_plan = 'trial' AND status = 'active' AND end_at > NOW()
ORDER BY id DESC LIMIT 1`, userID)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, ErrNotFound
	}
	return subs[0], nil
}

// UpdateAccountBaseline фиксирует последнее наблюдение счётчика аккаунта.
func (r *Repo) UpdateAccountBaseline(ctx context.Context, accountID int64, baseline uint64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE proxy_accounts SET baseline_bytes = $2, baseline_set = true WHERE id = $1`,
		accountID, baseline)
	return err
}

// AddConsumed добавляет дельту к накопленному потреблению. Только прибавляет:
// consumed_bytes монотонен, коррекции вниз не бывает.
func (r *Repo) AddConsumed(ctx context.Context, subID int64, delta uint64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE subscriptions SET consumed_bytes = consumed_bytes + $2 WHERE id = $1`,
		subID, delta)
	return err
}

func (r *Repo) markStatus(ctx context.Context, id int64, status string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE subscriptions SET status = $2 WHERE id = $1 AND status = 'active'`, id, status)
	return err
}

func (r *Repo) MarkExpired(ctx context.Context, id int64) error {
	return r.markStatus(ctx, id, StatusExpired)
}

func (r *Repo) MarkSuspended(ctx context.Context, id int64) error {
	return r.markStatus(ctx, id, StatusSuspended)
}

// FlagQuotaNotified переводит флаг в true и сообщает, случилось ли это
// именно сейчас. RowsAffected — гарантия «не больше одного уведомления»
// даже при повторных обходах и нескольких процессах.
func (r *Repo) FlagQuotaNotified(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE subscriptions SET quota_notified = true WHERE id = $1 AND NOT quota_notified`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repo) FlagExpiredNotified(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE subscriptions SET expired_notified = true WHERE id = $1 AND NOT expired_notified`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ReportRow — строка админского отчёта по подпискам.
type ReportRow struct {
	Subscription
	TgID     int64
	Username string
}

func (r *Repo) ListForReport(ctx context.Context) ([]ReportRow, error) {
	rows, err := r.db.Query(ctx, `
SELECT s.id, s.user_id, s.order_id, s.source_plan, s.quota_bytes, s.consumed_bytes,
       s.device_count, s.start_at, s.end_at, s.status, s.quota_notified, s.expired_notified,
       u.tg_id, u.username
FROM subscriptions s JOIN users u ON u.id = s.user_id
ORDER BY s.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReportRow
	for rows.Next() {
		var row ReportRow
		if err := rows.Scan(
			&row.ID, &row.UserID, &row.OrderID, &row.SourcePlan, &row.QuotaBytes, &row.ConsumedBytes,
			&row.DeviceCount, &row.StartAt, &row.EndAt, &row.Status, &row.QuotaNotified, &row.ExpiredNotified,
			&row.TgID, &row.Username,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
