package usage

import (
	"context"
	"log/slog"

	"github.com/Spok95/vira-vpn/internal/domain/subscriptions"
	"golang.org/x/sync/errgroup"
)

// Sampler отдаёт текущее накопительное значение счётчика трафика identity.
// Сбой запроса — это ноль, а не ошибка: промах не должен портить итог.
type Sampler interface {
	AccountBytes(ctx context.Context, identity string) uint64
}

// Ledger — та часть леджера, которую метер мутирует.
type Ledger interface {
	UpdateAccountBaseline(ctx context.Context, accountID int64, baseline uint64) error
	AddConsumed(ctx context.Context, subID int64, delta uint64) error
}

// Meter превращает накопительные счётчики движка в монотонный расход
// подписки, переживающий рестарты Xray и пропуски опроса.
type Meter struct {
	sampler Sampler
	ledger  Ledger
	log     *slog.Logger
}

func NewMeter(sampler Sampler, ledger Ledger, log *slog.Logger) *Meter {
	return &Meter{sampler: sampler, ledger: ledger, log: log}
}

// UpdateSubscriptionUsage опрашивает все аккаунты подписки (параллельно),
// считает дельты к базовым значениям и прибавляет сумму к consumed_bytes.
// Правила дельты:
//   - первое наблюдение: baseline = cur, дельта 0 (исторический трафик
//     до начала учёта не считаем);
//   - cur >= baseline: дельта cur-baseline;
//   - cur < baseline: счётчик движка сбросился (рестарт) — baseline = cur,
//     дельта 0. Никогда не вычитаем.
//
// Возвращает consumed_bytes после обновления.
func (m *Meter) UpdateSubscriptionUsage(ctx context.Context, sub *subscriptions.Subscription) (uint64, error) {
	cur := make([]uint64, len(sub.Accounts))
	g, gctx := errgroup.WithContext(ctx)
	for i := range sub.Accounts {
		i := i
		g.Go(func() error {
			cur[i] = m.sampler.AccountBytes(gctx, sub.Accounts[i].Identity)
			return nil
		})
	}
	_ = g.Wait()

	var total uint64
	for i := range sub.Accounts {
		a := &sub.Accounts[i]
		var delta uint64
		switch {
		case !a.BaselineSet:
			// стартовая точка
		case cur[i] >= a.BaselineBytes:
			delta = cur[i] - a.BaselineBytes
		default:
			m.log.Info("traffic counter went backwards, assuming engine restart",
				"identity", a.Identity, "baseline", a.BaselineBytes, "current", cur[i])
		}
		if err := m.ledger.UpdateAccountBaseline(ctx, a.ID, cur[i]); err != nil {
			return sub.ConsumedBytes, err
		}
		a.BaselineBytes = cur[i]
		a.BaselineSet = true
		total += delta
	}

	if total > 0 {
		if err := m.ledger.AddConsumed(ctx, sub.ID, total); err != nil {
			return sub.ConsumedBytes, err
		}
		sub.ConsumedBytes += total
	}
	return sub.ConsumedBytes, nil
}
