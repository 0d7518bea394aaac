package enforce

import (
	"context"
	"log/slog"
	"time"

	"github.com/Spok95/vira-vpn/internal/domain/subscriptions"
	"github.com/Spok95/vira-vpn/internal/infra/metrics"
)

// Accounts — удаление доступов в движке. Идемпотентно, поэтому срыв
// удаления безопасно доиграть на следующей итерации.
type Accounts interface {
	RemoveAccount(ctx context.Context, identity string) (bool, error)
}

// Meter пересчитывает расход подписки и возвращает consumed_bytes.
type Meter interface {
	UpdateSubscriptionUsage(ctx context.Context, sub *subscriptions.Subscription) (uint64, error)
}

// Ledger — операции леджера, нужные обходам.
type Ledger interface {
	ListActive(ctx context.Context) ([]*subscriptions.Subscription, error)
	MarkExpired(ctx context.Context, id int64) error
	MarkSuspended(ctx context.Context, id int64) error
	FlagExpiredNotified(ctx context.Context, id int64) (bool, error)
	FlagQuotaNotified(ctx context.Context, id int64) (bool, error)
}

// Notifier шлёт пользователю уведомление. Fire-and-forget: ошибки доставки
// глотает реализация.
type Notifier interface {
	NotifyExpired(ctx context.Context, sub *subscriptions.Subscription)
	NotifyQuotaExhausted(ctx context.Context, sub *subscriptions.Subscription)
}

// Scheduler — два независимых периодических обхода активных подписок:
// по сроку и по квоте. Ошибка обработки одной подписки логируется и не
// останавливает обход остальных.
type Scheduler struct {
	ledger   Ledger
	accounts Accounts
	meter    Meter
	notify   Notifier
	log      *slog.Logger
	now      func() time.Time
}

func NewScheduler(ledger Ledger, accounts Accounts, meter Meter, notify Notifier, log *slog.Logger) *Scheduler {
	return &Scheduler{
		ledger:   ledger,
		accounts: accounts,
		meter:    meter,
		notify:   notify,
		log:      log,
		now:      time.Now,
	}
}

// RunExpiry крутит обход по сроку до отмены контекста.
func (s *Scheduler) RunExpiry(ctx context.Context, interval time.Duration) {
	s.runLoop(ctx, interval, "expiry", s.ExpireOnce)
}

// RunQuota крутит обход по квоте до отмены контекста.
func (s *Scheduler) RunQuota(ctx context.Context, interval time.Duration) {
	s.runLoop(ctx, interval, "quota", s.QuotaOnce)
}

func (s *Scheduler) runLoop(ctx context.Context, interval time.Duration, name string, once func(context.Context)) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweep stopped", "sweep", name)
			return
		case <-t.C:
			metrics.SweepRuns.WithLabelValues(name).Inc()
			once(ctx)
		}
	}
}

// removeAll снимает все доступы подписки. Срывы удаления не блокируют
// смену статуса: доступ снимет следующая итерация.
func (s *Scheduler) removeAll(ctx context.Context, sub *subscriptions.Subscription) {
	for _, a := range sub.Accounts {
		if _, err := s.accounts.RemoveAccount(ctx, a.Identity); err != nil {
			s.log.Error("account removal failed, will retry next cycle",
				"subscription", sub.ID, "identity", a.Identity, "err", err)
		}
	}
}

// ExpireOnce — одна итерация обхода по сроку.
func (s *Scheduler) ExpireOnce(ctx context.Context) {
	subs, err := s.ledger.ListActive(ctx)
	if err != nil {
		s.log.Error("expiry sweep: list active failed", "err", err)
		metrics.SweepFailures.WithLabelValues("expiry").Inc()
		return
	}
	now := s.now()
	for _, sub := range subs {
		if ctx.Err() != nil {
			return
		}
		if now.Before(sub.EndAt) {
			continue
		}
		if err := s.expireOne(ctx, sub); err != nil {
			s.log.Error("expiry sweep: subscription failed", "subscription", sub.ID, "err", err)
			metrics.SweepFailures.WithLabelValues("expiry").Inc()
		}
	}
}

func (s *Scheduler) expireOne(ctx context.Context, sub *subscriptions.Subscription) error {
	s.removeAll(ctx, sub)
	if err := s.ledger.MarkExpired(ctx, sub.ID); err != nil {
		return err
	}
	metrics.Suspended.WithLabelValues("expired").Inc()
	first, err := s.ledger.FlagExpiredNotified(ctx, sub.ID)
	if err != nil {
		return err
	}
	if first {
		s.notify.NotifyExpired(ctx, sub)
	}
	return nil
}

// QuotaOnce — одна итерация обхода по квоте. Просроченные подписки
// пропускает: ими занимается обход по сроку.
func (s *Scheduler) QuotaOnce(ctx context.Context) {
	subs, err := s.ledger.ListActive(ctx)
	if err != nil {
		s.log.Error("quota sweep: list active failed", "err", err)
		metrics.SweepFailures.WithLabelValues("quota").Inc()
		return
	}
	now := s.now()
	for _, sub := range subs {
		if ctx.Err() != nil {
			return
		}
		if !now.Before(sub.EndAt) || sub.QuotaBytes == 0 || len(sub.Accounts) == 0 {
			continue
		}
		if err := s.quotaOne(ctx, sub); err != nil {
			s.log.Error("quota sweep: subscription failed", "subscription", sub.ID, "err", err)
			metrics.SweepFailures.WithLabelValues("quota").Inc()
		}
	}
}

func (s *Scheduler) quotaOne(ctx context.Context, sub *subscriptions.Subscription) error {
	consumed, err := s.meter.UpdateSubscriptionUsage(ctx, sub)
	if err != nil {
		return err
	}
	if consumed < sub.QuotaBytes {
		return nil
	}

	s.removeAll(ctx, sub)
	if err := s.ledger.MarkSuspended(ctx, sub.ID); err != nil {
		return err
	}
	metrics.Suspended.WithLabelValues("quota").Inc()
	first, err := s.ledger.FlagQuotaNotified(ctx, sub.ID)
	if err != nil {
		return err
	}
	if first {
		s.notify.NotifyQuotaExhausted(ctx, sub)
	}
	return nil
}
