package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Spok95/vira-vpn/internal/domain/orders"
	"github.com/Spok95/vira-vpn/internal/domain/plans"
	"github.com/Spok95/vira-vpn/internal/domain/subscriptions"
)

var (
	ErrOrderNotPaid    = errors.New("provision: order is not paid")
	ErrPlanUnavailable = errors.New("provision: plan not found or inactive")
)

type OrderStore interface {
	GetByID(ctx context.Context, id int64) (*orders.Order, error)
}

type PlanStore interface {
	GetActiveByCode(ctx context.Context, code string) (*plans.Plan, error)
}

type SubscriptionStore interface {
	Create(ctx context.Context, s *subscriptions.Subscription) error
	GetActiveTrial(ctx context.Context, userID int64) (*subscriptions.Subscription, error)
}

// AccountManager выдаёт доступ в движке. Идемпотентен по identity.
type AccountManager interface {
	AddAccount(ctx context.Context, identity string) (secret, link string, err error)
}

// TrialConf — параметры тестовой подписки.
type TrialConf struct {
	QuotaMB int
	Hours   int
	Devices int
}

// Service создаёт подписки: по оплаченному заказу и тестовые.
type Service struct {
	orders   OrderStore
	plans    PlanStore
	subs     SubscriptionStore
	accounts AccountManager
	trial    TrialConf
	log      *slog.Logger
	now      func() time.Time
}

func NewService(orders OrderStore, plans PlanStore, subs SubscriptionStore,
	accounts AccountManager, trial TrialConf, log *slog.Logger) *Service {
	return &Service{
		orders:   orders,
		plans:    plans,
		subs:     subs,
		accounts: accounts,
		trial:    trial,
		log:      log,
		now:      time.Now,
	}
}

// accountIdentity детерминирована по (пользователь, заказ, слот): повторный
// прогон после сбоя переиспользует уже созданные учётки, а не плодит новые.
func accountIdentity(userID, orderID int64, slot int) string {
	return fmt.Sprintf("u%d-o%d-%d@bot", userID, orderID, slot)
}

func trialIdentity(tgID int64) string {
	return fmt.Sprintf("trial-%d@bot", tgID)
}

// Provision создаёт подписку по оплаченному заказу и возвращает её вместе со
// ссылками подключения. Если какой-то AddAccount упал на середине, уже
// созданные учётки остаются (ретрай их переиспользует), но подписка в леджер
// не пишется — наружу уходит ошибка.
func (s *Service) Provision(ctx context.Context, orderID int64) (*subscriptions.Subscription, []string, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if order.Status != orders.StatusPaid {
		return nil, nil, fmt.Errorf("%w: order %d is %s", ErrOrderNotPaid, order.ID, order.Status)
	}
	plan, err := s.plans.GetActiveByCode(ctx, order.PlanCode)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrPlanUnavailable, order.PlanCode)
	}

	now := s.now()
	sub := &subscriptions.Subscription{
		UserID:      order.UserID,
		OrderID:     &order.ID,
		SourcePlan:  plan.Code,
		QuotaBytes:  uint64(plan.GB) << 30,
		DeviceCount: plan.Devices,
		StartAt:     now,
		EndAt:       now.AddDate(0, 0, plan.Days),
		Status:      subscriptions.StatusActive,
	}

	links := make([]string, 0, plan.Devices)
	for slot := 1; slot <= plan.Devices; slot++ {
		identity := accountIdentity(order.UserID, order.ID, slot)
		secret, link, err := s.accounts.AddAccount(ctx, identity)
		if err != nil {
			return nil, nil, fmt.Errorf("provision order %d slot %d: %w", order.ID, slot, err)
		}
		sub.Accounts = append(sub.Accounts, subscriptions.ProxyAccount{
			Slot:     slot,
			Identity: identity,
			Secret:   secret,
		})
		links = append(links, link)
	}

	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, nil, err
	}
	s.log.Info("subscription provisioned",
		"subscription", sub.ID, "order", order.ID, "plan", plan.Code, "devices", plan.Devices)
	return sub, links, nil
}

// Trial выдаёт тестовую подписку. На пользователя — не больше одной живой:
// повторный запрос возвращает существующую с теми же ссылками.
func (s *Service) Trial(ctx context.Context, userID, tgID int64) (*subscriptions.Subscription, []string, error) {
	if existing, err := s.subs.GetActiveTrial(ctx, userID); err == nil {
		links := make([]string, 0, len(existing.Accounts))
		for _, a := range existing.Accounts {
			// AddAccount идемпотентен: вернёт тот же secret и ссылку
			_, link, err := s.accounts.AddAccount(ctx, a.Identity)
			if err != nil {
				return nil, nil, err
			}
			links = append(links, link)
		}
		return existing, links, nil
	} else if !errors.Is(err, subscriptions.ErrNotFound) {
		return nil, nil, err
	}

	now := s.now()
	sub := &subscriptions.Subscription{
		UserID:      userID,
		SourcePlan:  subscriptions.SourcePlanTrial,
		QuotaBytes:  uint64(s.trial.QuotaMB) << 20,
		DeviceCount: s.trial.Devices,
		StartAt:     now,
		EndAt:       now.Add(time.Duration(s.trial.Hours) * time.Hour),
		Status:      subscriptions.StatusActive,
	}

	links := make([]string, 0, s.trial.Devices)
	for slot := 1; slot <= s.trial.Devices; slot++ {
		identity := trialIdentity(tgID)
		if s.trial.Devices > 1 {
			identity = fmt.Sprintf("trial-%d-%d@bot", tgID, slot)
		}
		secret, link, err := s.accounts.AddAccount(ctx, identity)
		if err != nil {
			return nil, nil, err
		}
		sub.Accounts = append(sub.Accounts, subscriptions.ProxyAccount{
			Slot:     slot,
			Identity: identity,
			Secret:   secret,
		})
		links = append(links, link)
	}

	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, nil, err
	}
	s.log.Info("trial issued", "subscription", sub.ID, "user", userID)
	return sub, links, nil
}
