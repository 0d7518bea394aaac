package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Spok95/vira-vpn/internal/dialog"
	"github.com/Spok95/vira-vpn/internal/domain/admins"
	"github.com/Spok95/vira-vpn/internal/domain/orders"
	"github.com/Spok95/vira-vpn/internal/domain/plans"
	"github.com/Spok95/vira-vpn/internal/domain/subscriptions"
	"github.com/Spok95/vira-vpn/internal/domain/users"
	"github.com/Spok95/vira-vpn/internal/provision"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// CardInfo — реквизиты для оплаты переводом на карту.
type CardInfo struct {
	Number      string
	Name        string
	DeadlineMin int
}

type Bot struct {
	api       *tgbotapi.BotAPI
	log       *slog.Logger
	users     *users.Repo
	plans     *plans.Repo
	orders    *orders.Repo
	subs      *subscriptions.Repo
	admins    *admins.Repo
	states    *dialog.Repo
	prov      *provision.Service
	rootAdmin int64
	card      CardInfo
	support   string
}

func New(api *tgbotapi.BotAPI, log *slog.Logger,
	usersRepo *users.Repo, plansRepo *plans.Repo, ordersRepo *orders.Repo,
	subsRepo *subscriptions.Repo, adminsRepo *admins.Repo, statesRepo *dialog.Repo,
	prov *provision.Service, rootAdmin int64, card CardInfo, support string) *Bot {

	return &Bot{
		api: api, log: log,
		users: usersRepo, plans: plansRepo, orders: ordersRepo,
		subs: subsRepo, admins: adminsRepo, states: statesRepo,
		prov: prov, rootAdmin: rootAdmin, card: card, support: support,
	}
}

func (b *Bot) Run(ctx context.Context, timeoutSec int) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSec
	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd := <-updates:
			if upd.Message != nil {
				b.onMessage(ctx, upd)
			} else if upd.CallbackQuery != nil {
				b.onCallback(ctx, upd)
			}
		}
	}
}

func (b *Bot) send(msg tgbotapi.Chattable) {
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send failed", "err", err)
	}
}

// isAdmin: root из конфига или запись в таблице admins.
func (b *Bot) isAdmin(ctx context.Context, tgID int64) bool {
	if tgID == b.rootAdmin {
		return true
	}
	ok, err := b.admins.IsAdmin(ctx, tgID)
	if err != nil {
		b.log.Error("admin lookup failed", "err", err)
		return false
	}
	return ok
}

const gib = 1 << 30

func fmtGB(bytes uint64) string {
	return fmt.Sprintf("%.2f ГБ", float64(bytes)/float64(gib))
}

func fmtPrice(toman int) string {
	return fmt.Sprintf("%d т", toman)
}
