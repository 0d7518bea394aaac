package bot

import (
	"context"
	"fmt"

	"github.com/Spok95/vira-vpn/internal/domain/subscriptions"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier реализует enforce.Notifier. Доставка fire-and-forget: пользователь
// мог заблокировать бота, это не причина ронять обход.

func (b *Bot) NotifyExpired(ctx context.Context, sub *subscriptions.Subscription) {
	u, err := b.users.GetByID(ctx, sub.UserID)
	if err != nil {
		b.log.Error("notify expired: owner lookup failed", "subscription", sub.ID, "err", err)
		return
	}
	b.send(tgbotapi.NewMessage(u.TgID, fmt.Sprintf(
		"⌛ Срок подписки #%d истёк.\n\nДля продолжения работы оформите новую подписку в меню «%s».",
		sub.ID, btnBuy)))
}

func (b *Bot) NotifyQuotaExhausted(ctx context.Context, sub *subscriptions.Subscription) {
	u, err := b.users.GetByID(ctx, sub.UserID)
	if err != nil {
		b.log.Error("notify quota: owner lookup failed", "subscription", sub.ID, "err", err)
		return
	}
	b.send(tgbotapi.NewMessage(u.TgID, fmt.Sprintf(
		"⛔ Объём подписки #%d исчерпан.\n\n• Лимит: %s\n• Израсходовано: %s\n\n"+
			"Для продолжения купите новый план в меню «%s».",
		sub.ID, fmtGB(sub.QuotaBytes), fmtGB(sub.ConsumedBytes), btnBuy)))
}
