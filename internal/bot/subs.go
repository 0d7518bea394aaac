package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/Spok95/vira-vpn/internal/domain/subscriptions"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func statusBadge(status string) string {
	switch status {
	case subscriptions.StatusActive:
		return "🟢 активна"
	case subscriptions.StatusSuspended:
		return "⛔ приостановлена"
	case subscriptions.StatusExpired:
		return "⌛ истекла"
	}
	return status
}

func (b *Bot) handleTrial(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	u, err := b.users.GetOrCreate(ctx, msg.From.ID, msg.From.UserName, msg.From.FirstName)
	if err != nil {
		b.send(tgbotapi.NewMessage(chatID, "Ошибка: не удалось сохранить профиль"))
		return
	}

	sub, links, err := b.prov.Trial(ctx, u.ID, u.TgID)
	if err != nil {
		b.log.Error("trial failed", "user", u.ID, "err", err)
		b.send(tgbotapi.NewMessage(chatID, "Не удалось выдать тестовый доступ, попробуйте позже."))
		return
	}
	b.deliverSubscription(ctx, sub, links)
}

func (b *Bot) showMySubs(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	u, err := b.users.GetByTelegramID(ctx, msg.From.ID)
	if err != nil {
		b.send(tgbotapi.NewMessage(chatID, "Подписок пока нет. Начните с тестового доступа или покупки."))
		return
	}
	subs, err := b.subs.ListByUser(ctx, u.ID)
	if err != nil {
		b.log.Error("list subscriptions failed", "user", u.ID, "err", err)
		b.send(tgbotapi.NewMessage(chatID, "Не удалось загрузить подписки."))
		return
	}
	if len(subs) == 0 {
		b.send(tgbotapi.NewMessage(chatID, "Подписок пока нет. Начните с тестового доступа или покупки."))
		return
	}

	var sb strings.Builder
	sb.WriteString("📦 Ваши подписки:\n")
	for _, s := range subs {
		sb.WriteString(fmt.Sprintf(
			"\n#%d · %s · %s\nИзрасходовано: %s из %s\nДо: %s · Устройств: %d\n",
			s.ID, s.SourcePlan, statusBadge(s.Status),
			fmtGB(s.ConsumedBytes), fmtGB(s.QuotaBytes),
			s.EndAt.Format("2006-01-02 15:04"), s.DeviceCount,
		))
	}
	b.send(tgbotapi.NewMessage(chatID, sb.String()))
}
