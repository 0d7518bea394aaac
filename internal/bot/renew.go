package bot

import (
	"context"
	"fmt"

	"github.com/Spok95/vira-vpn/internal/domain/subscriptions"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// renewalPlanCode выбирает план для продления в один тап: код самой свежей
// активной платной подписки. Триал не продлевается — для него предлагаем
// только список планов.
func renewalPlanCode(subs []*subscriptions.Subscription) string {
	for _, s := range subs {
		if s.Status == subscriptions.StatusActive && s.SourcePlan != subscriptions.SourcePlanTrial {
			return s.SourcePlan
		}
	}
	return ""
}

func renewKeyboard(planCode string) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{}
	if planCode != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔁 Продлить этот план", "buy:"+planCode),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🛒 К списку планов", "back:plans"),
	))
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// showRenew показывает текущую подписку и предлагает повторить тот же план
// (через обычный buy-флоу) либо выбрать другой из списка.
func (b *Bot) showRenew(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	u, err := b.users.GetOrCreate(ctx, msg.From.ID, msg.From.UserName, msg.From.FirstName)
	if err != nil {
		b.send(tgbotapi.NewMessage(chatID, "Ошибка: не удалось сохранить профиль"))
		return
	}

	subs, err := b.subs.ListByUser(ctx, u.ID)
	if err != nil {
		b.log.Error("list subscriptions failed", "user", u.ID, "err", err)
		b.send(tgbotapi.NewMessage(chatID, "Не удалось загрузить подписки."))
		return
	}

	var current *subscriptions.Subscription
	for _, s := range subs {
		if s.Status == subscriptions.StatusActive {
			current = s
			break
		}
	}
	if current == nil {
		b.send(tgbotapi.NewMessage(chatID,
			"Активной подписки сейчас нет.\nВыберите план в меню «"+btnBuy+"»."))
		return
	}

	code := renewalPlanCode(subs)
	if code != "" {
		// план могли снять с продажи — тогда продление в один тап не предлагаем
		if _, err := b.plans.GetActiveByCode(ctx, code); err != nil {
			code = ""
		}
	}

	text := fmt.Sprintf(
		"🔁 Продление подписки:\n\n• План: %s\n• Объём: %s из %s\n• Устройств: %d\n• До: %s\n\nВыберите вариант:",
		current.SourcePlan, fmtGB(current.ConsumedBytes), fmtGB(current.QuotaBytes),
		current.DeviceCount, current.EndAt.Format("2006-01-02 15:04"),
	)
	m := tgbotapi.NewMessage(chatID, text)
	m.ReplyMarkup = renewKeyboard(code)
	b.send(m)
}
