package bot

import (
	"fmt"

	"github.com/Spok95/vira-vpn/internal/domain/plans"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	btnBuy     = "🛒 Купить подписку"
	btnTrial   = "🧪 Тестовый доступ"
	btnRenew   = "🔁 Продлить подписку"
	btnMySubs  = "📦 Мои подписки"
	btnSupport = "🛟 Поддержка"
)

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnBuy),
			tgbotapi.NewKeyboardButton(btnTrial),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnRenew),
			tgbotapi.NewKeyboardButton(btnMySubs),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSupport),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func plansKeyboard(items []plans.Plan) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{}
	for _, p := range items {
		label := fmt.Sprintf("💎 %dГБ · 🗓 %dд · 🖥 %d · 💰 %s", p.GB, p.Days, p.Devices, fmtPrice(p.PriceToman))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "plan:"+p.Code),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func planActionsKeyboard(code string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🧾 Купить этот план", "buy:"+code),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ К списку планов", "back:plans"),
		),
	)
}

func approveKeyboard(orderID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Подтвердить", fmt.Sprintf("adm:pay:ok:%d", orderID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отклонить", fmt.Sprintf("adm:pay:no:%d", orderID)),
		),
	)
}
