package bot

import (
	"context"
	"strconv"
	"strings"

	"github.com/Spok95/vira-vpn/internal/dialog"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) onMessage(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	switch msg.Text {
	case btnBuy:
		b.showPlans(ctx, chatID, nil)
		return
	case btnTrial:
		b.handleTrial(ctx, msg)
		return
	case btnRenew:
		b.showRenew(ctx, msg)
		return
	case btnMySubs:
		b.showMySubs(ctx, msg)
		return
	case btnSupport:
		b.send(tgbotapi.NewMessage(chatID,
			"Поддержка: @"+b.support+"\nОпишите проблему, ответим как можно быстрее."))
		return
	}

	// не кнопка меню — смотрим состояние диалога
	st, err := b.states.Get(ctx, chatID)
	if err != nil {
		b.log.Error("dialog state lookup failed", "err", err)
		return
	}
	if st.State == dialog.StateAwaitReceipt {
		b.handleReceipt(ctx, msg, st)
		return
	}

	b.send(tgbotapi.NewMessage(chatID, "Выберите действие в меню или наберите /help"))
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		u, err := b.users.GetOrCreate(ctx, msg.From.ID, msg.From.UserName, msg.From.FirstName)
		if err != nil {
			b.send(tgbotapi.NewMessage(chatID, "Ошибка: не удалось сохранить профиль"))
			return
		}
		_ = b.states.Reset(ctx, chatID)
		m := tgbotapi.NewMessage(chatID,
			"Привет, "+u.FirstName+"! Здесь можно купить VPN-подписку или взять тестовый доступ.")
		m.ReplyMarkup = mainMenuKeyboard()
		b.send(m)

	case "help":
		b.send(tgbotapi.NewMessage(chatID,
			"Команды:\n/start — главное меню\n/help — помощь\nОстальное — кнопками снизу."))

	case "add_admin":
		b.handleAddAdmin(ctx, msg)
	case "remove_admin":
		b.handleRemoveAdmin(ctx, msg)
	case "admins":
		b.handleListAdmins(ctx, msg)
	case "report":
		b.handleReport(ctx, msg)

	default:
		b.send(tgbotapi.NewMessage(chatID, "Не знаю такую команду. Наберите /help"))
	}
}

func (b *Bot) onCallback(ctx context.Context, upd tgbotapi.Update) {
	cq := upd.CallbackQuery
	chatID := cq.Message.Chat.ID
	msgID := cq.Message.MessageID
	data := cq.Data

	defer func() {
		if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
			b.log.Error("callback ack failed", "err", err)
		}
	}()

	switch {
	case data == "back:plans":
		b.showPlans(ctx, chatID, &msgID)

	case strings.HasPrefix(data, "plan:"):
		b.showPlanDetails(ctx, chatID, msgID, strings.TrimPrefix(data, "plan:"))

	case strings.HasPrefix(data, "buy:"):
		b.startOrder(ctx, cq, strings.TrimPrefix(data, "buy:"))

	case strings.HasPrefix(data, "adm:pay:ok:"):
		if id, err := strconv.ParseInt(strings.TrimPrefix(data, "adm:pay:ok:"), 10, 64); err == nil {
			b.approveOrder(ctx, cq, id)
		}

	case strings.HasPrefix(data, "adm:pay:no:"):
		if id, err := strconv.ParseInt(strings.TrimPrefix(data, "adm:pay:no:"), 10, 64); err == nil {
			b.rejectOrder(ctx, cq, id)
		}
	}
}
