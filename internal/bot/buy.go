package bot

import (
	"context"
	"fmt"

	"github.com/Spok95/vira-vpn/internal/dialog"
	"github.com/Spok95/vira-vpn/internal/domain/subscriptions"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	qrcode "github.com/skip2/go-qrcode"
)

func (b *Bot) showPlans(ctx context.Context, chatID int64, editMsgID *int) {
	items, err := b.plans.ListActive(ctx)
	if err != nil || len(items) == 0 {
		b.send(tgbotapi.NewMessage(chatID, "Планы временно недоступны, попробуйте позже."))
		return
	}
	kb := plansKeyboard(items)
	text := "🎁 Выберите один из планов:"
	if editMsgID != nil {
		b.send(tgbotapi.NewEditMessageTextAndMarkup(chatID, *editMsgID, text, kb))
	} else {
		m := tgbotapi.NewMessage(chatID, text)
		m.ReplyMarkup = kb
		b.send(m)
	}
}

func (b *Bot) showPlanDetails(ctx context.Context, chatID int64, msgID int, code string) {
	p, err := b.plans.GetActiveByCode(ctx, code)
	if err != nil {
		b.send(tgbotapi.NewEditMessageText(chatID, msgID, "План недоступен."))
		return
	}
	text := fmt.Sprintf(
		"%s\n\n• Объём: %d ГБ\n• Срок: %d дней\n• Устройств: %d\n• Цена: %s",
		p.Title, p.GB, p.Days, p.Devices, fmtPrice(p.PriceToman),
	)
	b.send(tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, text, planActionsKeyboard(code)))
}

// startOrder создаёт заказ и выдаёт реквизиты для перевода на карту.
// Дальше ждём от пользователя подтверждение оплаты (скрин или текст).
func (b *Bot) startOrder(ctx context.Context, cq *tgbotapi.CallbackQuery, code string) {
	chatID := cq.Message.Chat.ID

	u, err := b.users.GetOrCreate(ctx, cq.From.ID, cq.From.UserName, cq.From.FirstName)
	if err != nil {
		b.send(tgbotapi.NewMessage(chatID, "Ошибка: не удалось сохранить профиль"))
		return
	}
	p, err := b.plans.GetActiveByCode(ctx, code)
	if err != nil {
		b.send(tgbotapi.NewMessage(chatID, "План недоступен."))
		return
	}
	order, err := b.orders.Create(ctx, u.ID, p.Code, p.PriceToman)
	if err != nil {
		b.log.Error("order create failed", "err", err)
		b.send(tgbotapi.NewMessage(chatID, "Не удалось создать заказ, попробуйте позже."))
		return
	}

	_ = b.states.Set(ctx, chatID, dialog.StateAwaitReceipt, dialog.Payload{"order_id": order.ID})

	text := fmt.Sprintf(
		"🧾 Заказ #%d создан.\n\n• План: %s\n• Сумма: %s\n\n"+
			"Переведите сумму на карту:\n<code>%s</code>\n%s\n\n"+
			"После перевода пришлите сюда скрин или текст подтверждения. "+
			"Заказ действителен %d минут.",
		order.ID, p.Title, fmtPrice(p.PriceToman), b.card.Number, b.card.Name, b.card.DeadlineMin,
	)
	m := tgbotapi.NewEditMessageText(chatID, cq.Message.MessageID, text)
	m.ParseMode = tgbotapi.ModeHTML
	b.send(m)
}

// handleReceipt пересылает подтверждение оплаты админу с кнопками
// подтвердить/отклонить.
func (b *Bot) handleReceipt(ctx context.Context, msg *tgbotapi.Message, st *dialog.Item) {
	chatID := msg.Chat.ID
	orderID, ok := dialog.GetInt64(st.Payload, "order_id")
	if !ok {
		_ = b.states.Reset(ctx, chatID)
		b.send(tgbotapi.NewMessage(chatID, "Заказ не найден, начните покупку заново."))
		return
	}
	order, err := b.orders.GetByID(ctx, orderID)
	if err != nil {
		_ = b.states.Reset(ctx, chatID)
		b.send(tgbotapi.NewMessage(chatID, "Заказ не найден, начните покупку заново."))
		return
	}

	fwd := tgbotapi.NewForward(b.rootAdmin, chatID, msg.MessageID)
	b.send(fwd)
	note := tgbotapi.NewMessage(b.rootAdmin, fmt.Sprintf(
		"Оплата по заказу #%d\nПлан: %s\nСумма: %s\nОт: @%s (%d)",
		order.ID, order.PlanCode, fmtPrice(order.AmountToman), msg.From.UserName, msg.From.ID,
	))
	note.ReplyMarkup = approveKeyboard(order.ID)
	b.send(note)

	_ = b.states.Reset(ctx, chatID)
	b.send(tgbotapi.NewMessage(chatID,
		"Спасибо! Платёж на проверке, подписка придёт сюда после подтверждения."))
}

// approveOrder — админ подтвердил оплату: помечаем заказ и провижиним подписку.
func (b *Bot) approveOrder(ctx context.Context, cq *tgbotapi.CallbackQuery, orderID int64) {
	chatID := cq.Message.Chat.ID
	if !b.isAdmin(ctx, cq.From.ID) {
		b.send(tgbotapi.NewMessage(chatID, "Доступ запрещён."))
		return
	}

	flipped, err := b.orders.MarkPaid(ctx, orderID, "c2c", fmt.Sprintf("approved-by-%d", cq.From.ID))
	if err != nil {
		b.log.Error("mark paid failed", "order", orderID, "err", err)
		b.send(tgbotapi.NewMessage(chatID, "Ошибка при подтверждении заказа."))
		return
	}
	if !flipped {
		b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Заказ #%d уже обработан.", orderID)))
		return
	}

	sub, links, err := b.prov.Provision(ctx, orderID)
	if err != nil {
		// заказ остаётся paid: повторный provisioning переиспользует учётки
		b.log.Error("provisioning failed", "order", orderID, "err", err)
		b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"Заказ #%d оплачен, но выдача не прошла: %v. Повторите подтверждение позже.", orderID, err)))
		return
	}

	b.editTextAndClear(chatID, cq.Message.MessageID, fmt.Sprintf("✅ Заказ #%d подтверждён, подписка выдана.", orderID))
	b.deliverSubscription(ctx, sub, links)
}

func (b *Bot) rejectOrder(ctx context.Context, cq *tgbotapi.CallbackQuery, orderID int64) {
	chatID := cq.Message.Chat.ID
	if !b.isAdmin(ctx, cq.From.ID) {
		b.send(tgbotapi.NewMessage(chatID, "Доступ запрещён."))
		return
	}
	flipped, err := b.orders.MarkRejected(ctx, orderID)
	if err != nil || !flipped {
		b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Заказ #%d уже обработан.", orderID)))
		return
	}
	b.editTextAndClear(chatID, cq.Message.MessageID, fmt.Sprintf("❌ Заказ #%d отклонён.", orderID))

	if order, err := b.orders.GetByID(ctx, orderID); err == nil {
		if u, err := b.users.GetByID(ctx, order.UserID); err == nil {
			b.send(tgbotapi.NewMessage(u.TgID, fmt.Sprintf(
				"Оплата по заказу #%d не подтверждена. Если это ошибка — напишите в поддержку: @%s",
				orderID, b.support)))
		}
	}
}

// deliverSubscription отправляет владельцу ссылки подключения и QR.
func (b *Bot) deliverSubscription(ctx context.Context, sub *subscriptions.Subscription, links []string) {
	u, err := b.users.GetByID(ctx, sub.UserID)
	if err != nil {
		b.log.Error("owner lookup failed", "subscription", sub.ID, "err", err)
		return
	}

	text := fmt.Sprintf(
		"🎉 Подписка активна.\n\n• План: %s\n• Объём: %s\n• До: %s\n• Устройств: %d\n\n"+
			"Ссылки подключения (импортируйте в v2rayN/v2rayNG/Nekoray):",
		sub.SourcePlan, fmtGB(sub.QuotaBytes), sub.EndAt.Format("2006-01-02 15:04 UTC"), sub.DeviceCount,
	)
	b.send(tgbotapi.NewMessage(u.TgID, text))

	for i, link := range links {
		m := tgbotapi.NewMessage(u.TgID, "<code>"+link+"</code>")
		m.ParseMode = tgbotapi.ModeHTML
		m.DisableWebPagePreview = true
		b.send(m)

		png, err := qrcode.Encode(link, qrcode.Medium, 512)
		if err != nil {
			b.log.Error("qr encode failed", "err", err)
			continue
		}
		photo := tgbotapi.NewPhoto(u.TgID, tgbotapi.FileBytes{
			Name:  fmt.Sprintf("sub_%d_%d.png", sub.ID, i+1),
			Bytes: png,
		})
		b.send(photo)
	}
}

func (b *Bot) editTextAndClear(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageTextAndMarkup(
		chatID, messageID, text,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}},
	)
	b.send(edit)
}
