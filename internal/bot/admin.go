package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Только root (admin_chat_id из конфига) управляет ростером админов.

func (b *Bot) handleAddAdmin(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if msg.From.ID != b.rootAdmin {
		b.send(tgbotapi.NewMessage(chatID, "⛔ Только владелец бота добавляет админов."))
		return
	}
	uid, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
	if err != nil {
		b.send(tgbotapi.NewMessage(chatID, "Формат: /add_admin <user_id>"))
		return
	}
	if uid == b.rootAdmin {
		b.send(tgbotapi.NewMessage(chatID, "Этот пользователь и так root."))
		return
	}
	added, err := b.admins.Add(ctx, uid, "", msg.From.ID)
	if err != nil {
		b.log.Error("add admin failed", "err", err)
		return
	}
	if added {
		b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("✅ Админ %d добавлен.", uid)))
	} else {
		b.send(tgbotapi.NewMessage(chatID, "Этот пользователь уже админ."))
	}
}

func (b *Bot) handleRemoveAdmin(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if msg.From.ID != b.rootAdmin {
		b.send(tgbotapi.NewMessage(chatID, "⛔ Только владелец бота удаляет админов."))
		return
	}
	uid, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
	if err != nil {
		b.send(tgbotapi.NewMessage(chatID, "Формат: /remove_admin <user_id>"))
		return
	}
	removed, err := b.admins.Remove(ctx, uid)
	if err != nil {
		b.log.Error("remove admin failed", "err", err)
		return
	}
	if removed {
		b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("🗑 Админ %d удалён.", uid)))
	} else {
		b.send(tgbotapi.NewMessage(chatID, "Такого админа нет."))
	}
}

func (b *Bot) handleListAdmins(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if !b.isAdmin(ctx, msg.From.ID) {
		b.send(tgbotapi.NewMessage(chatID, "⛔ Доступ запрещён."))
		return
	}
	rows, err := b.admins.List(ctx)
	if err != nil {
		b.log.Error("list admins failed", "err", err)
		return
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("👑 Root — %d\n", b.rootAdmin))
	for _, a := range rows {
		sb.WriteString(fmt.Sprintf("🛡 Admin — %d\n", a.TgID))
	}
	b.send(tgbotapi.NewMessage(chatID, sb.String()))
}
