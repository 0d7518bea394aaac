package bot

import (
	"bytes"
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xuri/excelize/v2"
)

// handleReport выгружает админу Excel со всеми подписками и их расходом.
func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if !b.isAdmin(ctx, msg.From.ID) {
		b.send(tgbotapi.NewMessage(chatID, "⛔ Доступ запрещён."))
		return
	}

	rows, err := b.subs.ListForReport(ctx)
	if err != nil {
		b.log.Error("report query failed", "err", err)
		b.send(tgbotapi.NewMessage(chatID, "Не удалось собрать отчёт."))
		return
	}
	if len(rows) == 0 {
		b.send(tgbotapi.NewMessage(chatID, "Подписок пока нет."))
		return
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	headers := []string{"ID", "tg_id", "username", "план", "статус",
		"лимит, ГБ", "израсходовано, ГБ", "устройств", "начало", "конец"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, r := range rows {
		values := []any{
			r.ID, r.TgID, r.Username, r.SourcePlan, r.Status,
			float64(r.QuotaBytes) / float64(gib),
			float64(r.ConsumedBytes) / float64(gib),
			r.DeviceCount,
			r.StartAt.Format("2006-01-02 15:04"),
			r.EndAt.Format("2006-01-02 15:04"),
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		b.log.Error("report write failed", "err", err)
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("subscriptions_%s.xlsx", time.Now().Format("20060102")),
		Bytes: buf.Bytes(),
	})
	doc.Caption = "Отчёт по подпискам"
	b.send(doc)
}
