package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"qwesade/internal/models"
)

const (
	adminPrefix  = "adm:"
	adminApprove = "ok"
	adminDecline = "no"
)

func adminKeyboard(bk *models.Booking) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Принять", adminPrefix+adminApprove+":"+bk.RequestID),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Отклонить", adminPrefix+adminDecline+":"+bk.RequestID),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("👤 Связаться", bk.Requester().ContactURL()),
		),
	)
}

// contactKeyboard остается у уведомления после решения
func contactKeyboard(bk *models.Booking) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("👤 Связаться", bk.Requester().ContactURL()),
		),
	)
}

func formatAdminNotification(bk *models.Booking) string {
	return fmt.Sprintf(
		"Новая заявка: %s\nОт: %s (%s)\nУслуга: %s\nКогда: %s %s\nРайон: %s\nПожелания: %s\nДатаISO: %s",
		bk.RequestID,
		bk.Requester().Handle(), bk.Name,
		bk.Service,
		bk.DateText, bk.TimeSlot,
		orDash(bk.District),
		orDash(bk.Wishes),
		bk.DateISO,
	)
}

func (b *Bot) handleAdminDecision(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	l := zerolog.Ctx(ctx)
	adminID := callback.From.ID

	if !b.config.IsAdmin(adminID) {
		b.answer(ctx, callback.ID, "Нет доступа", true)
		return
	}

	parts := strings.SplitN(callback.Data, ":", 3)
	if len(parts) != 3 || parts[2] == "" {
		b.answer(ctx, callback.ID, "Неизвестное действие", true)
		return
	}
	action, requestID := parts[1], parts[2]

	var (
		bk      *models.Booking
		err     error
		outcome string
		notice  string
	)
	switch action {
	case adminApprove:
		bk, err = b.bookingService.Confirm(ctx, requestID, adminID)
		outcome, notice = "✅ Подтверждено", "Подтверждено"
	case adminDecline:
		bk, err = b.bookingService.Decline(ctx, requestID, adminID, "")
		outcome, notice = "❌ Отклонено", "Отклонено"
	default:
		b.answer(ctx, callback.ID, "Неизвестное действие", true)
		return
	}

	if err != nil {
		l.Error().Err(err).Str("request_id", requestID).Str("action", action).Msg("Admin action failed")
		b.answer(ctx, callback.ID, b.getErrorMessage(err), true)
		return
	}
	b.metrics.AdminDecisions.WithLabelValues(action).Inc()

	if callback.Message != nil {
		kb := contactKeyboard(bk)
		text := callback.Message.Text + "\n\n" + outcome
		if err := b.tgService.EditMessage(callback.Message.Chat.ID, callback.Message.MessageID, text, &kb); err != nil {
			l.Warn().Err(err).Str("request_id", requestID).Msg("Failed to edit admin notification")
		}
	}
	b.answer(ctx, callback.ID, notice, false)
}
