package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"qwesade/internal/flow"
	"qwesade/internal/models"
)

// replyActions кнопки reply-клавиатуры и соответствующие им действия
var replyActions = map[string]string{
	flow.NewLabel:    flow.ActionNew,
	flow.MineLabel:   flow.ActionMine,
	flow.BackLabel:   flow.ActionBack,
	flow.CancelLabel: flow.ActionCancel,
	"✖ Отмена":       flow.ActionCancel,
}

func inlineMarkup(rows [][]flow.Option) *tgbotapi.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, o := range row {
			if o.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(o.Label, o.URL))
				continue
			}
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(o.Label, o.Action))
		}
		keyboard = append(keyboard, buttons)
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(keyboard...)
	return &markup
}

func replyKeyboard(mode string) tgbotapi.ReplyKeyboardMarkup {
	if mode == flow.KeyboardMenu {
		return tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(flow.NewLabel),
				tgbotapi.NewKeyboardButton(flow.MineLabel),
			),
		)
	}
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(flow.BackLabel),
			tgbotapi.NewKeyboardButton(flow.CancelLabel),
		),
	)
}

// present показывает ответ диалога: прежнее сообщение шага удаляется, новое запоминается в сессии.
// source сообщение с нажатой кнопкой, для callback-ов.
func (b *Bot) present(ctx context.Context, chatID int64, sess *models.Session, r flow.Reply, source *tgbotapi.Message) {
	l := zerolog.Ctx(ctx)
	markup := inlineMarkup(r.Options)

	if r.Edit && source != nil {
		err := b.tgService.EditMessage(chatID, source.MessageID, r.Text, markup)
		if err == nil {
			sess.StepMessageID = source.MessageID
			return
		}
		l.Warn().Err(err).Msg("Failed to edit step message, sending a new one")
	}
	if r.Text == "" {
		return
	}

	if r.Keyboard != "" {
		b.ensureAnchor(ctx, chatID, sess, r.Keyboard)
	}

	if sess.StepMessageID != 0 {
		b.deleteSilent(ctx, chatID, sess.StepMessageID)
		sess.StepMessageID = 0
	}

	var (
		msg tgbotapi.Message
		err error
	)
	if markup != nil {
		msg, err = b.tgService.SendWithInlineKeyboard(chatID, r.Text, *markup)
	} else {
		msg, err = b.tgService.SendMessage(chatID, r.Text)
	}
	if err != nil {
		l.Error().Err(err).Msg("Failed to send step message")
		return
	}
	sess.StepMessageID = msg.MessageID
}

// ensureAnchor пересылает якорь reply-клавиатуры только при смене режима меню/диалог
func (b *Bot) ensureAnchor(ctx context.Context, chatID int64, sess *models.Session, mode string) {
	if sess.KeyboardMode == mode && sess.AnchorID != 0 {
		return
	}
	if sess.AnchorID != 0 {
		b.deleteSilent(ctx, chatID, sess.AnchorID)
	}

	msg, err := b.tgService.SendWithReplyKeyboard(chatID, anchorText, replyKeyboard(mode))
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("mode", mode).Msg("Failed to send keyboard anchor")
		return
	}
	sess.AnchorID = msg.MessageID
	sess.KeyboardMode = mode
}

func (b *Bot) deleteSilent(ctx context.Context, chatID int64, messageID int) {
	if err := b.tgService.DeleteMessage(chatID, messageID); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Int("message_id", messageID).Msg("Failed to delete message")
	}
}
