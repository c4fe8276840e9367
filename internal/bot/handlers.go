package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"qwesade/internal/flow"
	"qwesade/internal/models"
	"qwesade/internal/parsing"
)

const availPrefix = "adate:"

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	l := zerolog.Ctx(ctx)
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	l.Debug().Str("username", msg.From.UserName).Str("text", text).Msg("Handling message")

	sess, err := b.stateService.GetSession(ctx, msg.From.ID)
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	// Сообщения пользователя в личке удаляются после обработки
	if msg.Chat.IsPrivate() && text != "" {
		defer b.deleteSilent(ctx, chatID, msg.MessageID)
	}

	who := requesterOf(msg.From)
	var reply flow.Reply
	if msg.IsCommand() {
		reply = b.handleCommand(ctx, msg, sess, who)
	} else {
		in := flow.Input{Text: text}
		if action, ok := replyActions[text]; ok {
			in = flow.Input{Action: action}
		}
		reply = b.route(ctx, chatID, sess, who, in)
	}

	b.present(ctx, chatID, sess, reply, nil)
	b.afterReply(ctx, reply)
	b.saveSession(ctx, sess)
}

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	l := zerolog.Ctx(ctx)
	l.Debug().Str("data", callback.Data).Msg("Handling callback")

	if strings.HasPrefix(callback.Data, adminPrefix) {
		b.handleAdminDecision(ctx, callback)
		return
	}
	if callback.Message == nil {
		b.answer(ctx, callback.ID, "", false)
		return
	}

	chatID := callback.Message.Chat.ID
	sess, err := b.stateService.GetSession(ctx, callback.From.ID)
	if err != nil {
		b.answer(ctx, callback.ID, b.getErrorMessage(err), true)
		return
	}

	reply := b.route(ctx, chatID, sess, requesterOf(callback.From), flow.Input{Action: callback.Data})

	// Отвечаем на callback до отправки шага, чтобы убрать "часики"
	b.answer(ctx, callback.ID, reply.Notice, reply.Alert)
	b.present(ctx, chatID, sess, reply, callback.Message)
	b.afterReply(ctx, reply)
	b.saveSession(ctx, sess)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, sess *models.Session, who models.Requester) flow.Reply {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		return b.machine.Menu(sess, "Привет! Это запись на активности.")
	case "new":
		return b.machine.Start(sess)
	case "cancel":
		return b.machine.Handle(ctx, sess, who, flow.Input{Action: flow.ActionCancel})
	case "mine":
		b.showMine(ctx, chatID, who.ID)
	case "avail":
		b.handleAvail(ctx, chatID, args)
	case "agenda":
		b.showAgenda(ctx, chatID)
	case "export":
		b.handleExport(ctx, chatID, who.ID, args)
	default:
		b.sendMessage(chatID, b.helpText(who.ID))
	}
	return flow.Reply{}
}

// route отдает действия меню боту, остальное машине диалога.
// Дата, введенная вне диалога, показывает доступность на эту дату.
func (b *Bot) route(ctx context.Context, chatID int64, sess *models.Session, who models.Requester, in flow.Input) flow.Reply {
	switch {
	case in.Action == flow.ActionMine:
		b.showMine(ctx, chatID, who.ID)
		return flow.Reply{}
	case in.Action == flow.ActionAvail:
		b.askAvailability(ctx, chatID)
		return flow.Reply{}
	case strings.HasPrefix(in.Action, availPrefix):
		b.availabilityPreset(ctx, chatID, strings.TrimPrefix(in.Action, availPrefix))
		return flow.Reply{}
	case in.Action == "" && !sess.Active():
		if d, err := parsing.ParseHumanDate(in.Text, b.now()); err == nil {
			b.showAvailability(ctx, chatID, d, in.Text)
			return flow.Reply{}
		}
	}
	return b.machine.Handle(ctx, sess, who, in)
}

func (b *Bot) afterReply(ctx context.Context, r flow.Reply) {
	l := zerolog.Ctx(ctx)
	if r.Booking != nil {
		b.metrics.BookingsCreated.WithLabelValues(b.serviceLabel(r.Booking.Service)).Inc()
		l.Info().Str("request_id", r.Booking.RequestID).Msg("Booking submitted")
	}
	if r.Err != nil {
		b.metrics.CommitFailures.WithLabelValues(commitFailureReason(r.Err)).Inc()
		l.Warn().Err(r.Err).Msg("Booking commit failed")
	}
}

// serviceLabel ограничивает метку метрики услугами из конфигурации
func (b *Bot) serviceLabel(service string) string {
	for _, s := range b.config.Booking.Services {
		if s == service {
			return s
		}
	}
	return "other"
}

func (b *Bot) saveSession(ctx context.Context, sess *models.Session) {
	if err := b.stateService.SaveSession(ctx, sess); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to save session")
	}
}

func (b *Bot) answer(ctx context.Context, callbackID, text string, alert bool) {
	if err := b.tgService.AnswerCallback(callbackID, text, alert); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("Failed to answer callback")
	}
}
