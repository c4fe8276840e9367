package bot

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"qwesade/internal/config"
	"qwesade/internal/domain"
	"qwesade/internal/flow"
	"qwesade/internal/models"
)

// anchorText невидимый символ, к которому привязана reply-клавиатура
const anchorText = "\u2063"

type Bot struct {
	tgService      domain.TelegramService
	config         *config.Config
	stateService   domain.SessionManager
	bookingService domain.BookingService
	machine        *flow.Machine
	metrics        *Metrics
	logger         *zerolog.Logger
	now            func() time.Time

	// обновления обрабатываются по одному, как в polling-цикле
	mu sync.Mutex
}

func NewBot(
	tgService domain.TelegramService,
	config *config.Config,
	stateService domain.SessionManager,
	bookingService domain.BookingService,
	metrics *Metrics,
	logger *zerolog.Logger,
) *Bot {
	if logger == nil {
		l := zerolog.New(os.Stdout).With().Timestamp().Logger()
		logger = &l
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	return &Bot{
		tgService:      tgService,
		config:         config,
		stateService:   stateService,
		bookingService: bookingService,
		machine:        flow.NewMachine(bookingService, config.Booking),
		metrics:        metrics,
		logger:         logger,
		now:            time.Now,
	}
}

// Start читает обновления long polling до отмены ctx
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tgService.GetUpdatesChan(u)
	b.logger.Info().Msg("Polling for updates")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// Stop stops receiving Telegram updates (best-effort).
func (b *Bot) Stop() {
	if b == nil || b.tgService == nil {
		return
	}
	b.tgService.StopReceivingUpdates()
}

// HandleUpdate обрабатывает одно обновление из polling или webhook
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.processUpdate(ctx, update)
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	defer func() {
		b.metrics.UpdateProcessingTime.Observe(time.Since(start).Seconds())
	}()

	// Создаем контекст для обработки каждого обновления
	updateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var from *tgbotapi.User
	var chatID int64
	switch {
	case update.CallbackQuery != nil:
		from = update.CallbackQuery.From
		if update.CallbackQuery.Message != nil {
			chatID = update.CallbackQuery.Message.Chat.ID
		}
	case update.Message != nil:
		from = update.Message.From
		chatID = update.Message.Chat.ID
	}
	if from == nil {
		return
	}

	l := b.logger.With().
		Str("request_id", uuid.New().String()).
		Int64("user_id", from.ID).
		Int64("chat_id", chatID).
		Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(func() {
		if !b.config.IsAdmin(from.ID) {
			allowed, err := b.stateService.CheckRateLimit(
				updateCtx,
				from.ID,
				b.config.Bot.RateLimitMessages,
				time.Duration(b.config.Bot.RateLimitWindow)*time.Second,
			)
			if err != nil {
				l.Error().Err(err).Msg("Rate limit check failed")
			} else if !allowed {
				l.Warn().Msg("Rate limit exceeded")
				b.metrics.RateLimited.Inc()
				b.rejectRateLimited(update)
				return
			}
		}

		if update.CallbackQuery != nil {
			b.metrics.UpdatesTotal.WithLabelValues("callback").Inc()
			b.handleCallbackQuery(updateCtx, update.CallbackQuery)
			return
		}

		b.metrics.UpdatesTotal.WithLabelValues("message").Inc()
		b.handleMessage(updateCtx, update.Message)
	})
}

func (b *Bot) rejectRateLimited(update tgbotapi.Update) {
	const text = "⚠️ Вы отправляете сообщения слишком часто. Пожалуйста, подождите немного."
	if update.CallbackQuery != nil {
		_ = b.tgService.AnswerCallback(update.CallbackQuery.ID, text, true)
		return
	}
	b.sendMessage(update.Message.Chat.ID, text)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	if _, err := b.tgService.SendMessage(chatID, text); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

func requesterOf(u *tgbotapi.User) models.Requester {
	return models.Requester{
		ID:       u.ID,
		Username: u.UserName,
		Name:     strings.TrimSpace(u.FirstName + " " + u.LastName),
	}
}
