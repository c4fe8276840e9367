package bot

import (
	"context"
	"encoding/json"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// WebhookHandler принимает обновления Telegram, присланные на webhook.
// Обработка идет синхронно, Telegram получает 200 после нее.
func (b *Bot) WebhookHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var update tgbotapi.Update
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&update); err != nil {
			b.logger.Warn().Err(err).Msg("Failed to decode webhook update")
			http.Error(w, "bad update", http.StatusBadRequest)
			return
		}

		b.HandleUpdate(context.WithoutCancel(r.Context()), update)
		w.WriteHeader(http.StatusOK)
	})
}
