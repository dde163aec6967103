package telegram

import (
	"fmt"
	"hash/fnv"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// WebhookPath derives a stable, unguessable path from the bot token.
func WebhookPath(token string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(token))
	return fmt.Sprintf("/webhook/%016x", h.Sum64())
}

// WebhookHandler acknowledges every update at once. dispatch must not block:
// pass Router.Dispatch so slow model calls never trip Telegram's webhook
// timeout and shutdown can wait for them.
func WebhookHandler(parse func(*http.Request) (*tgbotapi.Update, error), dispatch func(tgbotapi.Update), log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		upd, err := parse(r)
		if err != nil {
			log.Warn("webhook: bad update", "error", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		dispatch(*upd)
		w.WriteHeader(http.StatusOK)
	}
}
