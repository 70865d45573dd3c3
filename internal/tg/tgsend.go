package tg

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/course-feedback/internal/observability"
)

// Client: то, что нужно хендлерам от *tgbotapi.BotAPI.
type Client interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

var _ Client = (*tgbotapi.BotAPI)(nil)

// Считаем системными: 5xx, 429, timeout. 400-ки и типичные телеграм-валидации в Sentry не шлём.
func isSystemErr(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	if strings.Contains(s, "Bad Request") ||
		strings.Contains(s, "message is not modified") ||
		strings.Contains(s, "chat not found") {
		return false
	}
	for _, marker := range []string{"429", "500", "502", "503", "504", "timeout", "connection reset"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

func Send(bot Client, msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	m, err := bot.Send(msg)
	if isSystemErr(err) {
		observability.CaptureErrWith(err, map[string]string{"op": "tg.send"})
	}
	return m, err
}

func Request(bot Client, req tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	r, err := bot.Request(req)
	if isSystemErr(err) {
		observability.CaptureErrWith(err, map[string]string{"op": "tg.request"})
	}
	return r, err
}
