// Package bot реализует телеграм-фронтенд: вход, список форм, мастер отзывов по предметам.
package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Spok95/course-feedback/internal/ctxutil"
	"github.com/Spok95/course-feedback/internal/feedback"
	"github.com/Spok95/course-feedback/internal/metrics"
	"github.com/Spok95/course-feedback/internal/models"
	"github.com/Spok95/course-feedback/internal/observability"
	"github.com/Spok95/course-feedback/internal/session"
	"github.com/Spok95/course-feedback/internal/tg"
)

const (
	msgUnknownCommand = "⚠️ Unknown command. Use /start"
	msgNeedLogin      = "Please sign in first: /login <email> <password>"
	msgLoginUsage     = "Usage: /login <email> <password>"
	msgInternal       = "Something went wrong. Please try again later."
)

// Store: чтение справочников для бота.
type Store interface {
	GetForm(ctx context.Context, id int64) (models.Form, error)
	ListFormsByClassroom(ctx context.Context, classroomID int64) ([]models.Form, error)
	ListSubjectsByInstructor(ctx context.Context, facultyID int64) ([]models.Subject, error)
	ListQuestions(ctx context.Context) ([]models.Question, error)
	ListResponsesBySubject(ctx context.Context, subjectID int64) ([]models.Response, error)
}

type Options struct {
	API      tg.Client
	Store    Store
	Sessions *session.Manager
	Feedback *feedback.Service
	Log      *zap.Logger
}

type Bot struct {
	api      tg.Client
	store    Store
	sessions *session.Manager
	feedback *feedback.Service
	state    *StateManager
	limiter  *ChatLimiter
	log      *zap.Logger
}

func New(opts Options) *Bot {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Bot{
		api:      opts.API,
		store:    opts.Store,
		sessions: opts.Sessions,
		feedback: opts.Feedback,
		state:    NewStateManager(),
		limiter:  NewChatLimiter(),
		log:      log,
	}
}

// Run обрабатывает апдейты до отмены ctx. Апдейты разных чатов идут параллельно,
// одного чата по очереди.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			go b.HandleUpdate(ctx, upd)
		}
	}
}

func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	metrics.BotUpdates.Inc()
	if cq := upd.CallbackQuery; cq != nil && cq.Message == nil {
		// кнопка inline-режима: чата нет, но на callback всё равно отвечаем
		b.answerCallback(cq.ID, noticeBadAction)
		return
	}
	chat := upd.FromChat()
	if chat == nil {
		return
	}
	unlock := b.limiter.Lock(chat.ID)
	defer unlock()
	ctx = ctxutil.WithChatID(ctx, chat.ID)

	switch {
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		b.handleMessage(ctx, upd.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	cmd, args := splitCommand(text)
	switch {
	case cmd == "start" || cmd == "help":
		b.cmdStart(chatID)
	case cmd == "login":
		b.cmdLogin(ctx, msg, args)
	case cmd == "logout" || text == btnLogout:
		b.cmdLogout(chatID)
	case cmd == "forms" || text == btnForms:
		b.cmdForms(ctx, chatID)
	case cmd == "subjects" || text == btnSubjects:
		b.cmdSubjects(ctx, chatID)
	default:
		b.reply(chatID, msgUnknownCommand)
	}
}

// splitCommand: "/login@bot a b" -> ("login", ["a", "b"]).
func splitCommand(text string) (string, []string) {
	if !strings.HasPrefix(text, "/") {
		return "", nil
	}
	fields := strings.Fields(text)
	cmd := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd), fields[1:]
}

// currentSession: живая сессия чата; протухшая привязка снимается.
func (b *Bot) currentSession(chatID int64) (session.Session, bool) {
	st, ok := b.state.Get(chatID)
	if !ok {
		return session.Session{}, false
	}
	sess, ok := b.sessions.Get(st.Token)
	if !ok {
		b.state.Clear(chatID)
	}
	return sess, ok
}

func (b *Bot) requireSession(chatID int64) (session.Session, bool) {
	sess, ok := b.currentSession(chatID)
	if !ok {
		b.reply(chatID, msgNeedLogin)
	}
	return sess, ok
}

func (b *Bot) answerCallback(id, notice string) {
	if _, err := tg.Request(b.api, tgbotapi.NewCallback(id, notice)); err != nil {
		b.log.Debug("answer callback", zap.Error(err))
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := tg.Send(b.api, c); err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return
		}
		metrics.HandlerErrors.Inc()
		b.log.Warn("telegram send failed", zap.Error(err))
	}
}

func (b *Bot) reportErr(ctx context.Context, op string, err error) {
	metrics.HandlerErrors.Inc()
	fields := []zap.Field{zap.String("op", op), zap.Error(err)}
	if id, ok := ctxutil.ChatID(ctx); ok {
		fields = append(fields, zap.Int64("chat_id", id))
	}
	b.log.Error("bot handler failed", fields...)
	observability.CaptureErrWith(err, map[string]string{"op": op})
}
