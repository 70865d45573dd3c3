package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Spok95/course-feedback/internal/feedback"
	"github.com/Spok95/course-feedback/internal/models"
	"github.com/Spok95/course-feedback/internal/session"
	"github.com/Spok95/course-feedback/internal/tg"
)

const helpText = "Rate My Instructor\n\n" +
	"/login <email> <password> - sign in\n" +
	"/forms - feedback forms for your classroom (students)\n" +
	"/subjects - feedback summary for your subjects (faculty)\n" +
	"/logout - sign out"

func (b *Bot) cmdStart(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, helpText)
	if sess, ok := b.currentSession(chatID); ok {
		msg.ReplyMarkup = RoleMenu(sess.Account.Role)
	}
	b.send(msg)
}

func (b *Bot) cmdLogin(ctx context.Context, in *tgbotapi.Message, args []string) {
	chatID := in.Chat.ID
	// пароль не должен оставаться в истории чата
	if _, err := tg.Request(b.api, tgbotapi.NewDeleteMessage(chatID, in.MessageID)); err != nil {
		b.log.Debug("delete login message", zap.Error(err))
	}
	if len(args) != 2 {
		b.reply(chatID, msgLoginUsage)
		return
	}

	var prev string
	if st, ok := b.state.Get(chatID); ok {
		prev = st.Token
	}
	sess, err := b.sessions.Login(ctx, prev, args[0], args[1])
	var authErr *session.AuthError
	switch {
	case errors.As(err, &authErr):
		b.reply(chatID, "❌ "+authErr.Message)
		return
	case errors.Is(err, session.ErrAccountNotFound):
		b.state.Clear(chatID)
		b.reply(chatID, "❌ User not found")
		return
	case err != nil:
		b.reportErr(ctx, "login", err)
		b.reply(chatID, msgInternal)
		return
	}

	b.state.Set(chatID, ChatState{Token: sess.Token, Email: sess.Account.Email()})
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("✅ Welcome, %s! You are signed in as %s.",
		sess.Account.DisplayName(), sess.Account.Role))
	msg.ReplyMarkup = RoleMenu(sess.Account.Role)
	b.send(msg)
}

func (b *Bot) cmdLogout(chatID int64) {
	if st, ok := b.state.Get(chatID); ok {
		b.sessions.Logout(st.Token)
	}
	b.state.Clear(chatID)
	msg := tgbotapi.NewMessage(chatID, "👋 You are signed out.")
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	b.send(msg)
}

func (b *Bot) cmdForms(ctx context.Context, chatID int64) {
	sess, ok := b.requireSession(chatID)
	if !ok {
		return
	}
	if sess.Account.Role != models.RoleStudent {
		b.reply(chatID, "Feedback forms are available to students only.")
		return
	}
	b.send(b.formsMessage(ctx, chatID, sess))
}

// formsMessage: список форм класса студента.
func (b *Bot) formsMessage(ctx context.Context, chatID int64, sess session.Session) tgbotapi.MessageConfig {
	forms, err := b.store.ListFormsByClassroom(ctx, sess.Account.Student.ClassroomID)
	if err != nil {
		b.reportErr(ctx, "list_forms", err)
		return tgbotapi.NewMessage(chatID, msgInternal)
	}
	if len(forms) == 0 {
		return tgbotapi.NewMessage(chatID, "No feedback forms for your classroom yet.")
	}
	msg := tgbotapi.NewMessage(chatID, "📝 Choose a form:")
	msg.ReplyMarkup = formsKeyboard(forms)
	return msg
}

func (b *Bot) cmdSubjects(ctx context.Context, chatID int64) {
	sess, ok := b.requireSession(chatID)
	if !ok {
		return
	}
	if sess.Account.Role != models.RoleFaculty {
		b.reply(chatID, "Subject summaries are available to faculty only.")
		return
	}
	subjects, err := b.store.ListSubjectsByInstructor(ctx, sess.Account.Faculty.ID)
	if err != nil {
		b.reportErr(ctx, "list_subjects", err)
		b.reply(chatID, msgInternal)
		return
	}
	if len(subjects) == 0 {
		b.reply(chatID, "You have no subjects assigned.")
		return
	}

	questions, err := b.store.ListQuestions(ctx)
	if err != nil {
		b.reportErr(ctx, "list_questions", err)
		b.reply(chatID, msgInternal)
		return
	}
	byIdx := make([][]models.Response, len(subjects))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range subjects {
		g.Go(func() error {
			rs, err := b.store.ListResponsesBySubject(gctx, s.ID)
			byIdx[i] = rs
			return err
		})
	}
	if err := g.Wait(); err != nil {
		b.reportErr(ctx, "list_responses", err)
		b.reply(chatID, msgInternal)
		return
	}

	var sb strings.Builder
	sb.WriteString("📊 Feedback summary\n")
	for i, s := range subjects {
		sb.WriteString("\n")
		sb.WriteString(summaryText(feedback.Summarize(s, questions, byIdx[i])))
	}
	b.reply(chatID, strings.TrimRight(sb.String(), "\n"))
}

func summaryText(s feedback.SubjectSummary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s", s.Subject.Name)
	if s.Subject.Code != "" {
		fmt.Fprintf(&sb, " (%s)", s.Subject.Code)
	}
	fmt.Fprintf(&sb, ": %d responses\n", s.Responses)
	if s.Responses == 0 {
		return sb.String()
	}
	for _, q := range s.Questions {
		parts := make([]string, 0, len(q.Options))
		for _, o := range q.Options {
			parts = append(parts, fmt.Sprintf("%s %d", o.Option, o.Count))
		}
		fmt.Fprintf(&sb, "• %s: %s\n", q.Question, strings.Join(parts, ", "))
	}
	return sb.String()
}
