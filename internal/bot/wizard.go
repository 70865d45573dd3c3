package bot

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Spok95/course-feedback/internal/db"
	"github.com/Spok95/course-feedback/internal/feedback"
	"github.com/Spok95/course-feedback/internal/models"
	"github.com/Spok95/course-feedback/internal/session"
)

const (
	noticeOutdated   = "This message is outdated."
	noticeEnded      = "This feedback session has ended. Open the form again."
	noticeBadAction  = "Unknown action."
	noticeStudents   = "Available to students only."
	noticeSubmitNext = "Submit feedback for this subject first."
	msgConfirmDelete = "Delete your response for this form? Feedback for every subject of the form will be removed."
	msgAllReviewed   = "You have reviewed all subjects of this form."
)

// handleCallback обрабатывает нажатие inline-кнопки. Ответ на callback отправляется всегда,
// иначе у клиента крутится индикатор.
func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	chatID := cq.Message.Chat.ID
	msgID := cq.Message.MessageID
	notice := ""
	defer func() { b.answerCallback(cq.ID, notice) }()

	cb, err := parseCallback(cq.Data)
	if err != nil {
		notice = noticeBadAction
		return
	}
	sess, ok := b.currentSession(chatID)
	if !ok {
		DisableMarkup(b.api, chatID, msgID)
		b.reply(chatID, msgNeedLogin)
		return
	}
	if sess.Account.Role != models.RoleStudent {
		notice = noticeStudents
		return
	}

	switch cb.act {
	case actForms:
		DisableMarkup(b.api, chatID, msgID)
		b.send(b.formsMessage(ctx, chatID, sess))
		return
	case actForm:
		DisableMarkup(b.api, chatID, msgID)
		b.startForm(ctx, chatID, sess, cb.formID)
		return
	}

	w, ok := b.sessions.Wizard(sess.Token, cb.formID)
	if !ok {
		DisableMarkup(b.api, chatID, msgID)
		notice = noticeEnded
		return
	}
	st, err := w.Step(cb.epoch)
	if err != nil {
		notice = noticeOutdated
		return
	}
	notice = b.stepAction(ctx, chatID, msgID, sess, w, st, cb)
}

// stepAction выполняет действие над текущим шагом и перерисовывает сообщение.
// Возвращает уведомление для ответа на callback.
func (b *Bot) stepAction(ctx context.Context, chatID int64, msgID int, sess session.Session,
	w *feedback.Wizard, st *feedback.Step, cb callback) string {
	// загрузки шагов не должны обрываться вместе с обработкой апдейта
	ctx = context.WithoutCancel(ctx)

	switch cb.act {
	case actAnswer:
		v := st.View()
		var q models.Question
		for _, cand := range v.Questions {
			if cand.ID == cb.qID {
				q = cand
				break
			}
		}
		if q.ID == 0 || cb.optIdx >= len(q.Options) {
			return noticeBadAction
		}
		if err := st.Select(q.ID, q.Options[cb.optIdx]); err != nil {
			return noticeFor(err)
		}
		b.editStep(chatID, msgID, w)
		return ""

	case actSubmit:
		out, err := st.Submit(ctx)
		switch {
		case errors.Is(err, feedback.ErrIncompleteSubmission):
			b.editStep(chatID, msgID, w)
			return feedback.MsgIncomplete
		case errors.Is(err, feedback.ErrAlreadySubmitted):
			b.editStep(chatID, msgID, w)
			return feedback.MsgAlreadySubmitted
		case err != nil && out == feedback.OutcomeNone:
			if errors.Is(err, feedback.ErrNotAnswerable) || errors.Is(err, feedback.ErrStaleStep) {
				return noticeFor(err)
			}
			b.reportErr(ctx, "submit", err)
			b.editStep(chatID, msgID, w)
			return feedback.MsgSaveFailed
		}
		return b.navigated(chatID, msgID, sess, w, out, err, feedback.MsgSubmitted)

	case actBack:
		out, err := st.Back(ctx)
		if out == feedback.OutcomeNone {
			return noticeFor(err)
		}
		return b.navigated(chatID, msgID, sess, w, out, err, "")

	case actNext:
		if st.State() != feedback.StateAlreadySubmitted {
			return noticeSubmitNext
		}
		out, err := w.Advance(ctx)
		if out == feedback.OutcomeCompleted {
			b.sessions.DropWizard(sess.Token, w.Form().ID)
			b.editToForms(chatID, msgID, msgAllReviewed)
			return ""
		}
		if out == feedback.OutcomeNone {
			return noticeFor(err)
		}
		return b.navigated(chatID, msgID, sess, w, out, err, "")

	case actReload:
		if err := w.Reload(ctx); err != nil && !errors.Is(err, feedback.ErrStaleStep) {
			b.log.Warn("reload step failed", zap.Int64("form_id", w.Form().ID), zap.Error(err))
		}
		b.editStep(chatID, msgID, w)
		return ""

	case actDelete:
		if st.State() != feedback.StateAlreadySubmitted {
			return noticeFor(feedback.ErrNotSubmitted)
		}
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, msgConfirmDelete,
			confirmDeleteKeyboard(w.Form().ID, st.Epoch()))
		b.send(edit)
		return ""

	case actDeleteYes:
		out, err := st.DeleteResponse(ctx, true)
		if err != nil {
			if errors.Is(err, feedback.ErrNotSubmitted) || errors.Is(err, feedback.ErrStaleStep) {
				return noticeFor(err)
			}
			b.reportErr(ctx, "delete_response", err)
			b.editStep(chatID, msgID, w)
			return msgInternal
		}
		return b.navigated(chatID, msgID, sess, w, out, nil, feedback.MsgDeleted)

	case actDeleteNo:
		b.editStep(chatID, msgID, w)
		return ""
	}
	return noticeBadAction
}

// navigated реагирует на исход навигации: возврат к списку форм или отрисовка нового шага.
// Ошибка загрузки нового шага видна в самом шаге (кнопка Retry).
func (b *Bot) navigated(chatID int64, msgID int, sess session.Session,
	w *feedback.Wizard, out feedback.Outcome, err error, message string) string {
	if err != nil {
		b.log.Warn("load step failed", zap.Int64("form_id", w.Form().ID), zap.Error(err))
	}
	if out.ToFormList() {
		b.sessions.DropWizard(sess.Token, w.Form().ID)
		b.editToForms(chatID, msgID, message)
		return ""
	}
	b.editStep(chatID, msgID, w)
	return message
}

func (b *Bot) startForm(ctx context.Context, chatID int64, sess session.Session, formID int64) {
	student := sess.Account.Student
	form, err := b.store.GetForm(ctx, formID)
	switch {
	case errors.Is(err, db.ErrNotFound):
		b.reply(chatID, feedback.MsgFormNotFound)
		return
	case err != nil:
		b.reportErr(ctx, "get_form", err)
		b.reply(chatID, msgInternal)
		return
	}
	if form.ClassroomID != student.ClassroomID {
		b.reply(chatID, feedback.MsgFormNotFound)
		return
	}

	w, err := b.feedback.Start(context.WithoutCancel(ctx), formID, student.ID)
	switch {
	case errors.Is(err, feedback.ErrFormNotFound):
		b.reply(chatID, feedback.MsgFormNotFound)
		return
	case errors.Is(err, feedback.ErrNoSubjects):
		b.reply(chatID, feedback.MsgNoSubjects)
		return
	case err != nil:
		b.reportErr(ctx, "start_form", err)
		b.reply(chatID, msgInternal)
		return
	}
	if err := b.sessions.SetWizard(sess.Token, formID, w); err != nil {
		w.Close()
		b.reply(chatID, msgNeedLogin)
		return
	}

	v := w.View()
	msg := tgbotapi.NewMessage(chatID, stepText(w.Form(), v))
	msg.ReplyMarkup = stepKeyboard(formID, v)
	b.send(msg)
}

// editStep перерисовывает сообщение под текущий шаг мастера.
func (b *Bot) editStep(chatID int64, msgID int, w *feedback.Wizard) {
	v := w.View()
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, stepText(w.Form(), v), stepKeyboard(w.Form().ID, v))
	b.send(edit)
}

func (b *Bot) editToForms(chatID int64, msgID int, text string) {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, text,
		tgbotapi.NewInlineKeyboardMarkup(toFormsRow()))
	b.send(edit)
}

func noticeFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, feedback.ErrStaleStep):
		return noticeOutdated
	case errors.Is(err, feedback.ErrFirstStep):
		return "Already at the first subject."
	case errors.Is(err, feedback.ErrNotAnswerable):
		return "This subject does not accept answers right now."
	case errors.Is(err, feedback.ErrNotSubmitted):
		return "There is no submitted response to delete."
	case errors.Is(err, feedback.ErrUnknownQuestion), errors.Is(err, feedback.ErrInvalidOption):
		return noticeBadAction
	}
	return msgInternal
}
