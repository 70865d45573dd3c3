package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/course-feedback/internal/feedback"
	"github.com/Spok95/course-feedback/internal/metrics"
	"github.com/Spok95/course-feedback/internal/models"
	"github.com/Spok95/course-feedback/internal/tg"
)

// лимиты Telegram для inline-клавиатуры
const (
	maxRowButtons      = 8
	maxKeyboardButtons = 100
)

const (
	btnForms    = "📝 Forms"
	btnSubjects = "📊 My subjects"
	btnLogout   = "🚪 Logout"
)

// RoleMenu возвращает меню в зависимости от роли пользователя
func RoleMenu(role models.Role) any {
	switch role {
	case models.RoleStudent:
		return tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(btnForms),
				tgbotapi.NewKeyboardButton(btnLogout),
			),
		)
	case models.RoleFaculty:
		return tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(btnSubjects),
				tgbotapi.NewKeyboardButton(btnLogout),
			),
		)
	case models.RoleAdmin:
		return tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnLogout)),
		)
	default:
		return tgbotapi.NewRemoveKeyboard(true)
	}
}

// DisableMarkup "гасит" inline‑клавиатуру у сообщения (one‑shot клавиатура).
func DisableMarkup(bot tg.Client, chatID int64, messageID int) {
	empty := tgbotapi.InlineKeyboardMarkup{InlineKeyboard: make([][]tgbotapi.InlineKeyboardButton, 0)}
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, empty)
	if _, err := tg.Send(bot, edit); err != nil {
		metrics.HandlerErrors.Inc()
	}
}

func formsKeyboard(forms []models.Form) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(forms))
	for _, f := range forms {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(f.Name, cbData(actForm, f.ID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func toFormsRow() []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📋 Back to forms", actForms))
}

// stepKeyboard: варианты ответа (строка на вопрос, длинные переносятся) и навигация.
func stepKeyboard(formID int64, v feedback.View) tgbotapi.InlineKeyboardMarkup {
	ep := int64(v.Epoch)
	var rows [][]tgbotapi.InlineKeyboardButton

	if v.LoadFailed {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Retry", cbData(actReload, formID, ep)),
		), toFormsRow())
		return tgbotapi.NewInlineKeyboardMarkup(rows...)
	}

	var nav []tgbotapi.InlineKeyboardButton
	if !v.IsFirstStep {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", cbData(actBack, formID, ep)))
	}

	switch {
	case v.AlreadySubmitted:
		if !v.IsLastStep {
			nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("➡️ Next", cbData(actNext, formID, ep)))
		}
		if len(nav) > 0 {
			rows = append(rows, nav)
		}
		rows = append(rows,
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🗑 Delete response", cbData(actDelete, formID, ep))),
			toFormsRow(),
		)
	case v.State.Answerable():
		chosen := v.Answers.ByQuestion()
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("✅ Submit", cbData(actSubmit, formID, ep)))
		for _, qi := range visibleQuestions(v.Questions, chosen, maxKeyboardButtons-len(nav)) {
			q := v.Questions[qi]
			var row []tgbotapi.InlineKeyboardButton
			for oi, o := range q.Options {
				label := fmt.Sprintf("%d: %s", qi+1, o)
				if chosen[q.ID] == o {
					label = "✅ " + label
				}
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cbData(actAnswer, formID, ep, q.ID, int64(oi))))
				if len(row) == maxRowButtons {
					rows = append(rows, row)
					row = nil
				}
			}
			if len(row) > 0 {
				rows = append(rows, row)
			}
		}
		rows = append(rows, nav)
	default:
		rows = append(rows, toFormsRow())
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// visibleQuestions: индексы вопросов, чьи кнопки помещаются в budget.
// Если всё не влезает, сначала берутся вопросы без ответа; порядок сохраняется.
func visibleQuestions(qs []models.Question, chosen map[int64]string, budget int) []int {
	total := 0
	for _, q := range qs {
		total += len(q.Options)
	}
	take := make([]bool, len(qs))
	if total <= budget {
		for i := range take {
			take[i] = true
		}
	} else {
		for _, answered := range []bool{false, true} {
			for i, q := range qs {
				_, ok := chosen[q.ID]
				if ok != answered || take[i] || len(q.Options) > budget {
					continue
				}
				take[i] = true
				budget -= len(q.Options)
			}
		}
	}
	out := make([]int, 0, len(qs))
	for i, ok := range take {
		if ok {
			out = append(out, i)
		}
	}
	return out
}

func confirmDeleteKeyboard(formID int64, epoch uint64) tgbotapi.InlineKeyboardMarkup {
	ep := int64(epoch)
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ Yes, delete", cbData(actDeleteYes, formID, ep)),
		tgbotapi.NewInlineKeyboardButtonData("❌ No", cbData(actDeleteNo, formID, ep)),
	))
}

// stepText: текстовое представление шага (без разметки, чтобы не экранировать).
func stepText(form models.Form, v feedback.View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", form.Name)
	fmt.Fprintf(&b, "Subject %d/%d: %s", v.Step+1, v.Total, v.Subject.Name)
	if v.Subject.Code != "" {
		fmt.Fprintf(&b, " (%s)", v.Subject.Code)
	}
	b.WriteString("\n")
	if v.Faculty.Name != "" {
		fmt.Fprintf(&b, "Instructor: %s", v.Faculty.Name)
		if v.Faculty.Designation != "" {
			fmt.Fprintf(&b, ", %s", v.Faculty.Designation)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case v.LoadFailed:
		b.WriteString("Could not load this subject. Tap Retry.")
		return b.String()
	case v.AlreadySubmitted:
		b.WriteString(feedback.MsgAlreadySubmitted)
		return b.String()
	}

	chosen := v.Answers.ByQuestion()
	for i, q := range v.Questions {
		ans := chosen[q.ID]
		if ans == "" {
			ans = "not answered"
		}
		fmt.Fprintf(&b, "%d. %s\n   %s\n", i+1, q.Name, ans)
	}
	if v.Error != "" {
		fmt.Fprintf(&b, "\n⚠️ %s", v.Error)
	}
	return strings.TrimRight(b.String(), "\n")
}
