package feedback

import "github.com/Spok95/course-feedback/internal/models"

type OptionCount struct {
	Option string `json:"option"`
	Count  int    `json:"count"`
}

type QuestionSummary struct {
	QuestionID int64         `json:"question_id"`
	Question   string        `json:"question_name"`
	Answered   int           `json:"answered"`
	Options    []OptionCount `json:"options"`
}

type SubjectSummary struct {
	Subject   models.Subject    `json:"subject"`
	Responses int               `json:"responses"`
	Questions []QuestionSummary `json:"questions"`
}

// Summarize считает варианты по каждому вопросу. Ответы с вариантами, которых
// у вопроса уже нет, не учитываются.
func Summarize(subject models.Subject, questions []models.Question, responses []models.Response) SubjectSummary {
	out := SubjectSummary{Subject: subject, Questions: make([]QuestionSummary, 0, len(questions))}
	index := make(map[int64]int, len(questions))
	for i, q := range questions {
		qs := QuestionSummary{QuestionID: q.ID, Question: q.Name, Options: make([]OptionCount, len(q.Options))}
		for j, o := range q.Options {
			qs.Options[j].Option = o
		}
		out.Questions = append(out.Questions, qs)
		index[q.ID] = i
	}

	for _, r := range responses {
		if r.SubjectID != subject.ID {
			continue
		}
		out.Responses++
		for _, a := range r.Response {
			i, ok := index[a.QuestionID]
			if !ok {
				continue
			}
			qs := &out.Questions[i]
			for j := range qs.Options {
				if qs.Options[j].Option == a.Option {
					qs.Options[j].Count++
					qs.Answered++
					break
				}
			}
		}
	}
	return out
}
