package feedback

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Spok95/course-feedback/internal/models"
)

func TestSummarize(t *testing.T) {
	sub := models.Subject{ID: 10, Name: "Operating Systems"}
	qs := []models.Question{
		{ID: 1, Name: "Clarity", Options: []string{"Good", "Poor"}},
		{ID: 2, Name: "Recommend", Options: []string{"Yes", "No"}},
	}
	rs := []models.Response{
		{SubjectID: 10, Response: models.Answers{{QuestionID: 1, Option: "Good"}, {QuestionID: 2, Option: "Yes"}}},
		{SubjectID: 10, Response: models.Answers{{QuestionID: 1, Option: "Good"}, {QuestionID: 2, Option: "Maybe"}}},
		{SubjectID: 10, Response: models.Answers{{QuestionID: 99, Option: "Good"}}},
		{SubjectID: 11, Response: models.Answers{{QuestionID: 1, Option: "Poor"}}},
	}

	got := Summarize(sub, qs, rs)

	assert.Equal(t, 3, got.Responses)
	assert.Equal(t, []OptionCount{{"Good", 2}, {"Poor", 0}}, got.Questions[0].Options)
	assert.Equal(t, 2, got.Questions[0].Answered)
	assert.Equal(t, []OptionCount{{"Yes", 1}, {"No", 0}}, got.Questions[1].Options)
	assert.Equal(t, 1, got.Questions[1].Answered, "устаревший вариант не считается")
}

func TestStateAndOutcomeText(t *testing.T) {
	b, _ := StateAlreadySubmitted.MarshalText()
	assert.Equal(t, "already_submitted", string(b))
	assert.Equal(t, "unknown", State(99).String())
	assert.Equal(t, "completed", OutcomeCompleted.String())
	assert.False(t, OutcomeAdvanced.ToFormList())
}
