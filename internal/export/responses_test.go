package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/course-feedback/internal/models"
)

func dataset() Dataset {
	at := time.Date(2026, 2, 3, 14, 5, 0, 0, time.UTC)
	return Dataset{
		Form:      models.Form{ID: 1, Name: "Mid-term", ClassroomID: 7},
		Classroom: models.Classroom{ID: 7, Name: "CSE 5A"},
		Questions: []models.Question{
			{ID: 1, Name: "Clarity", Options: []string{"Good", "Poor"}},
			{ID: 2, Name: "Pace", Options: []string{"Fast", "Slow"}},
		},
		Subjects: []models.Subject{{ID: 10, Name: "Networks", Code: "CS501", HandlingInstructor: 3}},
		Students: []models.Student{{ID: 5, Name: "Asha", USN: "1XX21CS001"}},
		Responses: []models.Response{
			{ID: 100, FormID: 1, ClassroomID: 7, SubjectID: 10, StudentID: 5, CreatedAt: at,
				Response: models.Answers{{QuestionID: 2, Option: "Slow"}, {QuestionID: 1, Option: "Good"}}},
			{ID: 101, FormID: 1, ClassroomID: 7, SubjectID: 99, StudentID: 6, CreatedAt: at,
				Response: models.Answers{{QuestionID: 1, Option: "Poor"}}},
		},
	}
}

func TestResponsesWorkbook(t *testing.T) {
	f, err := ResponsesWorkbook(dataset())
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(ResponsesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Response ID", "Classroom", "Subject", "Student", "USN", "Clarity", "Pace", "Submitted at"}, rows[0])
	assert.Equal(t, []string{"100", "CSE 5A", "CS501 Networks", "Asha", "1XX21CS001", "Good", "Slow", "2026-02-03 14:05"}, rows[1])
	// неизвестные предмет и студент не ломают выгрузку
	assert.Equal(t, "#99", rows[2][2])
	assert.Equal(t, "untitled", rows[2][3])

	sum, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	require.Len(t, sum, 5) // заголовок + 2 вопроса × 2 варианта
	assert.Equal(t, []string{"CS501 Networks", "3", "Clarity", "Good", "1", "100.0%"}, sum[1])
	assert.Equal(t, []string{"CS501 Networks", "3", "Clarity", "Poor", "0", "0.0%"}, sum[2])
}

func TestResponsesWorkbook_Empty(t *testing.T) {
	f, err := ResponsesWorkbook(Dataset{Form: models.Form{Name: "Empty"}})
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(ResponsesSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestResponsesFilename(t *testing.T) {
	assert.Equal(t, "Feedback - Mid_term A_B.xlsx", ResponsesFilename("  Mid/term   A:B "))
	assert.Equal(t, "Feedback - untitled.xlsx", ResponsesFilename(""))
}

func TestColumnName(t *testing.T) {
	for n, want := range map[int]string{1: "A", 26: "Z", 27: "AA", 52: "AZ", 703: "AAA"} {
		if got := columnName(n); got != want {
			t.Fatalf("columnName(%d) = %q, ожидали %q", n, got, want)
		}
	}
}
