package export

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/course-feedback/internal/feedback"
	"github.com/Spok95/course-feedback/internal/models"
)

const (
	ResponsesSheet = "Responses"
	SummarySheet   = "Summary"
)

// Dataset: всё, что нужно для выгрузки одной формы.
type Dataset struct {
	Form      models.Form
	Classroom models.Classroom
	Questions []models.Question
	Subjects  []models.Subject
	Students  []models.Student
	Responses []models.Response
}

// ResponsesWorkbook строит книгу: лист Responses (строка на ответ, столбец на вопрос)
// и лист Summary (распределение вариантов по предметам).
func ResponsesWorkbook(d Dataset) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", ResponsesSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeResponses(f, d); err != nil {
		_ = f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("new sheet: %w", err)
	}
	if err := writeSummary(f, d); err != nil {
		_ = f.Close()
		return nil, err
	}
	for _, sh := range []string{ResponsesSheet, SummarySheet} {
		if err := ApplyDefaultExcelFormatting(f, sh); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("format %s: %w", sh, err)
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeResponses(f *excelize.File, d Dataset) error {
	header := []any{"Response ID", "Classroom", "Subject", "Student", "USN"}
	for _, q := range d.Questions {
		header = append(header, q.Name)
	}
	header = append(header, "Submitted at")
	if err := f.SetSheetRow(ResponsesSheet, "A1", &header); err != nil {
		return fmt.Errorf("header: %w", err)
	}

	subjects := make(map[int64]models.Subject, len(d.Subjects))
	for _, s := range d.Subjects {
		subjects[s.ID] = s
	}
	students := make(map[int64]models.Student, len(d.Students))
	for _, s := range d.Students {
		students[s.ID] = s
	}

	for i, r := range d.Responses {
		st := students[r.StudentID]
		row := []any{r.ID, d.Classroom.Name, subjectLabel(subjects, r.SubjectID), cleanName(st.Name), st.USN}
		byQ := r.Response.ByQuestion()
		for _, q := range d.Questions {
			row = append(row, byQ[q.ID])
		}
		row = append(row, r.CreatedAt.Format("2006-01-02 15:04"))

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ResponsesSheet, cell, &row); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}
	return nil
}

func writeSummary(f *excelize.File, d Dataset) error {
	header := []any{"Subject", "Instructor ID", "Question", "Option", "Count", "Share"}
	if err := f.SetSheetRow(SummarySheet, "A1", &header); err != nil {
		return fmt.Errorf("summary header: %w", err)
	}
	rowIdx := 2
	for _, sub := range d.Subjects {
		sum := feedback.Summarize(sub, d.Questions, d.Responses)
		for _, q := range sum.Questions {
			for _, o := range q.Options {
				share := ""
				if q.Answered > 0 {
					share = strconv.FormatFloat(float64(o.Count)*100/float64(q.Answered), 'f', 1, 64) + "%"
				}
				row := []any{label(sub), sub.HandlingInstructor, q.Question, o.Option, o.Count, share}
				cell, _ := excelize.CoordinatesToCellName(1, rowIdx)
				if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
					return fmt.Errorf("summary row %d: %w", rowIdx, err)
				}
				rowIdx++
			}
		}
	}
	return nil
}

func subjectLabel(subjects map[int64]models.Subject, id int64) string {
	s, ok := subjects[id]
	if !ok {
		return "#" + strconv.FormatInt(id, 10)
	}
	return label(s)
}

func label(s models.Subject) string {
	if s.Code == "" {
		return s.Name
	}
	return s.Code + " " + s.Name
}
