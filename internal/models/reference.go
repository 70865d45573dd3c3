package models

type Department struct {
	ID   int64  `db:"department_id" json:"department_id"`
	Name string `db:"department_name" json:"department_name" validate:"required,max=200"`
}

type Classroom struct {
	ID           int64  `db:"classroom_id" json:"classroom_id"`
	Name         string `db:"classroom_name" json:"classroom_name" validate:"required,max=200"`
	DepartmentID int64  `db:"department_id" json:"department_id" validate:"required,gt=0"`
}

// Subject: предмет внутри одного класса, у которого один ведущий преподаватель.
type Subject struct {
	ID                 int64  `db:"subject_id" json:"subject_id"`
	ClassroomID        int64  `db:"classroom_id" json:"classroom_id" validate:"required,gt=0"`
	Name               string `db:"subject_name" json:"subject_name" validate:"required,max=200"`
	Code               string `db:"subject_code" json:"subject_code" validate:"max=50"`
	HandlingInstructor int64  `db:"handling_instructor" json:"handling_instructor" validate:"required,gt=0"`
}
