package models

import "strings"

type Faculty struct {
	ID           int64  `db:"faculty_id" json:"faculty_id"`
	Name         string `db:"name" json:"name" validate:"required,max=200"`
	Designation  string `db:"designation" json:"designation" validate:"max=200"`
	DepartmentID int64  `db:"department_id" json:"department_id" validate:"required,gt=0"`
	Email        string `db:"email" json:"email" validate:"required,email"`
}

type Student struct {
	ID           int64  `db:"student_id" json:"student_id"`
	Name         string `db:"name" json:"name" validate:"required,max=200"`
	Email        string `db:"email" json:"email" validate:"required,email"`
	DepartmentID int64  `db:"department_id" json:"department_id" validate:"required,gt=0"`
	ClassroomID  int64  `db:"classroom_id" json:"classroom_id" validate:"required,gt=0"`
	USN          string `db:"usn" json:"usn" validate:"required,max=50"`
}

type Admin struct {
	ID    int64  `db:"admin_id" json:"admin_id"`
	Name  string `db:"name" json:"name" validate:"required,max=200"`
	Email string `db:"email" json:"email" validate:"required,email"`
}

// NormalizeEmail: так email хранится и так по нему ищем.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
