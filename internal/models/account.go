package models

type Role string

const (
	RoleFaculty Role = "faculty"
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
	RoleUnknown Role = ""
)

// Account: результат разрешения роли, заполнен ровно один профиль
// (или ни одного для Unknown).
type Account struct {
	Role    Role     `json:"role"`
	Faculty *Faculty `json:"faculty,omitempty"`
	Student *Student `json:"student,omitempty"`
	Admin   *Admin   `json:"admin,omitempty"`
}

func FacultyAccount(f Faculty) Account { return Account{Role: RoleFaculty, Faculty: &f} }
func StudentAccount(s Student) Account { return Account{Role: RoleStudent, Student: &s} }
func AdminAccount(a Admin) Account     { return Account{Role: RoleAdmin, Admin: &a} }

func (a Account) Unknown() bool { return a.Role == RoleUnknown }

// Profile: строка профиля соответствующей роли.
func (a Account) Profile() any {
	switch a.Role {
	case RoleFaculty:
		return a.Faculty
	case RoleStudent:
		return a.Student
	case RoleAdmin:
		return a.Admin
	}
	return nil
}

func (a Account) Email() string {
	switch {
	case a.Faculty != nil:
		return a.Faculty.Email
	case a.Student != nil:
		return a.Student.Email
	case a.Admin != nil:
		return a.Admin.Email
	}
	return ""
}

func (a Account) DisplayName() string {
	switch {
	case a.Faculty != nil:
		return a.Faculty.Name
	case a.Student != nil:
		return a.Student.Name
	case a.Admin != nil:
		return a.Admin.Name
	}
	return ""
}
