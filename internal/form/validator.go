// Package form validates the applicant details step.
package form

import (
	"errors"
	"fmt"
	"strings"

	"schoollend/internal/models"
)

var (
	ErrTermsNotAccepted    = errors.New("you must accept the terms and conditions")
	ErrIncompleteApplicant = errors.New("required fields are missing")
)

// Field names as they appear on the wire.
const (
	FieldFirstName  = "first_name"
	FieldLastName   = "last_name"
	FieldEmail      = "email"
	FieldStudentID  = "student_id"
	FieldClass      = "class"
	FieldDepartment = "department"
)

// MissingFieldsError lists the required fields left empty.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrIncompleteApplicant, strings.Join(e.Fields, ", "))
}

func (e *MissingFieldsError) Unwrap() error {
	return ErrIncompleteApplicant
}

type Result struct {
	Valid   bool     `json:"valid"`
	Missing []string `json:"missing,omitempty"`
	// TermsAccepted mirrors the checkbox so clients can render the alert separately.
	TermsAccepted bool `json:"terms_accepted"`
}

// RequiredFields returns the fields that must be filled for the user type.
// Anything other than staff is treated as a student.
func RequiredFields(userType string) []string {
	fields := []string{FieldFirstName, FieldLastName, FieldEmail}
	if normalizeUserType(userType) == models.UserTypeStaff {
		return append(fields, FieldDepartment)
	}
	return append(fields, FieldStudentID, FieldClass)
}

func Validate(a models.Applicant) Result {
	var missing []string
	for _, field := range RequiredFields(a.UserType) {
		if strings.TrimSpace(fieldValue(a, field)) == "" {
			missing = append(missing, field)
		}
	}
	return Result{
		Valid:         len(missing) == 0 && a.TermsAccepted,
		Missing:       missing,
		TermsAccepted: a.TermsAccepted,
	}
}

// CheckSubmission gates the submit action. Terms are checked before anything else.
func CheckSubmission(a models.Applicant) error {
	if !a.TermsAccepted {
		return ErrTermsNotAccepted
	}
	if res := Validate(a); !res.Valid {
		return &MissingFieldsError{Fields: res.Missing}
	}
	return nil
}

// Normalize trims the applicant fields and fixes the user type tag.
func Normalize(a models.Applicant) models.Applicant {
	a.FirstName = strings.TrimSpace(a.FirstName)
	a.LastName = strings.TrimSpace(a.LastName)
	a.Email = strings.TrimSpace(a.Email)
	a.Phone = strings.TrimSpace(a.Phone)
	a.StudentID = strings.TrimSpace(a.StudentID)
	a.Class = strings.TrimSpace(a.Class)
	a.Department = strings.TrimSpace(a.Department)
	a.UserType = normalizeUserType(a.UserType)
	if a.UserType == models.UserTypeStaff {
		a.StudentID = ""
		a.Class = ""
	} else {
		a.Department = ""
	}
	return a
}

func normalizeUserType(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), models.UserTypeStaff) {
		return models.UserTypeStaff
	}
	return models.UserTypeStudent
}

func fieldValue(a models.Applicant, field string) string {
	switch field {
	case FieldFirstName:
		return a.FirstName
	case FieldLastName:
		return a.LastName
	case FieldEmail:
		return a.Email
	case FieldStudentID:
		return a.StudentID
	case FieldClass:
		return a.Class
	case FieldDepartment:
		return a.Department
	default:
		return ""
	}
}
