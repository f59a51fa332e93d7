package models

import (
	"fmt"
	"strings"
	"time"
)

// Status is the single lifecycle enumeration shared by the admin and personal views.
type Status string

const (
	StatusPending   Status = "pending"
	StatusReady     Status = "ready"
	StatusActive    Status = "active"
	StatusReturned  Status = "returned"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

// Personal view vocabulary.
const (
	PersonalConfirmed = "confirmed"
	PersonalActive    = "active"
	PersonalCompleted = "completed"
	PersonalCancelled = "cancelled"
)

var allStatuses = []Status{
	StatusPending, StatusReady, StatusActive, StatusReturned, StatusOverdue, StatusCancelled,
}

func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range allStatuses {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", raw)
}

// Admin returns the status as shown on the admin dashboard.
func (s Status) Admin() string {
	return string(s)
}

// Personal maps the status onto the "my reservations" vocabulary.
func (s Status) Personal() string {
	switch s {
	case StatusPending, StatusReady:
		return PersonalConfirmed
	case StatusActive, StatusOverdue:
		return PersonalActive
	case StatusReturned:
		return PersonalCompleted
	case StatusCancelled:
		return PersonalCancelled
	default:
		return string(s)
	}
}

// DateRange is an inclusive pair of calendar days.
type DateRange struct {
	Start time.Time `yaml:"start" json:"start"`
	End   time.Time `yaml:"end" json:"end"`
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDay(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q; expected YYYY-MM-DD", raw)
	}
	return t, nil
}

type Applicant struct {
	FirstName        string `json:"first_name" yaml:"first_name"`
	LastName         string `json:"last_name" yaml:"last_name"`
	Email            string `json:"email" yaml:"email"`
	Phone            string `json:"phone" yaml:"phone"`
	UserType         string `json:"user_type" yaml:"user_type"`
	StudentID        string `json:"student_id" yaml:"student_id"`
	Class            string `json:"class" yaml:"class"`
	Department       string `json:"department" yaml:"department"`
	Purpose          string `json:"purpose" yaml:"purpose"`
	Comments         string `json:"comments" yaml:"comments"`
	EmergencyContact string `json:"emergency_contact" yaml:"emergency_contact"`
	TermsAccepted    bool   `json:"terms_accepted" yaml:"terms_accepted"`
}

func (a Applicant) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

type Reservation struct {
	ID             string    `json:"id" yaml:"id"`
	Device         Device    `json:"device" yaml:"device"`
	Range          DateRange `json:"range" yaml:"range"`
	Applicant      Applicant `json:"applicant" yaml:"applicant"`
	PickupLocation string    `json:"pickup_location" yaml:"pickup_location"`
	Status         Status    `json:"status" yaml:"status"`
	LockerNumber   string    `json:"locker_number,omitempty" yaml:"locker_number"`
	SerialNumber   string    `json:"serial_number,omitempty" yaml:"serial_number"`
	CreatedAt      time.Time `json:"created_at" yaml:"created_at"`
}

// IsOverdue reports whether an active loan ended before today.
func (r *Reservation) IsOverdue(today time.Time) bool {
	return r.Status == StatusActive && Day(r.Range.End).Before(Day(today))
}

// Stats are the dashboard counters.
type Stats struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Active  int `json:"active"`
	Overdue int `json:"overdue"`
}
