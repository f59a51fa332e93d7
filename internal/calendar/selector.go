// Package calendar implements the two-click loan period picker.
package calendar

import (
	"errors"
	"fmt"
	"math"
	"time"

	"schoollend/internal/models"
)

var (
	ErrDateUnavailable = errors.New("date is unavailable")
	ErrDateInPast      = errors.New("date is in the past")
	ErrRangeTooLong    = errors.New("period exceeds maximum reservation length")
	ErrRangeIncomplete = errors.New("start and end date must both be selected")
	ErrRangeInverted   = errors.New("start date is after end date")
)

// Rules constrain which days can be picked.
type Rules struct {
	MaxDays     int
	Unavailable []time.Time
}

func (r Rules) maxDays() int {
	if r.MaxDays <= 0 {
		return models.DefaultMaxReservationDays
	}
	return r.MaxDays
}

// IsUnavailable reports whether the day is blocked out.
func (r Rules) IsUnavailable(date time.Time) bool {
	day := models.Day(date)
	for _, u := range r.Unavailable {
		if models.Day(u).Equal(day) {
			return true
		}
	}
	return false
}

// DurationDays counts the days of a period, both endpoints included.
func DurationDays(start, end time.Time) int {
	return int(math.Ceil(end.Sub(start).Hours()/24)) + 1
}

type Outcome string

const (
	OutcomeStarted   Outcome = "started"
	OutcomeCompleted Outcome = "completed"
)

// Selector keeps the anchor and end of the period being picked.
type Selector struct {
	Start        *time.Time `json:"start,omitempty"`
	End          *time.Time `json:"end,omitempty"`
	SelectingEnd bool       `json:"selecting_end"`
}

// Check returns the reason a day cannot be clicked, or nil.
func (s *Selector) Check(date time.Time, rules Rules, today time.Time) error {
	day := models.Day(date)
	if day.Before(models.Day(today)) {
		return fmt.Errorf("%w: %s", ErrDateInPast, day.Format(models.DateLayout))
	}
	if rules.IsUnavailable(day) {
		return fmt.Errorf("%w: %s", ErrDateUnavailable, day.Format(models.DateLayout))
	}
	if s.Start != nil {
		first, last := *s.Start, day
		if last.Before(first) {
			first, last = last, first
		}
		if DurationDays(first, last) > rules.maxDays() {
			return fmt.Errorf("%w: %d days max", ErrRangeTooLong, rules.maxDays())
		}
	}
	return nil
}

func (s *Selector) IsDisabled(date time.Time, rules Rules, today time.Time) bool {
	return s.Check(date, rules, today) != nil
}

// Click applies one calendar click. A rejected click leaves the selector untouched.
func (s *Selector) Click(date time.Time, rules Rules, today time.Time) (Outcome, error) {
	if err := s.Check(date, rules, today); err != nil {
		return "", err
	}

	day := models.Day(date)
	if s.Start == nil || !s.SelectingEnd {
		s.Start = &day
		s.End = nil
		s.SelectingEnd = true
		return OutcomeStarted, nil
	}

	if day.Before(*s.Start) {
		anchor := *s.Start
		s.Start = &day
		s.End = &anchor
	} else {
		s.End = &day
	}
	s.SelectingEnd = false
	return OutcomeCompleted, nil
}

func (s *Selector) Reset() {
	s.Start = nil
	s.End = nil
	s.SelectingEnd = false
}

// Range returns the picked period once both ends are set.
func (s *Selector) Range() (models.DateRange, bool) {
	if s.Start == nil || s.End == nil {
		return models.DateRange{}, false
	}
	return models.DateRange{Start: *s.Start, End: *s.End}, true
}

func (s *Selector) Duration() int {
	r, ok := s.Range()
	if !ok {
		return 0
	}
	return DurationDays(r.Start, r.End)
}

// ValidateRange re-checks a complete period against the rules.
func ValidateRange(r models.DateRange, rules Rules, today time.Time) error {
	if r.Start.IsZero() || r.End.IsZero() {
		return ErrRangeIncomplete
	}
	start, end := models.Day(r.Start), models.Day(r.End)
	if start.After(end) {
		return ErrRangeInverted
	}
	if start.Before(models.Day(today)) {
		return fmt.Errorf("%w: %s", ErrDateInPast, start.Format(models.DateLayout))
	}
	for _, d := range []time.Time{start, end} {
		if rules.IsUnavailable(d) {
			return fmt.Errorf("%w: %s", ErrDateUnavailable, d.Format(models.DateLayout))
		}
	}
	if DurationDays(start, end) > rules.maxDays() {
		return fmt.Errorf("%w: %d days max", ErrRangeTooLong, rules.maxDays())
	}
	return nil
}
