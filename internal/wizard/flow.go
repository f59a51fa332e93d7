// Package wizard drives the reservation steps: catalog, calendar, form, qr.
package wizard

import (
	"errors"
	"fmt"
	"time"

	"schoollend/internal/calendar"
	"schoollend/internal/form"
	"schoollend/internal/models"
)

type Step string

const (
	StepCatalog  Step = "catalog"
	StepCalendar Step = "calendar"
	StepForm     Step = "form"
	StepQR       Step = "qr"
)

var (
	ErrWrongStep         = errors.New("action not allowed in current step")
	ErrDeviceUnavailable = errors.New("device is not available")
	ErrNoPreviousStep    = errors.New("no previous step")
)

// IDGenerator returns a fresh reservation identifier.
type IDGenerator func() string

// Flow is the state carried between the steps of one wizard session.
type Flow struct {
	SessionID   string              `json:"session_id"`
	Step        Step                `json:"step"`
	Device      *models.Device      `json:"device,omitempty"`
	Selector    calendar.Selector   `json:"selector"`
	Range       *models.DateRange   `json:"range,omitempty"`
	Reservation *models.Reservation `json:"reservation,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func New(sessionID string, now time.Time) *Flow {
	return &Flow{
		SessionID: sessionID,
		Step:      StepCatalog,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (f *Flow) expect(step Step) error {
	if f.Step != step {
		return fmt.Errorf("%w: expected %s, at %s", ErrWrongStep, step, f.Step)
	}
	return nil
}

// SelectDevice moves catalog → calendar carrying a snapshot of the device.
func (f *Flow) SelectDevice(device models.Device) error {
	if err := f.expect(StepCatalog); err != nil {
		return err
	}
	if !device.IsReservable() {
		return fmt.Errorf("%w: %s", ErrDeviceUnavailable, device.Name)
	}

	f.Device = &device
	f.Selector.Reset()
	f.Step = StepCalendar
	return nil
}

func (f *Flow) ClickDate(date time.Time, rules calendar.Rules, today time.Time) (calendar.Outcome, error) {
	if err := f.expect(StepCalendar); err != nil {
		return "", err
	}
	return f.Selector.Click(date, rules, today)
}

func (f *Flow) ResetDates() error {
	if err := f.expect(StepCalendar); err != nil {
		return err
	}
	f.Selector.Reset()
	return nil
}

// ConfirmDates moves calendar → form once a valid period is picked.
func (f *Flow) ConfirmDates(rules calendar.Rules, today time.Time) error {
	if err := f.expect(StepCalendar); err != nil {
		return err
	}
	r, ok := f.Selector.Range()
	if !ok {
		return calendar.ErrRangeIncomplete
	}
	if err := calendar.ValidateRange(r, rules, today); err != nil {
		return err
	}

	f.Range = &r
	f.Step = StepForm
	return nil
}

// Submit moves form → qr, building the reservation from the carried state.
func (f *Flow) Submit(applicant models.Applicant, newID IDGenerator, now time.Time) (*models.Reservation, error) {
	if err := f.expect(StepForm); err != nil {
		return nil, err
	}
	if err := form.CheckSubmission(applicant); err != nil {
		return nil, err
	}

	reservation := &models.Reservation{
		ID:             newID(),
		Device:         *f.Device,
		Range:          *f.Range,
		Applicant:      form.Normalize(applicant),
		PickupLocation: f.Device.Location,
		Status:         models.StatusPending,
		CreatedAt:      now,
	}

	f.Reservation = reservation
	f.Step = StepQR
	return reservation, nil
}

// Back returns one step, dropping only what the step being left acquired.
func (f *Flow) Back() error {
	switch f.Step {
	case StepCalendar:
		f.Device = nil
		f.Selector.Reset()
		f.Step = StepCatalog
	case StepForm:
		f.Range = nil
		f.Step = StepCalendar
	default:
		return fmt.Errorf("%w from %s", ErrNoPreviousStep, f.Step)
	}
	return nil
}

// Reset clears every carried selection and returns to the catalog.
func (f *Flow) Reset() {
	f.Device = nil
	f.Selector.Reset()
	f.Range = nil
	f.Reservation = nil
	f.Step = StepCatalog
}
