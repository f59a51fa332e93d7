package wizard

import (
	"testing"
	"time"

	"schoollend/internal/calendar"
	"schoollend/internal/form"
	"schoollend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

func macbook() models.Device {
	return models.Device{ID: 1, Name: `MacBook Pro 14"`, Category: "Laptops", Available: 15, Total: 20, Location: "Hoofdgebouw"}
}

func applicant() models.Applicant {
	return models.Applicant{
		FirstName:     "Jan",
		LastName:      "de Vries",
		Email:         "jan@student.school.nl",
		UserType:      models.UserTypeStudent,
		StudentID:     "S1",
		Class:         "4A",
		TermsAccepted: true,
	}
}

func fixedID() string { return "RES-TEST" }

func toForm(t *testing.T, f *Flow) {
	t.Helper()
	require.NoError(t, f.SelectDevice(macbook()))
	_, err := f.ClickDate(now.AddDate(0, 0, 1), calendar.Rules{}, now)
	require.NoError(t, err)
	_, err = f.ClickDate(now.AddDate(0, 0, 3), calendar.Rules{}, now)
	require.NoError(t, err)
	require.NoError(t, f.ConfirmDates(calendar.Rules{}, now))
}

func TestFlow_HappyPath(t *testing.T) {
	f := New("s1", now)
	assert.Equal(t, StepCatalog, f.Step)

	toForm(t, f)
	assert.Equal(t, StepForm, f.Step)
	require.NotNil(t, f.Range)

	res, err := f.Submit(applicant(), fixedID, now)
	require.NoError(t, err)
	assert.Equal(t, StepQR, f.Step)
	assert.Equal(t, "RES-TEST", res.ID)
	assert.Equal(t, "Hoofdgebouw", res.PickupLocation)
	assert.Equal(t, models.StatusPending, res.Status)
	assert.Equal(t, models.Day(now.AddDate(0, 0, 1)), res.Range.Start)
	assert.Equal(t, models.Day(now.AddDate(0, 0, 3)), res.Range.End)
	assert.Same(t, res, f.Reservation)
}

func TestFlow_UnavailableDeviceBlocked(t *testing.T) {
	f := New("s1", now)
	d := macbook()
	d.Available = 0

	err := f.SelectDevice(d)
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
	assert.Equal(t, StepCatalog, f.Step)
	assert.Nil(t, f.Device)
}

func TestFlow_WrongStep(t *testing.T) {
	f := New("s1", now)

	_, err := f.ClickDate(now, calendar.Rules{}, now)
	assert.ErrorIs(t, err, ErrWrongStep)
	assert.ErrorIs(t, f.ConfirmDates(calendar.Rules{}, now), ErrWrongStep)
	_, err = f.Submit(applicant(), fixedID, now)
	assert.ErrorIs(t, err, ErrWrongStep)

	require.NoError(t, f.SelectDevice(macbook()))
	assert.ErrorIs(t, f.SelectDevice(macbook()), ErrWrongStep)
}

func TestFlow_ConfirmNeedsCompleteRange(t *testing.T) {
	f := New("s1", now)
	require.NoError(t, f.SelectDevice(macbook()))
	_, err := f.ClickDate(now, calendar.Rules{}, now)
	require.NoError(t, err)

	assert.ErrorIs(t, f.ConfirmDates(calendar.Rules{}, now), calendar.ErrRangeIncomplete)
	assert.Equal(t, StepCalendar, f.Step)
}

func TestFlow_ConfirmRevalidatesRules(t *testing.T) {
	f := New("s1", now)
	require.NoError(t, f.SelectDevice(macbook()))
	_, _ = f.ClickDate(now.AddDate(0, 0, 1), calendar.Rules{}, now)
	_, _ = f.ClickDate(now.AddDate(0, 0, 2), calendar.Rules{}, now)

	rules := calendar.Rules{Unavailable: []time.Time{now.AddDate(0, 0, 2)}}
	assert.ErrorIs(t, f.ConfirmDates(rules, now), calendar.ErrDateUnavailable)
	assert.Equal(t, StepCalendar, f.Step)
}

func TestFlow_SubmitGates(t *testing.T) {
	f := New("s1", now)
	toForm(t, f)

	a := applicant()
	a.TermsAccepted = false
	_, err := f.Submit(a, fixedID, now)
	assert.ErrorIs(t, err, form.ErrTermsNotAccepted)
	assert.Equal(t, StepForm, f.Step)

	a = applicant()
	a.Class = ""
	_, err = f.Submit(a, fixedID, now)
	assert.ErrorIs(t, err, form.ErrIncompleteApplicant)
	assert.Nil(t, f.Reservation)
}

func TestFlow_Back(t *testing.T) {
	f := New("s1", now)
	assert.ErrorIs(t, f.Back(), ErrNoPreviousStep)

	toForm(t, f)
	require.NoError(t, f.Back())
	assert.Equal(t, StepCalendar, f.Step)
	assert.Nil(t, f.Range)
	assert.NotNil(t, f.Device)
	assert.Equal(t, 3, f.Selector.Duration())

	require.NoError(t, f.Back())
	assert.Equal(t, StepCatalog, f.Step)
	assert.Nil(t, f.Device)
	assert.Nil(t, f.Selector.Start)
}

func TestFlow_QRIsTerminalUntilReset(t *testing.T) {
	f := New("s1", now)
	toForm(t, f)
	_, err := f.Submit(applicant(), fixedID, now)
	require.NoError(t, err)

	assert.ErrorIs(t, f.Back(), ErrNoPreviousStep)
	assert.ErrorIs(t, f.SelectDevice(macbook()), ErrWrongStep)

	f.Reset()
	assert.Equal(t, StepCatalog, f.Step)
	assert.Nil(t, f.Device)
	assert.Nil(t, f.Range)
	assert.Nil(t, f.Reservation)
	assert.Nil(t, f.Selector.Start)
}
