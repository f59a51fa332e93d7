package service

import (
	"io"
	"testing"
	"time"

	"schoollend/internal/models"
	"schoollend/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEventBus struct {
	mock.Mock
}

func (m *mockEventBus) PublishJSON(et string, p interface{}) error { return m.Called(et, p).Error(0) }

var testToday = time.Date(2025, 1, 10, 14, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testToday }

func day(offset int) time.Time {
	return models.Day(testToday).AddDate(0, 0, offset)
}

func discardLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func seedDevices() []models.Device {
	return []models.Device{
		{ID: 1, Name: `MacBook Pro 14"`, Category: "Laptops", Description: "Krachtige laptop", Available: 15, Total: 20, Location: "Hoofdgebouw"},
		{ID: 2, Name: "Canon EOS R6", Category: "Camera's", Description: "Professionele camera", Available: 3, Total: 5, Location: "Media Lab"},
		{ID: 4, Name: "Bosch Boormachine", Category: "Gereedschap", Description: "Technische projecten", Available: 0, Total: 4, Location: "Techniek Lab"},
	}
}

func seedReservations() []models.Reservation {
	devices := seedDevices()
	return []models.Reservation{
		{
			ID:        "RES-001",
			Device:    devices[0],
			Range:     models.DateRange{Start: day(0), End: day(3)},
			Applicant: models.Applicant{FirstName: "Jan", LastName: "de Vries", Email: "jan.devries@student.school.nl"},
			Status:    models.StatusPending,
		},
		{
			ID:           "RES-002",
			Device:       devices[1],
			Range:        models.DateRange{Start: day(0), End: day(7)},
			Applicant:    models.Applicant{FirstName: "Maria", LastName: "Bakker", Email: "maria.bakker@school.nl"},
			Status:       models.StatusReady,
			LockerNumber: "L-15",
		},
		{
			ID:        "RES-003",
			Device:    devices[0],
			Range:     models.DateRange{Start: day(-5), End: day(-1)},
			Applicant: models.Applicant{FirstName: "Ahmed", LastName: "Hassan", Email: "jan.devries@student.school.nl"},
			Status:    models.StatusActive,
		},
		{
			ID:        "RES-004",
			Device:    devices[1],
			Range:     models.DateRange{Start: day(-2), End: day(1)},
			Applicant: models.Applicant{FirstName: "Sara", LastName: "Jansen", Email: "sara@school.nl"},
			Status:    models.StatusOverdue,
		},
	}
}

func newDeviceRepo(t *testing.T) *repository.MemoryDeviceRepository {
	t.Helper()
	repo, err := repository.NewMemoryDeviceRepository(seedDevices())
	require.NoError(t, err)
	return repo
}

func newReservationRepo(t *testing.T) *repository.MemoryReservationRepository {
	t.Helper()
	repo, err := repository.NewMemoryReservationRepository(seedReservations())
	require.NoError(t, err)
	return repo
}

func validStudent() models.Applicant {
	return models.Applicant{
		FirstName:     "Jan",
		LastName:      "de Vries",
		Email:         "jan.devries@student.school.nl",
		UserType:      models.UserTypeStudent,
		StudentID:     "123456",
		Class:         "4A",
		TermsAccepted: true,
	}
}

func validStudentWithoutTerms() models.Applicant {
	a := validStudent()
	a.TermsAccepted = false
	return a
}
