package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"schoollend/internal/calendar"
	"schoollend/internal/config"
	"schoollend/internal/events"
	"schoollend/internal/models"
	"schoollend/internal/repository"
	"schoollend/internal/scanner"
	"schoollend/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var testToday = time.Date(2025, 1, 10, 14, 30, 0, 0, time.UTC)

func testDay(offset int) time.Time {
	return models.Day(testToday).AddDate(0, 0, offset)
}

type testEnv struct {
	server  *HTTPServer
	ts      *httptest.Server
	bus     *events.EventBus
	scanner *scanner.Scanner
	logger  *zerolog.Logger
}

func testDevices() []models.Device {
	return []models.Device{
		{ID: 1, Name: `MacBook Pro 14"`, Category: "Laptops", Description: "Krachtige laptop voor programmeren", Available: 15, Total: 20, Location: "Hoofdgebouw"},
		{ID: 2, Name: "Canon EOS R6", Category: "Camera's", Description: "Professionele camera", Available: 2, Total: 5, Location: "Media Lab"},
		{ID: 4, Name: "Bosch Boormachine", Category: "Gereedschap", Description: "Technische projecten", Available: 0, Total: 4, Location: "Techniek Lab"},
	}
}

func testReservations() []models.Reservation {
	devices := testDevices()
	return []models.Reservation{
		{
			ID:             "RES-001",
			Device:         devices[0],
			Range:          models.DateRange{Start: testDay(5), End: testDay(8)},
			Applicant:      models.Applicant{FirstName: "Jan", LastName: "de Vries", Email: "jan.devries@student.school.nl", UserType: models.UserTypeStudent, Class: "4A"},
			PickupLocation: "Hoofdgebouw",
			Status:         models.StatusPending,
		},
		{
			ID:             "RES-002",
			Device:         devices[1],
			Range:          models.DateRange{Start: testDay(2), End: testDay(9)},
			Applicant:      models.Applicant{FirstName: "Maria", LastName: "Bakker", Email: "maria.bakker@school.nl", UserType: models.UserTypeStaff},
			PickupLocation: "Media Lab",
			Status:         models.StatusReady,
			LockerNumber:   "L-15",
		},
		{
			ID:             "RES-003",
			Device:         devices[0],
			Range:          models.DateRange{Start: testDay(-4), End: testDay(-1)},
			Applicant:      models.Applicant{FirstName: "Ahmed", LastName: "Hassan", Email: "ahmed.hassan@student.school.nl"},
			PickupLocation: "Hoofdgebouw",
			Status:         models.StatusActive,
			LockerNumber:   "L-03",
		},
	}
}

func newTestEnv(t *testing.T, cfg config.APIConfig) *testEnv {
	t.Helper()

	logger := zerolog.New(io.Discard)
	devices, err := repository.NewMemoryDeviceRepository(testDevices())
	require.NoError(t, err)
	reservations, err := repository.NewMemoryReservationRepository(testReservations())
	require.NoError(t, err)
	sessions := repository.NewMemorySessionRepository(time.Hour)
	bus := events.NewEventBus()
	clock := func() time.Time { return testToday }

	wizardSvc := service.NewWizardService(sessions, devices, reservations, bus, service.WizardConfig{
		Rules: calendar.Rules{MaxDays: 14, Unavailable: []time.Time{testDay(10)}},
	}, &logger)
	wizardSvc.SetClock(clock)

	reservationSvc := service.NewReservationService(reservations, bus, &logger)
	reservationSvc.SetClock(clock)

	scan := scanner.New(reservations, bus, scanner.Config{
		Delay:    time.Millisecond,
		Timeout:  time.Second,
		MockCode: "RES-002",
	}, &logger)

	faq := []models.FAQEntry{
		{Question: "Hoe reserveer ik een apparaat?", Answer: "Ga naar de catalogus en kies een apparaat."},
		{Question: "Hoe lang mag ik lenen?", Answer: "Maximaal 14 dagen."},
	}

	srv := NewHTTPServer(cfg, Services{
		Catalog:      service.NewCatalogService(devices, faq, &logger),
		Wizard:       wizardSvc,
		Reservations: reservationSvc,
		Scanner:      scan,
		Now:          clock,
	}, &logger)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{server: srv, ts: ts, bus: bus, scanner: scan, logger: &logger}
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(e.ts.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	resp, err := http.Post(e.ts.URL+path, "application/json", reader)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}
