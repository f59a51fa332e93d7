package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"schoollend/internal/calendar"
	"schoollend/internal/domain"
	"schoollend/internal/events"
	"schoollend/internal/metrics"
	"schoollend/internal/models"
	"schoollend/internal/repository"
	"schoollend/internal/wizard"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	sessionLockStripes  = 64
	maxReservationIDTry = 5
)

type WizardConfig struct {
	Rules        calendar.Rules
	SubmitLimit  int
	SubmitWindow time.Duration
}

type WizardService struct {
	sessions     domain.SessionRepository
	devices      domain.DeviceRepository
	reservations domain.ReservationRepository
	eventBus     domain.EventPublisher
	cfg          WizardConfig
	logger       *zerolog.Logger
	now          func() time.Time
	newID        wizard.IDGenerator
	locks        [sessionLockStripes]sync.Mutex
}

func NewWizardService(
	sessions domain.SessionRepository,
	devices domain.DeviceRepository,
	reservations domain.ReservationRepository,
	eventBus domain.EventPublisher,
	cfg WizardConfig,
	logger *zerolog.Logger,
) *WizardService {
	if cfg.SubmitLimit <= 0 {
		cfg.SubmitLimit = models.DefaultSubmitRateLimit
	}
	if cfg.SubmitWindow <= 0 {
		cfg.SubmitWindow = models.DefaultSubmitRateWindow * time.Second
	}
	return &WizardService{
		sessions:     sessions,
		devices:      devices,
		reservations: reservations,
		eventBus:     eventBus,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
		newID:        NewReservationID,
	}
}

// SetClock overrides the time source; used by tests and the CLI.
func (s *WizardService) SetClock(now func() time.Time) {
	s.now = now
}

// NewReservationID returns RES- followed by 12 uppercase hex characters.
func NewReservationID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return models.ReservationIDPrefix + strings.ToUpper(raw[:12])
}

func (s *WizardService) lockFor(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return &s.locks[h.Sum32()%sessionLockStripes]
}

// update loads the flow, applies fn and saves the result under the session lock.
// A failing fn leaves the stored flow untouched.
func (s *WizardService) update(ctx context.Context, sessionID string, fn func(*wizard.Flow) error) (*wizard.Flow, error) {
	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	flow, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(flow); err != nil {
		return nil, err
	}

	flow.UpdatedAt = s.now()
	if err := s.sessions.SetFlow(ctx, flow); err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to save wizard session")
		return nil, err
	}
	return flow, nil
}

func (s *WizardService) load(ctx context.Context, sessionID string) (*wizard.Flow, error) {
	flow, err := s.sessions.GetFlow(ctx, sessionID)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to load wizard session")
		return nil, err
	}
	if flow == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return flow, nil
}

func (s *WizardService) rules() calendar.Rules {
	return s.cfg.Rules
}

func (s *WizardService) Start(ctx context.Context) (*wizard.Flow, error) {
	flow := wizard.New(uuid.NewString(), s.now())
	if err := s.sessions.SetFlow(ctx, flow); err != nil {
		s.logger.Error().Err(err).Msg("failed to create wizard session")
		return nil, err
	}
	s.logger.Debug().Str("session_id", flow.SessionID).Msg("wizard session started")
	return flow, nil
}

func (s *WizardService) Get(ctx context.Context, sessionID string) (*wizard.Flow, error) {
	return s.load(ctx, sessionID)
}

func (s *WizardService) SelectDevice(ctx context.Context, sessionID string, deviceID int64) (*wizard.Flow, error) {
	return s.update(ctx, sessionID, func(f *wizard.Flow) error {
		device, err := s.devices.GetDevice(ctx, deviceID)
		if err != nil {
			return err
		}
		return f.SelectDevice(*device)
	})
}

func (s *WizardService) ClickDate(ctx context.Context, sessionID string, date time.Time) (*wizard.Flow, error) {
	return s.update(ctx, sessionID, func(f *wizard.Flow) error {
		outcome, err := f.ClickDate(date, s.rules(), s.now())
		if err != nil {
			return err
		}
		s.logger.Debug().
			Str("session_id", sessionID).
			Str("date", models.Day(date).Format(models.DateLayout)).
			Str("outcome", string(outcome)).
			Msg("calendar click")
		return nil
	})
}

func (s *WizardService) ResetDates(ctx context.Context, sessionID string) (*wizard.Flow, error) {
	return s.update(ctx, sessionID, func(f *wizard.Flow) error {
		return f.ResetDates()
	})
}

func (s *WizardService) ConfirmDates(ctx context.Context, sessionID string) (*wizard.Flow, error) {
	return s.update(ctx, sessionID, func(f *wizard.Flow) error {
		return f.ConfirmDates(s.rules(), s.now())
	})
}

// Submit turns the form step into a reservation. Attempts are rate limited per session.
func (s *WizardService) Submit(ctx context.Context, sessionID string, applicant models.Applicant) (*wizard.Flow, error) {
	return s.update(ctx, sessionID, func(f *wizard.Flow) error {
		allowed, err := s.sessions.CheckRateLimit(ctx, "submit:"+sessionID, s.cfg.SubmitLimit, s.cfg.SubmitWindow)
		if err != nil {
			return err
		}
		if !allowed {
			s.logger.Warn().Str("session_id", sessionID).Msg("submit rate limit exceeded")
			return ErrRateLimited
		}

		now := s.now()
		if f.Step == wizard.StepForm && f.Range != nil {
			// период мог устареть, пока заполнялась форма
			if err := calendar.ValidateRange(*f.Range, s.rules(), now); err != nil {
				return err
			}
		}

		res, err := f.Submit(applicant, s.newID, now)
		if err != nil {
			return err
		}

		for attempt := 1; ; attempt++ {
			err = s.reservations.AddReservation(ctx, res)
			if !errors.Is(err, repository.ErrDuplicateReservation) || attempt >= maxReservationIDTry {
				break
			}
			res.ID = s.newID()
		}
		if err != nil {
			s.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to store reservation")
			return err
		}

		metrics.IncReservationCreated(res.Device.Category)
		s.publish(events.EventReservationCreated, res, nil)
		s.logger.Info().
			Str("reservation_id", res.ID).
			Int64("device_id", res.Device.ID).
			Str("start", res.Range.Start.Format(models.DateLayout)).
			Str("end", res.Range.End.Format(models.DateLayout)).
			Msg("reservation created")
		return nil
	})
}

func (s *WizardService) Back(ctx context.Context, sessionID string) (*wizard.Flow, error) {
	return s.update(ctx, sessionID, func(f *wizard.Flow) error {
		return f.Back()
	})
}

func (s *WizardService) Reset(ctx context.Context, sessionID string) (*wizard.Flow, error) {
	return s.update(ctx, sessionID, func(f *wizard.Flow) error {
		f.Reset()
		return nil
	})
}

func (s *WizardService) publish(eventType string, res *models.Reservation, decorate func(*events.ReservationEventPayload)) {
	publishReservationEvent(s.eventBus, s.logger, eventType, res, decorate)
}

func publishReservationEvent(bus domain.EventPublisher, logger *zerolog.Logger, eventType string, res *models.Reservation, decorate func(*events.ReservationEventPayload)) {
	if bus == nil {
		return
	}

	payload := events.NewReservationPayload(res)
	if decorate != nil {
		decorate(&payload)
	}

	if err := bus.PublishJSON(eventType, payload); err != nil {
		logger.Error().Err(err).Str("event_type", eventType).Str("reservation_id", res.ID).Msg("publish event error")
	}
}
