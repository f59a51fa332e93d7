package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"schoollend/internal/domain"
	"schoollend/internal/events"
	"schoollend/internal/models"

	"github.com/rs/zerolog"
)

// ReservationService serves the admin dashboard and the personal overview.
// Requested changes are logged and published; stored reservations are never modified.
type ReservationService struct {
	repo     domain.ReservationRepository
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewReservationService(repo domain.ReservationRepository, eventBus domain.EventPublisher, logger *zerolog.Logger) *ReservationService {
	return &ReservationService{
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *ReservationService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *ReservationService) AdminList(ctx context.Context, q domain.ReservationQuery) ([]models.Reservation, error) {
	if st := strings.TrimSpace(q.Status); st != "" && st != models.FilterAll {
		parsed, err := models.ParseStatus(st)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		q.Status = parsed.Admin()
	}
	return s.repo.ListReservations(ctx, q)
}

// Stats counts the dashboard totals over the unfiltered list.
func (s *ReservationService) Stats(ctx context.Context) (models.Stats, error) {
	all, err := s.repo.ListReservations(ctx, domain.ReservationQuery{})
	if err != nil {
		return models.Stats{}, err
	}

	stats := models.Stats{Total: len(all)}
	for i := range all {
		switch all[i].Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusActive:
			stats.Active++
		case models.StatusOverdue:
			stats.Overdue++
		}
	}
	return stats, nil
}

func (s *ReservationService) Get(ctx context.Context, id string) (*models.Reservation, error) {
	return s.repo.GetReservation(ctx, id)
}

func (s *ReservationService) PersonalList(ctx context.Context, email string) ([]models.Reservation, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	return s.repo.ListReservations(ctx, domain.ReservationQuery{Email: email})
}

// Overdue returns active reservations whose end day is before today.
func (s *ReservationService) Overdue(ctx context.Context) ([]models.Reservation, error) {
	all, err := s.repo.ListReservations(ctx, domain.ReservationQuery{Status: string(models.StatusActive)})
	if err != nil {
		return nil, err
	}

	today := s.now()
	out := make([]models.Reservation, 0)
	for i := range all {
		if all[i].IsOverdue(today) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

func (s *ReservationService) RequestStatusChange(ctx context.Context, id string, status models.Status) error {
	if _, err := models.ParseStatus(string(status)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	res, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("reservation_id", res.ID).
		Str("from", res.Status.Admin()).
		Str("to", status.Admin()).
		Msg("status change requested")
	publishReservationEvent(s.eventBus, s.logger, events.EventStatusChangeRequested, res, func(p *events.ReservationEventPayload) {
		p.RequestedStatus = status.Admin()
	})
	return nil
}

func (s *ReservationService) AssignLocker(ctx context.Context, id string, locker string) error {
	locker = strings.TrimSpace(locker)
	if locker == "" {
		return fmt.Errorf("%w: locker number is required", ErrInvalidInput)
	}
	res, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return err
	}

	s.logger.Info().Str("reservation_id", res.ID).Str("locker", locker).Msg("locker assignment requested")
	publishReservationEvent(s.eventBus, s.logger, events.EventLockerAssigned, res, func(p *events.ReservationEventPayload) {
		p.LockerNumber = locker
	})
	return nil
}

// personalAction loads a reservation the applicant may still cancel or extend.
func (s *ReservationService) personalAction(ctx context.Context, id, action string) (*models.Reservation, error) {
	res, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if personal := res.Status.Personal(); personal != models.PersonalConfirmed {
		return nil, fmt.Errorf("%w: cannot %s reservation with status %s", ErrActionNotAllowed, action, personal)
	}
	return res, nil
}

func (s *ReservationService) RequestCancel(ctx context.Context, id string) error {
	res, err := s.personalAction(ctx, id, "cancel")
	if err != nil {
		return err
	}

	s.logger.Info().Str("reservation_id", res.ID).Str("personal_status", res.Status.Personal()).Msg("cancellation requested")
	publishReservationEvent(s.eventBus, s.logger, events.EventCancelRequested, res, nil)
	return nil
}

func (s *ReservationService) RequestExtend(ctx context.Context, id string) error {
	res, err := s.personalAction(ctx, id, "extend")
	if err != nil {
		return err
	}

	s.logger.Info().Str("reservation_id", res.ID).Str("personal_status", res.Status.Personal()).Msg("extension requested")
	publishReservationEvent(s.eventBus, s.logger, events.EventExtendRequested, res, nil)
	return nil
}
