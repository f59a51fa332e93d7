// Package scanner simulates the pickup desk QR scanner.
package scanner

import (
	"context"
	"errors"
	"strings"
	"time"

	"schoollend/internal/domain"
	"schoollend/internal/events"
	"schoollend/internal/metrics"
	"schoollend/internal/models"
	"schoollend/internal/repository"

	"github.com/rs/zerolog"
)

var (
	ErrEmptyCode   = errors.New("reservation code is empty")
	ErrScanTimeout = errors.New("scan timed out")
)

type Config struct {
	Delay    time.Duration
	Timeout  time.Duration
	MockCode string
}

// Result is a successful lookup.
type Result struct {
	Code        string              `json:"code"`
	Reservation *models.Reservation `json:"reservation"`
	ScannedAt   time.Time           `json:"scanned_at"`
}

type Scanner struct {
	repo     domain.ReservationRepository
	eventBus domain.EventPublisher
	cfg      Config
	logger   *zerolog.Logger
}

func New(repo domain.ReservationRepository, eventBus domain.EventPublisher, cfg Config, logger *zerolog.Logger) *Scanner {
	if cfg.Delay <= 0 {
		cfg.Delay = models.DefaultScanDelay * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = models.DefaultScanTimeout * time.Millisecond
	}
	if cfg.MockCode == "" {
		cfg.MockCode = models.DefaultScanMockCode
	}
	return &Scanner{
		repo:     repo,
		eventBus: eventBus,
		cfg:      cfg,
		logger:   logger,
	}
}

// Scan waits for the simulated camera and then looks up the mock code.
// It stops early when ctx is cancelled and fails with ErrScanTimeout after cfg.Timeout.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	timer := time.NewTimer(s.cfg.Delay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			metrics.IncScan(metrics.ScanTimeout)
			s.logger.Warn().Dur("timeout", s.cfg.Timeout).Msg("scan timed out")
			return nil, ErrScanTimeout
		}
		metrics.IncScan(metrics.ScanCanceled)
		return nil, ctx.Err()
	}

	return s.Lookup(ctx, s.cfg.MockCode)
}

// Lookup resolves a manually entered reservation code.
func (s *Scanner) Lookup(ctx context.Context, code string) (*Result, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrEmptyCode
	}

	res, err := s.repo.GetReservation(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			metrics.IncScan(metrics.ScanNotFound)
			s.logger.Info().Str("code", code).Msg("scanned code not found")
		}
		return nil, err
	}

	metrics.IncScan(metrics.ScanFound)
	s.logger.Info().Str("code", code).Str("reservation_id", res.ID).Msg("reservation scanned")
	return &Result{Code: code, Reservation: res, ScannedAt: time.Now()}, nil
}

func (s *Scanner) Approve(ctx context.Context, code string) error {
	return s.decide(ctx, code, events.EventScanApproved, metrics.ScanApproved)
}

func (s *Scanner) Reject(ctx context.Context, code string) error {
	return s.decide(ctx, code, events.EventScanRejected, metrics.ScanRejected)
}

// decide logs the desk decision; the reservation itself is left as is.
func (s *Scanner) decide(ctx context.Context, code, eventType, outcome string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrEmptyCode
	}
	res, err := s.repo.GetReservation(ctx, code)
	if err != nil {
		return err
	}

	metrics.IncScan(outcome)
	s.logger.Info().Str("reservation_id", res.ID).Str("decision", outcome).Msg("scan decision")

	if s.eventBus == nil {
		return nil
	}
	payload := events.NewReservationPayload(res)
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("publish event error")
	}
	return nil
}
