package worker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"schoollend/internal/domain"
	"schoollend/internal/events"
	"schoollend/internal/metrics"
	"schoollend/internal/models"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// OverdueSource lists active reservations past their end day.
type OverdueSource interface {
	Overdue(ctx context.Context) ([]models.Reservation, error)
}

// RetryPolicy defines exponential backoff for a failed check.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// NextDelay returns delay for a given attempt (1-based) with clamping.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	initial := r.InitialDelay
	if initial <= 0 {
		initial = time.Second
	}
	factor := r.BackoffFactor
	if factor <= 0 {
		factor = 2
	}

	d := time.Duration(float64(initial) * math.Pow(factor, float64(attempt-1)))
	if r.MaxDelay > 0 && d > r.MaxDelay {
		d = r.MaxDelay
	}
	return d
}

// OverdueMonitor periodically reports overdue loans. It never changes a reservation.
type OverdueMonitor struct {
	source   OverdueSource
	eventBus domain.EventPublisher
	schedule string
	retry    RetryPolicy
	logger   *zerolog.Logger

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewOverdueMonitor(source OverdueSource, eventBus domain.EventPublisher, schedule string, retry RetryPolicy, logger *zerolog.Logger) *OverdueMonitor {
	if schedule == "" {
		schedule = models.DefaultOverdueSchedule
	}
	return &OverdueMonitor{
		source:   source,
		eventBus: eventBus,
		schedule: schedule,
		retry:    retry,
		logger:   logger,
	}
}

// Check counts overdue reservations once, updates the gauge and publishes one event per reservation.
func (m *OverdueMonitor) Check(ctx context.Context) (int, error) {
	overdue, err := m.source.Overdue(ctx)
	if err != nil {
		return 0, fmt.Errorf("overdue check: %w", err)
	}

	metrics.SetOverdue(len(overdue))
	if len(overdue) == 0 {
		m.logger.Debug().Msg("No overdue reservations")
		return 0, nil
	}

	ids := make([]string, 0, len(overdue))
	for i := range overdue {
		res := &overdue[i]
		ids = append(ids, res.ID)
		if m.eventBus == nil {
			continue
		}
		payload := events.NewReservationPayload(res)
		if err := m.eventBus.PublishJSON(events.EventReservationOverdue, payload); err != nil {
			m.logger.Error().Err(err).Str("reservation_id", res.ID).Msg("publish event error")
		}
	}

	m.logger.Warn().Int("count", len(overdue)).Strs("reservation_ids", ids).Msg("Overdue reservations found")
	return len(overdue), nil
}

// run executes Check, retrying per the policy until ctx ends.
func (m *OverdueMonitor) run(ctx context.Context) {
	for attempt := 1; ; attempt++ {
		_, err := m.Check(ctx)
		if err == nil {
			return
		}
		if attempt > m.retry.MaxRetries {
			m.logger.Error().Err(err).Int("attempts", attempt).Msg("overdue check failed")
			return
		}

		delay := m.retry.NextDelay(attempt)
		m.logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("overdue check failed, retrying")
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// Start schedules the checks and runs the first one in the background.
func (m *OverdueMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cron != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New()
	if _, err := c.AddFunc(m.schedule, func() { m.run(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("invalid overdue schedule %q: %w", m.schedule, err)
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(runCtx)
	}()

	c.Start()
	m.cron = c
	m.cancel = cancel
	m.logger.Info().Str("schedule", m.schedule).Msg("Overdue monitor started")
	return nil
}

// Stop cancels pending retries, halts scheduling and waits for running checks.
func (m *OverdueMonitor) Stop() {
	m.mu.Lock()
	c, cancel := m.cron, m.cancel
	m.cron, m.cancel = nil, nil
	m.mu.Unlock()

	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
	m.wg.Wait()
	m.logger.Info().Msg("Overdue monitor stopped")
}
