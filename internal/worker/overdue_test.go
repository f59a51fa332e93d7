package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"schoollend/internal/events"
	"schoollend/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	reservations []models.Reservation
	failures     int32
	calls        atomic.Int32
}

func (s *stubSource) Overdue(ctx context.Context) ([]models.Reservation, error) {
	n := s.calls.Add(1)
	if n <= s.failures {
		return nil, errors.New("source unavailable")
	}
	return s.reservations, nil
}

func TestRetryPolicyNextDelay(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Second, BackoffFactor: 2, MaxDelay: 5 * time.Second}

	assert.Equal(t, time.Second, policy.NextDelay(1))
	assert.Equal(t, 2*time.Second, policy.NextDelay(2))
	assert.Equal(t, 5*time.Second, policy.NextDelay(5))
	assert.Equal(t, time.Second, RetryPolicy{}.NextDelay(0))
}

func TestOverdueMonitor_Check(t *testing.T) {
	bus := events.NewEventBus()
	var published []string
	bus.Subscribe(events.EventReservationOverdue, func(e *events.Event) error {
		published = append(published, string(e.Payload))
		return nil
	})

	source := &stubSource{reservations: []models.Reservation{
		{ID: "RES-003", Status: models.StatusActive},
		{ID: "RES-007", Status: models.StatusActive},
	}}
	logger := zerolog.Nop()
	m := NewOverdueMonitor(source, bus, "", RetryPolicy{}, &logger)

	n, err := m.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, published, 2)
	assert.Contains(t, published[0], `"reservation_id":"RES-003"`)
	assert.Equal(t, models.StatusActive, source.reservations[0].Status)
}

func TestOverdueMonitor_RetriesFailedCheck(t *testing.T) {
	source := &stubSource{failures: 2}
	logger := zerolog.Nop()
	m := NewOverdueMonitor(source, nil, "", RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond}, &logger)

	m.run(context.Background())
	assert.Equal(t, int32(3), source.calls.Load())
}

func TestOverdueMonitor_GivesUp(t *testing.T) {
	source := &stubSource{failures: 10}
	logger := zerolog.Nop()
	m := NewOverdueMonitor(source, nil, "", RetryPolicy{MaxRetries: 1, InitialDelay: time.Millisecond}, &logger)

	m.run(context.Background())
	assert.Equal(t, int32(2), source.calls.Load())
}

func TestOverdueMonitor_StartStop(t *testing.T) {
	source := &stubSource{}
	logger := zerolog.Nop()

	bad := NewOverdueMonitor(source, nil, "not a schedule", RetryPolicy{}, &logger)
	assert.Error(t, bad.Start(context.Background()))

	m := NewOverdueMonitor(source, nil, "@every 1h", RetryPolicy{}, &logger)
	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Start(context.Background()))
	assert.Eventually(t, func() bool { return source.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	m.Stop()
	m.Stop()
}

func TestOverdueMonitor_StartDoesNotWaitForRetries(t *testing.T) {
	source := &stubSource{failures: 100}
	logger := zerolog.Nop()
	m := NewOverdueMonitor(source, nil, "@every 1h", RetryPolicy{MaxRetries: 3, InitialDelay: time.Minute}, &logger)

	started := time.Now()
	require.NoError(t, m.Start(context.Background()))
	assert.Less(t, time.Since(started), time.Second)
	assert.Eventually(t, func() bool { return source.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	// Stop прерывает ожидание повтора
	stopped := make(chan struct{})
	go func() {
		m.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on pending retry")
	}
	assert.Equal(t, int32(1), source.calls.Load())
}
