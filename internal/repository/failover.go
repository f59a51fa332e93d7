package repository

import (
	"context"
	"sync/atomic"
	"time"

	"schoollend/internal/domain"
	"schoollend/internal/wizard"

	"github.com/rs/zerolog"
)

const failoverRecheckInterval = time.Minute

// FailoverSessionRepository uses primary until it errors, then serves from
// fallback and retries primary once per recheck interval.
type FailoverSessionRepository struct {
	primary   domain.SessionRepository
	fallback  domain.SessionRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverSessionRepository(primary, fallback domain.SessionRepository, logger *zerolog.Logger) *FailoverSessionRepository {
	return &FailoverSessionRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverSessionRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary session repository failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverSessionRepository) shouldRecheck() bool {
	return time.Since(time.Unix(0, r.lastCheck.Load())) > failoverRecheckInterval
}

func (r *FailoverSessionRepository) GetFlow(ctx context.Context, sessionID string) (*wizard.Flow, error) {
	if !r.isDown.Load() {
		flow, err := r.primary.GetFlow(ctx, sessionID)
		if err == nil {
			if flow == nil {
				return r.promote(ctx, sessionID)
			}
			return flow, nil
		}
		r.markDown(err)
	}

	if r.isDown.Load() && r.shouldRecheck() {
		flow, err := r.primary.GetFlow(ctx, sessionID)
		if err == nil {
			r.isDown.Store(false)
			r.logger.Info().Msg("Primary session repository recovered")
			if flow == nil {
				return r.promote(ctx, sessionID)
			}
			return flow, nil
		}
		r.lastCheck.Store(time.Now().UnixNano())
	}

	return r.fallback.GetFlow(ctx, sessionID)
}

// promote moves a session written to the fallback during an outage back to primary.
func (r *FailoverSessionRepository) promote(ctx context.Context, sessionID string) (*wizard.Flow, error) {
	flow, err := r.fallback.GetFlow(ctx, sessionID)
	if err != nil || flow == nil {
		return flow, err
	}

	if err := r.primary.SetFlow(ctx, flow); err != nil {
		r.markDown(err)
		return flow, nil
	}
	if err := r.fallback.ClearFlow(ctx, sessionID); err != nil {
		r.logger.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to clear promoted session from fallback")
	}
	r.logger.Info().Str("session_id", sessionID).Msg("Session moved back to primary repository")
	return flow, nil
}

func (r *FailoverSessionRepository) SetFlow(ctx context.Context, flow *wizard.Flow) error {
	if !r.isDown.Load() {
		err := r.primary.SetFlow(ctx, flow)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.SetFlow(ctx, flow)
}

func (r *FailoverSessionRepository) ClearFlow(ctx context.Context, sessionID string) error {
	if !r.isDown.Load() {
		err := r.primary.ClearFlow(ctx, sessionID)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.ClearFlow(ctx, sessionID)
}

func (r *FailoverSessionRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.markDown(err)
	}

	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
