package repository

import (
	"context"
	"sync"
	"time"

	"schoollend/internal/wizard"
)

type sessionEntry struct {
	flow      *wizard.Flow
	expiresAt time.Time
}

type MemorySessionRepository struct {
	sessions   sync.Map
	rateLimits sync.Map
	rateMu     sync.Mutex
	ttl        time.Duration
}

func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	return &MemorySessionRepository{
		ttl: ttl,
	}
}

func (r *MemorySessionRepository) GetFlow(ctx context.Context, sessionID string) (*wizard.Flow, error) {
	val, ok := r.sessions.Load(sessionID)
	if !ok {
		return nil, nil
	}
	entry := val.(*sessionEntry)
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		r.sessions.Delete(sessionID)
		return nil, nil
	}
	return copyFlow(entry.flow), nil
}

func (r *MemorySessionRepository) SetFlow(ctx context.Context, flow *wizard.Flow) error {
	entry := &sessionEntry{flow: copyFlow(flow)}
	if r.ttl > 0 {
		entry.expiresAt = time.Now().Add(r.ttl)
	}
	r.sessions.Store(flow.SessionID, entry)
	return nil
}

func (r *MemorySessionRepository) ClearFlow(ctx context.Context, sessionID string) error {
	r.sessions.Delete(sessionID)
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemorySessionRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.rateMu.Lock()
	defer r.rateMu.Unlock()

	now := time.Now()
	val, ok := r.rateLimits.Load(key)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(key, entry)
	return entry.count <= limit, nil
}

// copyFlow detaches the stored flow from the caller's pointers.
func copyFlow(f *wizard.Flow) *wizard.Flow {
	c := *f
	if f.Device != nil {
		d := cloneDevice(*f.Device)
		c.Device = &d
	}
	if f.Range != nil {
		rg := *f.Range
		c.Range = &rg
	}
	if f.Reservation != nil {
		res := cloneReservation(*f.Reservation)
		c.Reservation = &res
	}
	if f.Selector.Start != nil {
		s := *f.Selector.Start
		c.Selector.Start = &s
	}
	if f.Selector.End != nil {
		e := *f.Selector.End
		c.Selector.End = &e
	}
	return &c
}
