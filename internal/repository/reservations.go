package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"schoollend/internal/domain"
	"schoollend/internal/models"
)

// MemoryReservationRepository keeps reservations in insertion order.
// Records are never updated or removed once added.
type MemoryReservationRepository struct {
	mu           sync.RWMutex
	reservations []models.Reservation
	byID         map[string]int
}

func NewMemoryReservationRepository(seed []models.Reservation) (*MemoryReservationRepository, error) {
	r := &MemoryReservationRepository{byID: make(map[string]int, len(seed))}
	for i := range seed {
		if err := r.add(&seed[i]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *MemoryReservationRepository) ListReservations(ctx context.Context, q domain.ReservationQuery) ([]models.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := filter(r.reservations, func(res models.Reservation) bool {
		textOK := containsFold(res.Device.Name, q.Text) ||
			containsFold(res.Applicant.FullName(), q.Text) ||
			containsFold(res.ID, q.Text)
		if !textOK || !matchesExact(res.Status.Admin(), q.Status) {
			return false
		}
		if email := strings.TrimSpace(q.Email); email != "" {
			return strings.EqualFold(res.Applicant.Email, email)
		}
		return true
	})
	for i := range matched {
		matched[i] = cloneReservation(matched[i])
	}
	return matched, nil
}

func (r *MemoryReservationRepository) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.byID[strings.ToUpper(strings.TrimSpace(id))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrReservationNotFound, id)
	}
	res := cloneReservation(r.reservations[idx])
	return &res, nil
}

func (r *MemoryReservationRepository) AddReservation(ctx context.Context, res *models.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.add(res)
}

func (r *MemoryReservationRepository) add(res *models.Reservation) error {
	if res.ID == "" {
		return fmt.Errorf("reservation id is required")
	}
	key := strings.ToUpper(res.ID)
	if _, dup := r.byID[key]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateReservation, res.ID)
	}
	if res.Status == "" {
		res.Status = models.StatusPending
	}
	r.byID[key] = len(r.reservations)
	r.reservations = append(r.reservations, cloneReservation(*res))
	return nil
}

func cloneReservation(res models.Reservation) models.Reservation {
	res.Device = cloneDevice(res.Device)
	return res
}
