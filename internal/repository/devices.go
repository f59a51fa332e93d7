package repository

import (
	"context"
	"fmt"
	"sync"

	"schoollend/internal/domain"
	"schoollend/internal/models"
)

// MemoryDeviceRepository serves a fixed catalog from process memory.
type MemoryDeviceRepository struct {
	mu      sync.RWMutex
	devices []models.Device
	byID    map[int64]int
}

func NewMemoryDeviceRepository(devices []models.Device) (*MemoryDeviceRepository, error) {
	r := &MemoryDeviceRepository{
		devices: make([]models.Device, 0, len(devices)),
		byID:    make(map[int64]int, len(devices)),
	}
	for i := range devices {
		d := devices[i]
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate device ID found: %d", d.ID)
		}
		r.byID[d.ID] = len(r.devices)
		r.devices = append(r.devices, cloneDevice(d))
	}
	return r, nil
}

func (r *MemoryDeviceRepository) ListDevices(ctx context.Context, q domain.DeviceQuery) ([]models.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := filter(r.devices, func(d models.Device) bool {
		textOK := containsFold(d.Name, q.Text) || containsFold(d.Description, q.Text)
		return textOK && matchesExact(d.Category, q.Category)
	})
	for i := range matched {
		matched[i] = cloneDevice(matched[i])
	}
	return matched, nil
}

func (r *MemoryDeviceRepository) GetDevice(ctx context.Context, id int64) (*models.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrDeviceNotFound, id)
	}
	d := cloneDevice(r.devices[idx])
	return &d, nil
}

// Categories returns the distinct categories in catalog order.
func (r *MemoryDeviceRepository) Categories(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for _, d := range r.devices {
		if d.Category == "" || seen[d.Category] {
			continue
		}
		seen[d.Category] = true
		out = append(out, d.Category)
	}
	return out, nil
}

func cloneDevice(d models.Device) models.Device {
	d.Specifications = append([]string(nil), d.Specifications...)
	return d
}
