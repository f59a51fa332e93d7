package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"schoollend/internal/models"

	"gopkg.in/yaml.v3"
)

// Catalog is the seed data: devices, existing reservations and the help FAQ.
type Catalog struct {
	Devices      []models.Device   `yaml:"devices"`
	Reservations []ReservationSeed `yaml:"reservations"`
	FAQ          []models.FAQEntry `yaml:"faq"`
}

// ReservationSeed references its device by id; the snapshot is resolved on load.
type ReservationSeed struct {
	ID             string           `yaml:"id"`
	DeviceID       int64            `yaml:"device_id"`
	Start          string           `yaml:"start"`
	End            string           `yaml:"end"`
	Applicant      models.Applicant `yaml:"applicant"`
	PickupLocation string           `yaml:"pickup_location"`
	Status         string           `yaml:"status"`
	LockerNumber   string           `yaml:"locker_number"`
	SerialNumber   string           `yaml:"serial_number"`
	CreatedAt      time.Time        `yaml:"created_at"`
}

func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var catalog Catalog
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &catalog); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	if err := ValidateDevices(catalog.Devices); err != nil {
		return nil, fmt.Errorf("catalog validation failed: %w", err)
	}
	return &catalog, nil
}

func ValidateDevices(devices []models.Device) error {
	ids := make(map[int64]bool)
	for i := range devices {
		if err := devices[i].Validate(); err != nil {
			return err
		}
		if ids[devices[i].ID] {
			return fmt.Errorf("duplicate device ID found: %d", devices[i].ID)
		}
		ids[devices[i].ID] = true
	}
	return nil
}

// BuildReservations resolves seeds against the device list.
func (c *Catalog) BuildReservations() ([]models.Reservation, error) {
	byID := make(map[int64]models.Device, len(c.Devices))
	for _, d := range c.Devices {
		byID[d.ID] = d
	}

	out := make([]models.Reservation, 0, len(c.Reservations))
	for _, seed := range c.Reservations {
		device, ok := byID[seed.DeviceID]
		if !ok {
			return nil, fmt.Errorf("reservation %s: unknown device %d", seed.ID, seed.DeviceID)
		}
		start, err := models.ParseDay(seed.Start)
		if err != nil {
			return nil, fmt.Errorf("reservation %s: %w", seed.ID, err)
		}
		end, err := models.ParseDay(seed.End)
		if err != nil {
			return nil, fmt.Errorf("reservation %s: %w", seed.ID, err)
		}
		if end.Before(start) {
			return nil, fmt.Errorf("reservation %s: end before start", seed.ID)
		}

		status := models.StatusPending
		if strings.TrimSpace(seed.Status) != "" {
			status, err = models.ParseStatus(seed.Status)
			if err != nil {
				return nil, fmt.Errorf("reservation %s: %w", seed.ID, err)
			}
		}

		pickup := seed.PickupLocation
		if pickup == "" {
			pickup = device.Location
		}

		out = append(out, models.Reservation{
			ID:             strings.ToUpper(strings.TrimSpace(seed.ID)),
			Device:         device,
			Range:          models.DateRange{Start: start, End: end},
			Applicant:      seed.Applicant,
			PickupLocation: pickup,
			Status:         status,
			LockerNumber:   seed.LockerNumber,
			SerialNumber:   seed.SerialNumber,
			CreatedAt:      seed.CreatedAt,
		})
	}
	return out, nil
}
