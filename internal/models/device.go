package models

import "fmt"

type Device struct {
	ID             int64    `yaml:"id" json:"id"`
	Name           string   `yaml:"name" json:"name"`
	Category       string   `yaml:"category" json:"category"`
	Description    string   `yaml:"description" json:"description"`
	Icon           string   `yaml:"icon" json:"icon"`
	Available      int64    `yaml:"available" json:"available"`
	Total          int64    `yaml:"total" json:"total"`
	Location       string   `yaml:"location" json:"location"`
	NextAvailable  string   `yaml:"next_available" json:"next_available,omitempty"`
	Specifications []string `yaml:"specifications" json:"specifications,omitempty"`
}

// IsReservable reports whether at least one unit can be lent out.
func (d *Device) IsReservable() bool {
	return d != nil && d.Available > 0
}

// Badge returns the availability label shown on the catalog card.
func (d *Device) Badge() string {
	switch {
	case d.Available <= 0:
		return BadgeUnavailable
	case d.Available <= LimitedAvailabilityThreshold:
		return BadgeLimited
	default:
		return BadgeAvailable
	}
}

type FAQEntry struct {
	Question string `yaml:"question" json:"question"`
	Answer   string `yaml:"answer" json:"answer"`
}

// Validate checks 0 <= available <= total.
func (d *Device) Validate() error {
	if d.ID == 0 {
		return fmt.Errorf("device '%s' has invalid ID 0", d.Name)
	}
	if d.Total < 0 || d.Available < 0 {
		return fmt.Errorf("device %d has negative stock", d.ID)
	}
	if d.Available > d.Total {
		return fmt.Errorf("device %d has available %d > total %d", d.ID, d.Available, d.Total)
	}
	return nil
}
