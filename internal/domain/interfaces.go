package domain

import (
	"context"
	"time"

	"schoollend/internal/models"
	"schoollend/internal/wizard"
)

// DeviceQuery filters the catalog. Empty or "all" Category disables that filter.
type DeviceQuery struct {
	Text     string
	Category string
}

// ReservationQuery filters the admin list. Empty or "all" Status disables that filter.
type ReservationQuery struct {
	Text   string
	Status string
	Email  string
}

type DeviceRepository interface {
	ListDevices(ctx context.Context, q DeviceQuery) ([]models.Device, error)
	GetDevice(ctx context.Context, id int64) (*models.Device, error)
	Categories(ctx context.Context) ([]string, error)
}

type ReservationRepository interface {
	ListReservations(ctx context.Context, q ReservationQuery) ([]models.Reservation, error)
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	AddReservation(ctx context.Context, r *models.Reservation) error
}

type SessionRepository interface {
	GetFlow(ctx context.Context, sessionID string) (*wizard.Flow, error)
	SetFlow(ctx context.Context, flow *wizard.Flow) error
	ClearFlow(ctx context.Context, sessionID string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type CatalogService interface {
	ListDevices(ctx context.Context, q DeviceQuery) ([]models.Device, error)
	GetDevice(ctx context.Context, id int64) (*models.Device, error)
	Categories(ctx context.Context) ([]string, error)
	FAQ(query string) []models.FAQEntry
}

type WizardService interface {
	Start(ctx context.Context) (*wizard.Flow, error)
	Get(ctx context.Context, sessionID string) (*wizard.Flow, error)
	SelectDevice(ctx context.Context, sessionID string, deviceID int64) (*wizard.Flow, error)
	ClickDate(ctx context.Context, sessionID string, date time.Time) (*wizard.Flow, error)
	ResetDates(ctx context.Context, sessionID string) (*wizard.Flow, error)
	ConfirmDates(ctx context.Context, sessionID string) (*wizard.Flow, error)
	Submit(ctx context.Context, sessionID string, applicant models.Applicant) (*wizard.Flow, error)
	Back(ctx context.Context, sessionID string) (*wizard.Flow, error)
	Reset(ctx context.Context, sessionID string) (*wizard.Flow, error)
}

type ReservationService interface {
	AdminList(ctx context.Context, q ReservationQuery) ([]models.Reservation, error)
	Stats(ctx context.Context) (models.Stats, error)
	Get(ctx context.Context, id string) (*models.Reservation, error)
	PersonalList(ctx context.Context, email string) ([]models.Reservation, error)
	RequestStatusChange(ctx context.Context, id string, status models.Status) error
	AssignLocker(ctx context.Context, id string, locker string) error
	RequestCancel(ctx context.Context, id string) error
	RequestExtend(ctx context.Context, id string) error
}
