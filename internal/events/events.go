package events

import (
	"encoding/json"
	"sync"
	"time"

	"schoollend/internal/models"
)

const (
	EventReservationCreated    = "reservation_created"
	EventStatusChangeRequested = "reservation_status_change_requested"
	EventLockerAssigned        = "reservation_locker_assigned"
	EventCancelRequested       = "reservation_cancel_requested"
	EventExtendRequested       = "reservation_extend_requested"
	EventReservationOverdue    = "reservation_overdue"
	EventScanApproved          = "scan_approved"
	EventScanRejected          = "scan_rejected"
)

// AllTypes lists every event type the service publishes.
func AllTypes() []string {
	return []string{
		EventReservationCreated,
		EventStatusChangeRequested,
		EventLockerAssigned,
		EventCancelRequested,
		EventExtendRequested,
		EventReservationOverdue,
		EventScanApproved,
		EventScanRejected,
	}
}

// ReservationEventPayload describes the minimal reservation snapshot for event consumers.
type ReservationEventPayload struct {
	ReservationID   string    `json:"reservation_id"`
	DeviceID        int64     `json:"device_id"`
	DeviceName      string    `json:"device_name"`
	ApplicantName   string    `json:"applicant_name"`
	ApplicantEmail  string    `json:"applicant_email"`
	Status          string    `json:"status"`
	RequestedStatus string    `json:"requested_status,omitempty"`
	LockerNumber    string    `json:"locker_number,omitempty"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
}

// NewReservationPayload snapshots res; callers fill RequestedStatus or LockerNumber when relevant.
func NewReservationPayload(res *models.Reservation) ReservationEventPayload {
	return ReservationEventPayload{
		ReservationID:  res.ID,
		DeviceID:       res.Device.ID,
		DeviceName:     res.Device.Name,
		ApplicantName:  res.Applicant.FullName(),
		ApplicantEmail: res.Applicant.Email,
		Status:         res.Status.Admin(),
		LockerNumber:   res.LockerNumber,
		Start:          res.Range.Start,
		End:            res.Range.End,
	}
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers the handler for every published type.
func (b *EventBus) SubscribeAll(handler EventHandler) {
	for _, t := range AllTypes() {
		b.Subscribe(t, handler)
	}
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
