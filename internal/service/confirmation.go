package service

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"schoollend/internal/calendar"
	"schoollend/internal/models"
)

// Confirmation is what the qr step shows after a successful submission.
type Confirmation struct {
	ReservationID  string           `json:"reservation_id"`
	Device         string           `json:"device"`
	Start          string           `json:"start"`
	End            string           `json:"end"`
	Days           int              `json:"days"`
	PickupLocation string           `json:"pickup_location"`
	Status         string           `json:"status"`
	Mailto         string           `json:"mailto"`
	QRFilename     string           `json:"qr_filename"`
	Instructions   []string         `json:"instructions"`
	Applicant      models.Applicant `json:"applicant"`
}

var dutchMonths = [...]string{
	"januari", "februari", "maart", "april", "mei", "juni",
	"juli", "augustus", "september", "oktober", "november", "december",
}

// formatDutchDate renders 02 January 2006 with Dutch month names.
func formatDutchDate(t time.Time) string {
	return fmt.Sprintf("%02d %s %d", t.Day(), dutchMonths[t.Month()-1], t.Year())
}

// componentUnescaper undoes QueryEscape where encodeURIComponent keeps the character.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// encodeComponent escapes like encodeURIComponent.
func encodeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}

// MailtoLink builds the "email me my confirmation" link. Nothing is sent.
func MailtoLink(res *models.Reservation) string {
	subject := "Reservering bevestigd: " + res.Device.Name

	var body strings.Builder
	fmt.Fprintf(&body, "Beste %s,\n\n", res.Applicant.FirstName)
	body.WriteString("Uw reservering is bevestigd!\n\n")
	fmt.Fprintf(&body, "Apparaat: %s\n", res.Device.Name)
	fmt.Fprintf(&body, "Periode: %s tot %s\n", formatDutchDate(res.Range.Start), formatDutchDate(res.Range.End))
	fmt.Fprintf(&body, "Ophaallocatie: %s\n\n", res.PickupLocation)
	body.WriteString("Gebruik de QR-code in bijlage om uw apparaat op te halen.\n\n")
	body.WriteString("Met vriendelijke groet,\nSchoolLend Uitleendienst\n")

	return fmt.Sprintf("mailto:%s?subject=%s&body=%s",
		res.Applicant.Email, encodeComponent(subject), encodeComponent(body.String()))
}

func PickupInstructions(location string) []string {
	return []string{
		"Ga naar de uitleenbalie op " + location,
		"Laat uw QR-code scannen door de medewerker",
		"Toon een geldig identiteitsbewijs",
		"Controleer het apparaat bij ontvangst",
		"Bewaar deze QR-code ook voor het terugbrengen",
	}
}

func QRFilename(reservationID string) string {
	return fmt.Sprintf("qr-code-%s.png", reservationID)
}

// placeholderPNG is a 1x1 transparent PNG standing in for the QR image.
var placeholderPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0b, 0x49, 0x44, 0x41, 0x54, 0x78, 0xda, 0x63, 0x60, 0x00, 0x02, 0x00,
	0x00, 0x05, 0x00, 0x01, 0xe9, 0xfa, 0xdc, 0xd8, 0x00, 0x00, 0x00, 0x00,
	0x49, 0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func PlaceholderQR() []byte {
	return append([]byte(nil), placeholderPNG...)
}

func NewConfirmation(res *models.Reservation) Confirmation {
	return Confirmation{
		ReservationID:  res.ID,
		Device:         res.Device.Name,
		Start:          res.Range.Start.Format(models.DateLayout),
		End:            res.Range.End.Format(models.DateLayout),
		Days:           calendar.DurationDays(res.Range.Start, res.Range.End),
		PickupLocation: res.PickupLocation,
		Status:         res.Status.Personal(),
		Mailto:         MailtoLink(res),
		QRFilename:     QRFilename(res.ID),
		Instructions:   PickupInstructions(res.PickupLocation),
		Applicant:      res.Applicant,
	}
}
