package service

import (
	"bytes"
	"image/png"
	"net/url"
	"strings"
	"testing"
	"time"

	"schoollend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func confirmedReservation() *models.Reservation {
	return &models.Reservation{
		ID:     "RES-0A1B2C3D4E5F",
		Device: models.Device{Name: `MacBook Pro 14"`},
		Range: models.DateRange{
			Start: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC),
		},
		Applicant:      models.Applicant{FirstName: "Jan", Email: "jan@student.school.nl"},
		PickupLocation: "Hoofdgebouw",
		Status:         models.StatusPending,
	}
}

func TestMailtoLink(t *testing.T) {
	link := MailtoLink(confirmedReservation())

	require.True(t, strings.HasPrefix(link, "mailto:jan@student.school.nl?subject="))
	assert.NotContains(t, link, " ")
	assert.NotContains(t, link, "+")
	assert.Contains(t, link, "subject=Reservering%20bevestigd%3A%20MacBook%20Pro%2014%22")

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	q := parsed.Query()
	assert.Equal(t, `Reservering bevestigd: MacBook Pro 14"`, q.Get("subject"))

	body := q.Get("body")
	assert.Contains(t, body, "Beste Jan,")
	assert.Contains(t, body, `Apparaat: MacBook Pro 14"`)
	assert.Contains(t, body, "Periode: 15 januari 2025 tot 20 januari 2025")
	assert.Contains(t, body, "Ophaallocatie: Hoofdgebouw")
}

func TestEncodeComponent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Reservering bevestigd!", "Reservering%20bevestigd!"},
		{"Camera (Canon) 'R6' *nieuw*", "Camera%20(Canon)%20'R6'%20*nieuw*"},
		{"a+b=c&d", "a%2Bb%3Dc%26d"},
		{"100% ~klaar-_.", "100%25%20~klaar-_."},
		{"Café", "Caf%C3%A9"},
	}

	for _, tt := range tests {
		got := encodeComponent(tt.in)
		assert.Equal(t, tt.want, got, tt.in)

		decoded, err := url.QueryUnescape(got)
		require.NoError(t, err)
		assert.Equal(t, tt.in, decoded)
	}
}

func TestNewConfirmation(t *testing.T) {
	c := NewConfirmation(confirmedReservation())

	assert.Equal(t, "qr-code-RES-0A1B2C3D4E5F.png", c.QRFilename)
	assert.Equal(t, 6, c.Days)
	assert.Equal(t, "2025-01-15", c.Start)
	assert.Equal(t, models.PersonalConfirmed, c.Status)
	require.Len(t, c.Instructions, 5)
	assert.Equal(t, "Ga naar de uitleenbalie op Hoofdgebouw", c.Instructions[0])
}

func TestPlaceholderQR(t *testing.T) {
	raw := PlaceholderQR()
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 1, img.Bounds().Dx())

	raw[0] = 0
	assert.Equal(t, byte(0x89), PlaceholderQR()[0])
}
