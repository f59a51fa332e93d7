package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"schoollend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleReservations() []models.Reservation {
	start := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	return []models.Reservation{
		{
			ID:           "RES-001",
			Device:       models.Device{Name: `MacBook Pro 14"`, Category: "Laptops"},
			Range:        models.DateRange{Start: start, End: start.AddDate(0, 0, 3)},
			Applicant:    models.Applicant{FirstName: "Jan", LastName: "de Vries", Email: "jan@student.school.nl", UserType: models.UserTypeStudent, Class: "4A"},
			Status:       models.StatusPending,
			SerialNumber: "MBP-2023-001",
		},
		{
			ID:           "RES-002",
			Device:       models.Device{Name: "Canon EOS R6", Category: "Camera's"},
			Range:        models.DateRange{Start: start, End: start.AddDate(0, 0, 7)},
			Applicant:    models.Applicant{FirstName: "Maria", LastName: "Bakker", UserType: models.UserTypeStaff, Department: "Media & Design"},
			Status:       models.StatusReady,
			LockerNumber: "L-15",
		},
	}
}

func TestWriteReservations(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReservations(&buf, sampleReservations()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "Ophaallocatie", rows[0][13])

	assert.Equal(t, "RES-001", rows[1][0])
	assert.Equal(t, "Jan de Vries", rows[1][4])
	assert.Equal(t, "4A", rows[1][7])
	assert.Equal(t, "4", rows[1][10])
	assert.Equal(t, "pending", rows[1][11])

	assert.Equal(t, "Media & Design", rows[2][7])
	assert.Equal(t, "8", rows[2][10])
	assert.Equal(t, "L-15", rows[2][12])
}

func TestWriteReservations_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReservations(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSaveReservations(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	now := time.Date(2025, 1, 10, 14, 30, 5, 0, time.UTC)

	path, err := SaveReservations(dir, sampleReservations(), now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "reserveringen_2025-01-10_143005.xlsx"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
