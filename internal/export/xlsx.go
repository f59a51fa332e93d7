// Package export renders reservation lists as Excel workbooks.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"schoollend/internal/calendar"
	"schoollend/internal/models"

	"github.com/xuri/excelize/v2"
)

const SheetName = "Reserveringen"

var headers = []string{
	"ID", "Apparaat", "Categorie", "Serienummer", "Naam", "E-mail", "Type",
	"Klas / Afdeling", "Van", "Tot", "Dagen", "Status", "Kluis", "Ophaallocatie",
}

var statusColors = map[models.Status]string{
	models.StatusPending:   "#FFF2CC",
	models.StatusReady:     "#DDEBF7",
	models.StatusActive:    "#E2EFDA",
	models.StatusReturned:  "#EDEDED",
	models.StatusOverdue:   "#F8CBAD",
	models.StatusCancelled: "#D9D9D9",
}

// WriteReservations writes one row per reservation, in the given order, after a bold header row.
func WriteReservations(w io.Writer, reservations []models.Reservation) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	// Удаляем стандартный лист
	_ = f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#BDD7EE"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("error creating header style: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	_ = f.SetCellStyle(SheetName, "A1", lastHeader, headerStyle)

	statusStyles := make(map[models.Status]int, len(statusColors))
	for status, color := range statusColors {
		style, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err == nil {
			statusStyles[status] = style
		}
	}

	for i := range reservations {
		row := i + 2
		values := rowValues(&reservations[i])
		if err := f.SetSheetRow(SheetName, fmt.Sprintf("A%d", row), &values); err != nil {
			return fmt.Errorf("error writing row %d: %w", row, err)
		}
		if style, ok := statusStyles[reservations[i].Status]; ok {
			cell, _ := excelize.CoordinatesToCellName(12, row)
			_ = f.SetCellStyle(SheetName, cell, cell, style)
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 18)
	_ = f.SetColWidth(SheetName, "B", "H", 24)
	_ = f.SetColWidth(SheetName, "I", "N", 14)
	_ = f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

// SaveReservations writes the workbook into dir and returns its path.
func SaveReservations(dir string, reservations []models.Reservation, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	path := filepath.Join(dir, Filename(now))
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := WriteReservations(file, reservations); err != nil {
		return "", err
	}
	return path, nil
}

func Filename(now time.Time) string {
	return fmt.Sprintf("reserveringen_%s.xlsx", now.Format("2006-01-02_150405"))
}

func rowValues(r *models.Reservation) []interface{} {
	group := r.Applicant.Class
	if r.Applicant.UserType == models.UserTypeStaff {
		group = r.Applicant.Department
	}
	return []interface{}{
		r.ID,
		r.Device.Name,
		r.Device.Category,
		r.SerialNumber,
		r.Applicant.FullName(),
		r.Applicant.Email,
		r.Applicant.UserType,
		group,
		r.Range.Start.Format(models.DateLayout),
		r.Range.End.Format(models.DateLayout),
		calendar.DurationDays(r.Range.Start, r.Range.End),
		r.Status.Admin(),
		r.LockerNumber,
		r.PickupLocation,
	}
}
