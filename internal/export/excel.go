// Package export renders check-in history as downloadable spreadsheets.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"truckspot/internal/models"
)

const sheetName = "Check-ins"

var headerColumns = []string{"Truck", "Started", "Ended", "Duration", "Latitude", "Longitude"}

// WriteCheckInHistory writes an xlsx workbook with one row per check-in
// session, newest first as given. Trucks maps truck IDs to display
// names; unknown IDs fall back to the numeric ID.
func WriteCheckInHistory(w io.Writer, trucks map[int64]string, checkins []models.CheckIn) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetName)

	if err := writeHeader(f); err != nil {
		return err
	}

	for i, c := range checkins {
		row := i + 2
		name, ok := trucks[c.TruckID]
		if !ok {
			name = fmt.Sprintf("#%d", c.TruckID)
		}

		ended := ""
		duration := ""
		if c.EndedAt != nil {
			ended = c.EndedAt.Format(time.RFC3339)
			duration = c.EndedAt.Sub(c.StartedAt).Round(time.Minute).String()
		}

		values := []interface{}{
			name,
			c.StartedAt.Format(time.RFC3339),
			ended,
			duration,
			c.Position.Lat,
			c.Position.Lng,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File) error {
	for i, col := range headerColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, col); err != nil {
			return err
		}
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		endCell, _ := excelize.CoordinatesToCellName(len(headerColumns), 1)
		_ = f.SetCellStyle(sheetName, "A1", endCell, style)
	}
	return nil
}
