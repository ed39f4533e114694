// Package report renders blocked-date query results as spreadsheet exports.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"blockdates/internal/models"
)

const sheetName = "Blocked dates"

// WriteExcel renders the blocked-date list as an xlsx workbook: one header
// row plus one row per blocked date.
func WriteExcel(w io.Writer, resource models.Resource, dr models.DateRange, blocked []models.BlockedDate) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetName)

	header := []interface{}{"Date", "Weekday", "Reason", "Staff ID", "Meeting ID"}
	if err := writeRow(f, 1, header); err != nil {
		return err
	}

	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		endCell, _ := excelize.CoordinatesToCellName(len(header), 1)
		_ = f.SetCellStyle(sheetName, "A1", endCell, style)
	}

	for i, b := range blocked {
		weekday := ""
		if d, err := time.ParseInLocation(models.DateLayout, b.Date, dr.Loc); err == nil {
			weekday = d.Weekday().String()
		}
		row := []interface{}{b.Date, weekday, string(b.Reason), resource.StaffID, resource.MeetingID}
		if err := writeRow(f, i+2, row); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, rowNum int, values []interface{}) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, rowNum)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, v); err != nil {
			return err
		}
	}
	return nil
}
