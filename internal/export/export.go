// Package export builds spreadsheet exports for the admin panel.
package export

import (
	"fmt"

	"github.com/01moynul/techxchange-golang/internal/models"
	"github.com/xuri/excelize/v2"
)

const usersSheet = "Users"

// UserColumns is the header row of the users export.
var UserColumns = []string{"ID", "Email", "Name", "Phone", "Location", "Plan", "Verified", "Active", "Date Joined"}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// UsersWorkbook renders rows as an XLSX workbook with a single sheet.
func UsersWorkbook(rows []models.UserRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", usersSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(usersSheet)
	if err != nil {
		return nil, fmt.Errorf("stream writer: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	header := make([]interface{}, len(UserColumns))
	for i, name := range UserColumns {
		header[i] = excelize.Cell{StyleID: bold, Value: name}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []interface{}{
			r.ID,
			r.Email,
			r.FullName(),
			r.PhoneNumber,
			r.Location,
			r.PlanName,
			yesNo(r.IsVerified),
			yesNo(r.IsActive),
			r.DateJoined.Format("2006-01-02 15:04"),
		}
		if err := sw.SetRow(cell, values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("flush sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
