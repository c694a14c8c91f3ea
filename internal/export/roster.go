package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/mehedi-exx/Hr/internal/domain"
)

const rosterSheet = "Employees"

// RosterHeader column order of the roster workbook
var RosterHeader = []string{
	"Employee ID",
	"First Name",
	"Last Name",
	"Designation",
	"Department",
	"Phone",
	"Email",
	"Joining Date",
	"Salary",
	"Added",
}

var rosterWidths = []float64{15, 18, 18, 22, 20, 18, 28, 14, 14, 14}

// RosterFilename suggested document name for a tenant's roster.
func RosterFilename(t *domain.Tenant) string {
	return fmt.Sprintf("%s_employees.xlsx", t.Code)
}

// EmployeeRoster renders active employees into an xlsx workbook.
func EmployeeRoster(employees []*domain.Employee) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo needs the file open; close explicitly on every path

	index, err := f.NewSheet(rosterSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range RosterHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(rosterSheet, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(rosterSheet, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(rosterSheet, name, name, rosterWidths[col]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, e := range employees {
		row := i + 2
		for col, value := range rosterRow(e) {
			if value == nil || value == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, err
			}
			if err := f.SetCellValue(rosterSheet, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, col+1, err)
			}
		}
	}

	if err := f.SetPanes(rosterSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func rosterRow(e *domain.Employee) []any {
	var joined, salary any
	if e.JoinDate != nil {
		joined = e.JoinDate.Format(domain.DateLayout)
	}
	if e.Salary.Valid {
		salary = e.Salary.Decimal.InexactFloat64()
	}
	var added any
	if !e.CreatedAt.IsZero() {
		added = e.CreatedAt.Format(domain.DateLayout)
	}
	return []any{
		e.Code,
		e.FirstName,
		e.LastName,
		e.Designation,
		e.Department,
		e.Phone,
		e.Email,
		joined,
		salary,
		added,
	}
}
