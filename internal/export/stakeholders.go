// Package export renders directory listings as spreadsheets.
package export

import (
	"bytes"
	"fmt"

	"backoffice/internal/model"

	"github.com/xuri/excelize/v2"
)

const stakeholderSheet = "Stakeholders"

var stakeholderHeaders = []string{
	"#", "Type", "Name", "Name (Bangla)", "Designation", "Designation (Bangla)", "Mobile", "Email", "Status",
}

// Stakeholders writes the rows to a single-sheet xlsx workbook.
func Stakeholders(rows []model.Stakeholder) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", stakeholderSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0EBF5"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetRow(stakeholderSheet, "A1", &stakeholderHeaders); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(stakeholderHeaders))
	if err := f.SetCellStyle(stakeholderSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for i, s := range rows {
		status := "Inactive"
		if s.IsActive {
			status = "Active"
		}
		row := []interface{}{
			i + 1, s.Type, s.Name, deref(s.BnName), deref(s.Designation), deref(s.BnDesignation), s.Mobile, s.Email, status,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(stakeholderSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	_ = f.SetColWidth(stakeholderSheet, "B", lastCol, 22)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
