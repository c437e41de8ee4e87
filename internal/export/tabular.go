package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"peopleconnect/internal/submission"

	"github.com/xuri/excelize/v2"
)

// File names offered for download.
const (
	CSVFileName      = "submissions.csv"
	AdminCSVFileName = "submissions_admin.csv"
	XLSXFileName     = "submissions.xlsx"
	SheetName        = "Submissions"
)

// WriteCSV writes rows as UTF-8 CSV with a header line.
func WriteCSV(w io.Writer, rows []submission.Submission) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, s := range rows {
		if err := cw.Write(row(s)); err != nil {
			return fmt.Errorf("write csv row %d: %w", s.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes rows to a single-sheet workbook named Submissions.
// Coordinates are stored as numbers; missing ones leave the cell empty.
func WriteXLSX(w io.Writer, rows []submission.Submission) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}

	for i, s := range rows {
		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{
			s.ID, string(s.Type), cell(s.Department), cell(s.Name), cell(s.Mobile), cell(s.Address),
			cell(s.Message), coordValue(s.Lat), coordValue(s.Lon), cell(s.Attachments),
			string(s.Status), s.CreatedAt,
		}
		if err := f.SetSheetRow(SheetName, addr, &values); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", s.ID, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func coordValue(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
