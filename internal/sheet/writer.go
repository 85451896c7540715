package sheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/Mindbaseeducation/khotwa-email-review-app/internal/domain"
	"github.com/xuri/excelize/v2"
)

// ReviewedSheet names the worksheet of an exported workbook.
const ReviewedSheet = "Reviewed"

// WriteXLSX writes the header and one line per row into a new workbook at
// path, replacing any existing file.
func WriteXLSX(path string, rows []domain.OutputRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ReviewedSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := setRow(f, 1, domain.Header()); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, i+2, row.Values()); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, n int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(ReviewedSheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", n, err)
	}
	return nil
}

func WriteCSV(path string, rows []domain.OutputRow) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	if err := writeCSV(file, rows); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func writeCSV(w io.Writer, rows []domain.OutputRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(domain.Header()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row.Values()); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
