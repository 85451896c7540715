package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Mindbaseeducation/khotwa-email-review-app/internal/domain"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrMissingColumn means the input has no column holding the email text.
	// The run must not start.
	ErrMissingColumn     = errors.New("required column not found")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptySheet        = errors.New("sheet has no header row")
)

type ReadOptions struct {
	Column string // header of the email column, matched after trimming
	Sheet  string // xlsx only; empty means the first sheet
}

// ReadInputItems loads one InputItem per data row of an .xlsx or .csv file.
// Missing email cells become empty strings; fully blank rows are skipped.
func ReadInputItems(path string, opts ReadOptions) ([]domain.InputItem, error) {
	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(path, opts.Sheet)
	case ".csv":
		rows, err = readCSVFile(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	return itemsFromRows(rows, opts.Column)
}

func readXLSX(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmptySheet
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSVFile(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer file.Close()
	return readCSV(file)
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

func itemsFromRows(rows [][]string, column string) ([]domain.InputItem, error) {
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}
	column = strings.TrimSpace(column)
	col := -1
	for i, h := range rows[0] {
		if strings.TrimSpace(h) == column {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("%w: the uploaded file must contain an '%s' column", ErrMissingColumn, column)
	}

	var items []domain.InputItem
	for i, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		email := ""
		if col < len(row) {
			email = row[col]
		}
		items = append(items, domain.InputItem{Row: i + 2, Email: email})
	}
	return items, nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
