package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Mindbaseeducation/khotwa-email-review-app/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, path string, rows [][]string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
}

func TestReadInputItemsXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emails.xlsx")
	writeWorkbook(t, path, [][]string{
		{"Ref", " Email "},
		{"1", "first thread"},
		{"2", ""},
		{"", ""},
		{"4", "fourth: with colon"},
	})

	items, err := ReadInputItems(path, ReadOptions{Column: "Email"})
	if err != nil {
		t.Fatalf("ReadInputItems: %v", err)
	}
	want := []domain.InputItem{
		{Row: 2, Email: "first thread"},
		{Row: 3, Email: ""},
		{Row: 5, Email: "fourth: with colon"},
	}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestReadInputItemsMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emails.xlsx")
	writeWorkbook(t, path, [][]string{{"Body"}, {"hello"}})

	_, err := ReadInputItems(path, ReadOptions{Column: "Email"})
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
	if !strings.Contains(err.Error(), "'Email' column") {
		t.Fatalf("expected column name in error, got %v", err)
	}
}

func TestReadInputItemsNamedSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emails.xlsx")
	writeWorkbook(t, path, [][]string{{"Email"}, {"a"}})

	if _, err := ReadInputItems(path, ReadOptions{Column: "Email", Sheet: "Nope"}); err == nil {
		t.Fatal("expected error for unknown sheet")
	}
	items, err := ReadInputItems(path, ReadOptions{Column: "Email", Sheet: "Sheet1"})
	if err != nil || len(items) != 1 {
		t.Fatalf("expected 1 item from Sheet1, got %d err=%v", len(items), err)
	}
}

func TestReadInputItemsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emails.csv")
	content := "\ufeffEmail,Other\n\"multi\nline, thread\",x\n,y\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	items, err := ReadInputItems(path, ReadOptions{Column: "Email"})
	if err != nil {
		t.Fatalf("ReadInputItems: %v", err)
	}
	want := []domain.InputItem{
		{Row: 2, Email: "multi\nline, thread"},
		{Row: 3, Email: ""},
	}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestReadInputItemsErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := ReadInputItems(filepath.Join(dir, "emails.txt"), ReadOptions{Column: "Email"}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}

	empty := filepath.Join(dir, "empty.csv")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if _, err := ReadInputItems(empty, ReadOptions{Column: "Email"}); !errors.Is(err, ErrEmptySheet) {
		t.Fatalf("expected ErrEmptySheet, got %v", err)
	}
}

func sampleRows() []domain.OutputRow {
	var rec domain.Record
	rec.Set(domain.DateOpened, "2024-01-05")
	rec.Set(domain.SubjectName, "A. Noor")
	rec.Set(domain.HandoverItem, "Housing Updates")
	return []domain.OutputRow{
		{Email: "thread one", Record: rec},
		{Email: "thread two", Record: domain.ErrorRecord()},
	}
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Email_Reviewed.xlsx")
	if err := WriteXLSX(path, sampleRows()); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	got, err := f.GetRows(ReviewedSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(got))
	}
	if diff := cmp.Diff(domain.Header(), got[0]); diff != "" {
		t.Fatalf("header mismatch (-want +got):\n%s", diff)
	}
	if got[1][0] != "thread one" || got[1][4] != "A. Noor" {
		t.Fatalf("unexpected first row: %#v", got[1])
	}
	for _, cell := range got[2][1:] {
		if cell != domain.ErrorMarker {
			t.Fatalf("expected Error sentinel cells, got %#v", got[2])
		}
	}
}

func TestWriteXLSXEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	if err := WriteXLSX(path, nil); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	got, _ := f.GetRows(ReviewedSheet)
	if len(got) != 1 {
		t.Fatalf("expected header only, got %d rows", len(got))
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := writeCSV(&buf, sampleRows()); err != nil {
		t.Fatalf("writeCSV: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back csv: %v", err)
	}
	if len(records) != 3 || records[0][0] != "Original Email" || records[1][len(records[1])-1] != "Housing Updates" {
		t.Fatalf("unexpected csv: %#v", records)
	}

	path := filepath.Join(t.TempDir(), "out.csv")
	if err := WriteCSV(path, sampleRows()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
		t.Fatalf("expected csv file to be written, err=%v", err)
	}
}
