package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/Mindbaseeducation/khotwa-email-review-app/internal/domain"
	_ "github.com/mattn/go-sqlite3"
)

const reviewedTable = "reviewed_emails"

// InitDB opens the export database and recreates the reviewed table, so
// each export file holds exactly one run.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	DROP TABLE IF EXISTS reviewed_emails;
	CREATE TABLE reviewed_emails (
		id                  INTEGER PRIMARY KEY AUTOINCREMENT,
		original_email      TEXT NOT NULL DEFAULT '',
		date_opened         TEXT NOT NULL DEFAULT '',
		date_closed         TEXT NOT NULL DEFAULT '',
		case_id             TEXT NOT NULL DEFAULT '',
		subject_name        TEXT NOT NULL DEFAULT '',
		sender_role         TEXT NOT NULL DEFAULT '',
		issue_category      TEXT NOT NULL DEFAULT '',
		summary             TEXT NOT NULL DEFAULT '',
		tier_classification TEXT NOT NULL DEFAULT '',
		recipient_role      TEXT NOT NULL DEFAULT '',
		handover_item       TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX idx_reviewed_emails_case_id ON reviewed_emails(case_id);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func InsertRows(db *sql.DB, rows []domain.OutputRow) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(
		`INSERT INTO reviewed_emails (original_email, date_opened, date_closed, case_id, subject_name, sender_role,
		 issue_category, summary, tier_classification, recipient_role, handover_item)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i, row := range rows {
		args := make([]any, 0, domain.NumFields+1)
		for _, v := range row.Values() {
			args = append(args, v)
		}
		if _, err := stmt.Exec(args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}
	return tx.Commit()
}

// LoadRows reads an exported table back in insertion order.
func LoadRows(db *sql.DB) ([]domain.OutputRow, error) {
	rows, err := db.Query(
		`SELECT original_email, date_opened, date_closed, case_id, subject_name, sender_role,
		 issue_category, summary, tier_classification, recipient_role, handover_item
		 FROM reviewed_emails ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.OutputRow
	for rows.Next() {
		var row domain.OutputRow
		dest := []any{&row.Email}
		for i := range row.Record {
			dest = append(dest, &row.Record[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// WriteRows exports rows into a fresh table of the database at path.
func WriteRows(path string, rows []domain.OutputRow) error {
	db, err := InitDB(path)
	if err != nil {
		return fmt.Errorf("init export db: %w", err)
	}
	defer db.Close()
	return InsertRows(db, rows)
}
