// Package store provides storage backends for InterviewPipe.
//
// This file implements the SQLite-backed store for archived interviews and
// reports.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/danualab/InterviewPipe/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	slog.Debug("SQLite database directory verified/created", "dir", dir)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}
	slog.Debug("SQLite ping successful")

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveInterviewResult(rec models.InterviewRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	answersJSON, err := json.Marshal(rec.Answers)
	if err != nil {
		slog.Error("SQLiteStore SaveInterviewResult marshal failed", "error", err, "id", rec.ID)
		return fmt.Errorf("failed to marshal answers for %s: %w", rec.ID, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO interview_results (id, user_id, name, age, answers, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.Name, rec.Age, string(answersJSON), rec.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveInterviewResult failed", "error", err, "id", rec.ID)
		return fmt.Errorf("failed to insert interview result %s: %w", rec.ID, err)
	}
	slog.Debug("SQLiteStore SaveInterviewResult succeeded", "id", rec.ID, "userID", rec.UserID)
	return nil
}

func (s *SQLiteStore) GetInterviewResult(id string) (*models.InterviewRecord, error) {
	var rec models.InterviewRecord
	var answersJSON string
	err := s.db.QueryRow(
		`SELECT id, user_id, name, age, answers, created_at FROM interview_results WHERE id = ?`, id).
		Scan(&rec.ID, &rec.UserID, &rec.Name, &rec.Age, &answersJSON, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetInterviewResult not found", "id", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetInterviewResult failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to query interview result %s: %w", id, err)
	}
	rec.Answers = decodeAnswers(answersJSON, rec.ID)
	return &rec, nil
}

func (s *SQLiteStore) ListInterviewResults(userID string) ([]models.InterviewRecord, error) {
	query := `SELECT id, user_id, name, age, answers, created_at FROM interview_results ORDER BY created_at DESC`
	args := []interface{}{}
	if userID != "" {
		query = `SELECT id, user_id, name, age, answers, created_at FROM interview_results WHERE user_id = ? ORDER BY created_at DESC`
		args = append(args, userID)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("SQLiteStore ListInterviewResults query failed", "error", err)
		return nil, fmt.Errorf("failed to query interview results: %w", err)
	}
	defer rows.Close()

	var records []models.InterviewRecord
	for rows.Next() {
		var rec models.InterviewRecord
		var answersJSON string
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Name, &rec.Age, &answersJSON, &rec.CreatedAt); err != nil {
			slog.Error("SQLiteStore ListInterviewResults scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan interview result row: %w", err)
		}
		rec.Answers = decodeAnswers(answersJSON, rec.ID)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListInterviewResults rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate interview result rows: %w", err)
	}
	slog.Debug("SQLiteStore ListInterviewResults succeeded", "count", len(records))
	return records, nil
}

func (s *SQLiteStore) SaveReport(rec models.ReportRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	_, err := s.db.Exec(
		`INSERT INTO reports (id, user_id, interview_id, content, is_fallback, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.InterviewID, rec.Content, rec.IsFallback, rec.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveReport failed", "error", err, "id", rec.ID)
		return fmt.Errorf("failed to insert report %s: %w", rec.ID, err)
	}
	slog.Debug("SQLiteStore SaveReport succeeded", "id", rec.ID, "userID", rec.UserID, "fallback", rec.IsFallback)
	return nil
}

func (s *SQLiteStore) ListReports(userID string) ([]models.ReportRecord, error) {
	query := `SELECT id, user_id, interview_id, content, is_fallback, created_at FROM reports ORDER BY created_at DESC`
	args := []interface{}{}
	if userID != "" {
		query = `SELECT id, user_id, interview_id, content, is_fallback, created_at FROM reports WHERE user_id = ? ORDER BY created_at DESC`
		args = append(args, userID)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("SQLiteStore ListReports query failed", "error", err)
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var records []models.ReportRecord
	for rows.Next() {
		var rec models.ReportRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.InterviewID, &rec.Content, &rec.IsFallback, &rec.CreatedAt); err != nil {
			slog.Error("SQLiteStore ListReports scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListReports rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate report rows: %w", err)
	}
	slog.Debug("SQLiteStore ListReports succeeded", "count", len(records))
	return records, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}

// decodeAnswers converts the stored JSON answers column back to a map.
// A record with a corrupt column is returned with empty answers rather
// than failing the whole query.
func decodeAnswers(answersJSON, recordID string) map[int]string {
	answers := make(map[int]string)
	if answersJSON == "" {
		return answers
	}
	if err := json.Unmarshal([]byte(answersJSON), &answers); err != nil {
		slog.Error("Store answers column unmarshal failed", "error", err, "id", recordID)
		return make(map[int]string)
	}
	return answers
}
