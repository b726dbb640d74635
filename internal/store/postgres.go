// Package store provides storage backends for InterviewPipe.
//
// This file implements the PostgreSQL-backed store for archived interviews
// and reports.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/danualab/InterviewPipe/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}
	slog.Debug("Postgres ping successful")

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) SaveInterviewResult(rec models.InterviewRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	answersJSON, err := json.Marshal(rec.Answers)
	if err != nil {
		slog.Error("PostgresStore SaveInterviewResult marshal failed", "error", err, "id", rec.ID)
		return fmt.Errorf("failed to marshal answers for %s: %w", rec.ID, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO interview_results (id, user_id, name, age, answers, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.UserID, rec.Name, rec.Age, string(answersJSON), rec.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveInterviewResult failed", "error", err, "id", rec.ID)
		return fmt.Errorf("failed to insert interview result %s: %w", rec.ID, err)
	}
	slog.Debug("PostgresStore SaveInterviewResult succeeded", "id", rec.ID, "userID", rec.UserID)
	return nil
}

func (s *PostgresStore) GetInterviewResult(id string) (*models.InterviewRecord, error) {
	var rec models.InterviewRecord
	var answersJSON string
	err := s.db.QueryRow(
		`SELECT id, user_id, name, age, answers, created_at FROM interview_results WHERE id = $1`, id).
		Scan(&rec.ID, &rec.UserID, &rec.Name, &rec.Age, &answersJSON, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetInterviewResult not found", "id", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetInterviewResult failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to query interview result %s: %w", id, err)
	}
	rec.Answers = decodeAnswers(answersJSON, rec.ID)
	return &rec, nil
}

func (s *PostgresStore) ListInterviewResults(userID string) ([]models.InterviewRecord, error) {
	query := `SELECT id, user_id, name, age, answers, created_at FROM interview_results ORDER BY created_at DESC`
	args := []interface{}{}
	if userID != "" {
		query = `SELECT id, user_id, name, age, answers, created_at FROM interview_results WHERE user_id = $1 ORDER BY created_at DESC`
		args = append(args, userID)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("PostgresStore ListInterviewResults query failed", "error", err)
		return nil, fmt.Errorf("failed to query interview results: %w", err)
	}
	defer rows.Close()

	var records []models.InterviewRecord
	for rows.Next() {
		var rec models.InterviewRecord
		var answersJSON string
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Name, &rec.Age, &answersJSON, &rec.CreatedAt); err != nil {
			slog.Error("PostgresStore ListInterviewResults scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan interview result row: %w", err)
		}
		rec.Answers = decodeAnswers(answersJSON, rec.ID)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore ListInterviewResults rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate interview result rows: %w", err)
	}
	slog.Debug("PostgresStore ListInterviewResults succeeded", "count", len(records))
	return records, nil
}

func (s *PostgresStore) SaveReport(rec models.ReportRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	_, err := s.db.Exec(
		`INSERT INTO reports (id, user_id, interview_id, content, is_fallback, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.UserID, rec.InterviewID, rec.Content, rec.IsFallback, rec.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveReport failed", "error", err, "id", rec.ID)
		return fmt.Errorf("failed to insert report %s: %w", rec.ID, err)
	}
	slog.Debug("PostgresStore SaveReport succeeded", "id", rec.ID, "userID", rec.UserID, "fallback", rec.IsFallback)
	return nil
}

func (s *PostgresStore) ListReports(userID string) ([]models.ReportRecord, error) {
	query := `SELECT id, user_id, interview_id, content, is_fallback, created_at FROM reports ORDER BY created_at DESC`
	args := []interface{}{}
	if userID != "" {
		query = `SELECT id, user_id, interview_id, content, is_fallback, created_at FROM reports WHERE user_id = $1 ORDER BY created_at DESC`
		args = append(args, userID)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("PostgresStore ListReports query failed", "error", err)
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var records []models.ReportRecord
	for rows.Next() {
		var rec models.ReportRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.InterviewID, &rec.Content, &rec.IsFallback, &rec.CreatedAt); err != nil {
			slog.Error("PostgresStore ListReports scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore ListReports rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate report rows: %w", err)
	}
	slog.Debug("PostgresStore ListReports succeeded", "count", len(records))
	return records, nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close Postgres database", "error", err)
	}
	return err
}
