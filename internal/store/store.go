// Package store provides storage backends for InterviewPipe.
//
// Completed interviews and generated reports are archived through the Store
// interface. PostgreSQL and SQLite implementations cover persistent
// deployments; the in-memory store backs tests and ephemeral runs.
package store

import (
	"log/slog"
	"strings"

	"github.com/danualab/InterviewPipe/internal/models"
)

// Store is the persistence contract shared by all backends. List methods
// return records newest first; an empty userID lists records for all users.
// A lookup that finds nothing returns (nil, nil).
type Store interface {
	SaveInterviewResult(rec models.InterviewRecord) error
	GetInterviewResult(id string) (*models.InterviewRecord, error)
	ListInterviewResults(userID string) ([]models.InterviewRecord, error)
	SaveReport(rec models.ReportRecord) error
	ListReports(userID string) ([]models.ReportRecord, error)
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a functional option for store configuration.
type Option func(*Opts)

// WithPostgresDSN sets a PostgreSQL connection string as the store DSN.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithSQLiteDSN sets a SQLite database file path as the store DSN.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType classifies a database DSN as "postgres" or "sqlite".
// URL-style DSNs (postgres:// or postgresql://) and key=value connection
// strings are PostgreSQL; anything else is treated as a SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	for _, marker := range []string{"host=", "dbname=", "user=", "password="} {
		if strings.Contains(dsn, marker) {
			return "postgres"
		}
	}
	return "sqlite"
}

// NewStore creates the backend selected by the configured DSN: PostgreSQL
// for connection strings, SQLite for file paths, and the in-memory store
// when no DSN is set.
func NewStore(opts ...Option) (Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Debug("Store no DSN configured, using in-memory store")
		return NewInMemoryStore(), nil
	}
	if DetectDSNType(cfg.DSN) == "postgres" {
		return NewPostgresStore(opts...)
	}
	return NewSQLiteStore(opts...)
}
