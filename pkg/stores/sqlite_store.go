package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"

	// SQLite driver
	_ "modernc.org/sqlite"

	"github.com/pipewright/pipewright/pkg/engine"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements engine.ArtifactStore using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Config holds SQLite store configuration.
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	return &SQLiteStore{
		path: cfg.Path,
	}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	// Open database with SQLite-specific connection parameters
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	// Create migration source from embedded FS
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	// Create database driver
	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	// Create migration instance
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	// Run migrations
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Save persists the artifact. All fields are written in one statement, so a
// reader never observes a partially written record. An artifact for the same
// project and provider is replaced.
func (s *SQLiteStore) Save(ctx context.Context, artifact engine.Artifact) error {
	if artifact.ID == "" {
		artifact.ID = uuid.New().String()
	}
	if artifact.SavedAt.IsZero() {
		artifact.SavedAt = time.Now().UTC()
	}
	if err := artifact.Provider.Validate(); err != nil {
		return fmt.Errorf("invalid artifact: %w", err)
	}
	if artifact.ProjectName == "" {
		return fmt.Errorf("invalid artifact: project name is required")
	}

	query := `
		INSERT INTO artifacts (id, yaml, provider, project_name, saved_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (project_name, provider) DO UPDATE SET
			id = excluded.id,
			yaml = excluded.yaml,
			saved_at = excluded.saved_at
	`

	_, err := s.db.ExecContext(ctx, query,
		artifact.ID,
		artifact.YAML,
		string(artifact.Provider),
		artifact.ProjectName,
		artifact.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save artifact: %w", err)
	}

	return nil
}

// Get returns the artifact with the given ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*engine.Artifact, error) {
	query := `
		SELECT id, yaml, provider, project_name, saved_at
		FROM artifacts
		WHERE id = ?
	`

	artifact := &engine.Artifact{}
	var provider string
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&artifact.ID,
		&artifact.YAML,
		&provider,
		&artifact.ProjectName,
		&artifact.SavedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("artifact not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}

	artifact.Provider = engine.CIProvider(provider)
	return artifact, nil
}

// GetLatest returns the most recently saved artifact for a project and
// provider, or an error when none exists.
func (s *SQLiteStore) GetLatest(ctx context.Context, projectName string, provider engine.CIProvider) (*engine.Artifact, error) {
	query := `
		SELECT id, yaml, provider, project_name, saved_at
		FROM artifacts
		WHERE project_name = ? AND provider = ?
	`

	artifact := &engine.Artifact{}
	var prov string
	err := s.db.QueryRowContext(ctx, query, projectName, string(provider)).Scan(
		&artifact.ID,
		&artifact.YAML,
		&prov,
		&artifact.ProjectName,
		&artifact.SavedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no artifact for project %s and provider %s", projectName, provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}

	artifact.Provider = engine.CIProvider(prov)
	return artifact, nil
}

// List returns all persisted artifacts, most recent first.
func (s *SQLiteStore) List(ctx context.Context) ([]engine.Artifact, error) {
	query := `
		SELECT id, yaml, provider, project_name, saved_at
		FROM artifacts
		ORDER BY saved_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	artifacts := []engine.Artifact{}
	for rows.Next() {
		var artifact engine.Artifact
		var provider string
		if err := rows.Scan(
			&artifact.ID,
			&artifact.YAML,
			&provider,
			&artifact.ProjectName,
			&artifact.SavedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		artifact.Provider = engine.CIProvider(provider)
		artifacts = append(artifacts, artifact)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate artifacts: %w", err)
	}

	return artifacts, nil
}

// ListPage returns a page of persisted artifacts, most recent first.
func (s *SQLiteStore) ListPage(ctx context.Context, limit, offset int) ([]engine.Artifact, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, yaml, provider, project_name, saved_at
		FROM artifacts
		ORDER BY saved_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	artifacts := []engine.Artifact{}
	for rows.Next() {
		var artifact engine.Artifact
		var provider string
		if err := rows.Scan(
			&artifact.ID,
			&artifact.YAML,
			&provider,
			&artifact.ProjectName,
			&artifact.SavedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		artifact.Provider = engine.CIProvider(provider)
		artifacts = append(artifacts, artifact)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate artifacts: %w", err)
	}

	return artifacts, nil
}

// HealthCheck verifies the database connection is usable.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Delete removes the artifact with the given ID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("artifact not found: %s", id)
	}

	return nil
}

// compile-time interface check
var _ engine.ArtifactStore = (*SQLiteStore)(nil)
