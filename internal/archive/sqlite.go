// Package archive provides the persistence layer for settled annotations.
//
// Live state is in-memory and dies with the process; the archive is the
// durable record of what generation produced. Only cleanly completed
// annotations belong here.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/osmia/marginalia/internal/model"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrStreamingSave = errors.New("refusing to archive a streaming annotation")
)

// Store implements annotation persistence using SQLite.
type Store struct {
	db     *sql.DB
	dbPath string
}

// New creates a SQLite-backed archive at dbPath. Use ":memory:" for an
// ephemeral archive.
func New(dbPath string) (*Store, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveAnnotation persists one settled annotation. Saving the same annotation
// ID again replaces the stored row.
func (s *Store) SaveAnnotation(ctx context.Context, ann model.Annotation) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(ann.ID, "annotation ID"); err != nil {
		return err
	}
	if err := validateString(ann.EntityID, "entity ID"); err != nil {
		return err
	}
	if ann.IsStreaming {
		return ErrStreamingSave
	}

	var originalText, suggestedText sql.NullString
	if ann.Suggestion != nil {
		originalText = sql.NullString{String: ann.Suggestion.OriginalText, Valid: true}
		suggestedText = sql.NullString{String: ann.Suggestion.SuggestedText, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO annotations
			(id, entity_kind, entity_id, text, created_at, settled_at, original_text, suggested_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ann.ID, string(ann.EntityKind), ann.EntityID, ann.Text,
		ann.CreatedAt, time.Now(), originalText, suggestedText)
	if err != nil {
		return fmt.Errorf("failed to save annotation: %w", err)
	}
	return nil
}

// History returns the archived annotations for one entity, newest first.
func (s *Store) History(ctx context.Context, entityID string, limit int) ([]model.Annotation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(entityID, "entity ID"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_kind, entity_id, text, created_at, original_text, suggested_text
		FROM annotations
		WHERE entity_id = ?
		ORDER BY settled_at DESC
		LIMIT ?`, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query annotation history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanAnnotations(rows)
}

// Recent returns the most recently archived annotations across all entities,
// newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]model.Annotation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_kind, entity_id, text, created_at, original_text, suggested_text
		FROM annotations
		ORDER BY settled_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent annotations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanAnnotations(rows)
}

func scanAnnotations(rows *sql.Rows) ([]model.Annotation, error) {
	var out []model.Annotation
	for rows.Next() {
		var (
			ann           model.Annotation
			kind          string
			originalText  sql.NullString
			suggestedText sql.NullString
		)
		if err := rows.Scan(&ann.ID, &kind, &ann.EntityID, &ann.Text,
			&ann.CreatedAt, &originalText, &suggestedText); err != nil {
			return nil, fmt.Errorf("failed to scan annotation: %w", err)
		}
		ann.EntityKind = model.EntityKind(kind)
		if originalText.Valid || suggestedText.Valid {
			ann.Suggestion = &model.Suggestion{
				OriginalText:  originalText.String,
				SuggestedText: suggestedText.String,
			}
		}
		out = append(out, ann)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate annotations: %w", err)
	}
	return out, nil
}

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}
