package data

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb/v2"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversions (
	id          VARCHAR PRIMARY KEY,
	novel       VARCHAR,
	title       VARCHAR,
	source_path VARCHAR,
	output_path VARCHAR,
	format      VARCHAR,
	status      VARCHAR,
	error       VARCHAR,
	emailed     BOOLEAN,
	started_at  TIMESTAMP,
	finished_at TIMESTAMP
)`

// InitDuckDB opens the history database at path, creating parent
// directories and the schema when missing.
func InitDuckDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return db, nil
}

type Repository struct {
	db *sql.DB
}

// NewDuckDBRepository opens the conversion history stored at path.
func NewDuckDBRepository(path string) (*Repository, error) {
	db, err := InitDuckDB(path)
	if err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// SaveConversion inserts or replaces a conversion record by ID.
func (r *Repository) SaveConversion(c *Conversion) error {
	_, err := r.db.Exec(`
		INSERT OR REPLACE INTO conversions
			(id, novel, title, source_path, output_path, format, status, error, emailed, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Novel, c.Title, c.SourcePath, c.OutputPath, c.Format,
		c.Status, c.Error, c.Emailed, c.StartedAt, c.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save conversion %s: %w", c.ID, err)
	}
	return nil
}

// GetConversion returns nil, nil when no record has the given ID.
func (r *Repository) GetConversion(id string) (*Conversion, error) {
	row := r.db.QueryRow(`
		SELECT id, novel, title, source_path, output_path, format, status, error, emailed, started_at, finished_at
		FROM conversions WHERE id = ?`, id)

	c, err := scanConversion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// ListConversions returns the most recent conversions first. A limit of
// zero or less returns everything.
func (r *Repository) ListConversions(limit int) ([]*Conversion, error) {
	query := `
		SELECT id, novel, title, source_path, output_path, format, status, error, emailed, started_at, finished_at
		FROM conversions ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversions: %w", err)
	}
	defer rows.Close()

	var out []*Conversion
	for rows.Next() {
		c, err := scanConversion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MarkEmailed flags a stored conversion as delivered by mail.
func (r *Repository) MarkEmailed(id string) error {
	_, err := r.db.Exec(`UPDATE conversions SET emailed = true WHERE id = ?`, id)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConversion(s scanner) (*Conversion, error) {
	var (
		c        Conversion
		errText  sql.NullString
		finished sql.NullTime
	)
	err := s.Scan(&c.ID, &c.Novel, &c.Title, &c.SourcePath, &c.OutputPath, &c.Format,
		&c.Status, &errText, &c.Emailed, &c.StartedAt, &finished)
	if err != nil {
		return nil, err
	}
	c.Error = errText.String
	c.FinishedAt = finished.Time
	return &c, nil
}
