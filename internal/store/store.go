// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store tracks uploaded PDFs in a SQLite registry scoped to a
// single server run. The database and every registered file live under
// one working directory, so removing the directory removes all state.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const (
	filesDir  = "files"
	imagesDir = "images"
	dbFile    = "uploads.db"
)

// ErrNotFound is returned when no upload matches the requested id.
var ErrNotFound = errors.New("upload not found")

// Upload describes a registered PDF.
type Upload struct {
	ID         string
	Filename   string
	Size       int64
	Pages      int
	Path       string
	UploadedAt time.Time
}

// Store manages the upload registry SQLite database.
type Store struct {
	db  *sql.DB
	dir string
}

// Open opens or creates the upload registry at dir/uploads.db. It
// creates the schema and the file directories if they do not exist.
func Open(dir string) (*Store, error) {
	for _, d := range []string{dir, filepath.Join(dir, filesDir), filepath.Join(dir, imagesDir)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dir: dir}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the store's working directory. Callers staging files for
// Put should create them here so the final rename stays on one
// filesystem.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS uploads (
			id TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			size INTEGER NOT NULL,
			pages INTEGER NOT NULL,
			path TEXT NOT NULL,
			uploaded_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_uploads_uploaded_at ON uploads(uploaded_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	return nil
}

// Put registers the PDF at srcPath under a fresh id, moving the file
// into the store's files directory. srcPath must live on the same
// filesystem as the store.
func (s *Store) Put(ctx context.Context, filename, srcPath string, pages int) (*Upload, error) {
	info, err := os.Stat(srcPath)
	if err != nil {
		return nil, fmt.Errorf("inspecting upload: %w", err)
	}

	id := uuid.NewString()
	dst := filepath.Join(s.dir, filesDir, id+".pdf")
	if err := os.Rename(srcPath, dst); err != nil {
		return nil, fmt.Errorf("placing upload: %w", err)
	}

	up := &Upload{
		ID:         id,
		Filename:   filename,
		Size:       info.Size(),
		Pages:      pages,
		Path:       dst,
		UploadedAt: time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO uploads (id, filename, size, pages, path, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		up.ID, up.Filename, up.Size, up.Pages, up.Path,
		up.UploadedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		os.Remove(dst)
		return nil, fmt.Errorf("registering upload: %w", err)
	}

	return up, nil
}

// Get returns the upload with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Upload, error) {
	var up Upload
	var uploadedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, filename, size, pages, path, uploaded_at FROM uploads WHERE id = ?`, id,
	).Scan(&up.ID, &up.Filename, &up.Size, &up.Pages, &up.Path, &uploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading upload %s: %w", id, err)
	}

	if t, err := time.Parse(time.RFC3339Nano, uploadedAt); err == nil {
		up.UploadedAt = t
	}

	return &up, nil
}

// ImageDir returns the directory converted images for the upload are
// served from. The directory is not created.
func (s *Store) ImageDir(id string) string {
	return filepath.Join(s.dir, imagesDir, id)
}

// ImageRoot returns the directory holding every upload's image
// directory, suitable as a file server root.
func (s *Store) ImageRoot() string {
	return filepath.Join(s.dir, imagesDir)
}

// Delete removes the upload record along with its PDF and any
// converted images.
func (s *Store) Delete(ctx context.Context, id string) error {
	up, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM uploads WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting upload %s: %w", id, err)
	}
	if err := os.Remove(up.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", up.Path, err)
	}
	if err := os.RemoveAll(s.ImageDir(id)); err != nil {
		return fmt.Errorf("removing images for %s: %w", id, err)
	}

	return nil
}

// Sweep deletes uploads older than maxAge and returns how many were
// removed. A failure on one upload does not stop the sweep.
func (s *Store) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge).UTC().Format(time.RFC3339Nano)
	ids, err := s.expiredIDs(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("listing expired uploads: %w", err)
	}

	removed := 0
	var lastErr error
	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil {
			lastErr = err
			continue
		}
		removed++
	}

	return removed, lastErr
}

func (s *Store) expiredIDs(ctx context.Context, cutoff string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM uploads WHERE uploaded_at < ?`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
