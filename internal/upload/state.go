package upload

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// StateDB tracks which documents have been accepted by the server so
// unchanged files are not sent again.
type StateDB struct {
	db *sql.DB
}

// UploadedFile is one row of the state database.
type UploadedFile struct {
	Path       string
	Endpoint   string
	Size       int64
	Hash       string
	UploadedAt time.Time
}

// OpenStateDB opens (or creates) the SQLite state database at dir/state.db.
func OpenStateDB(dir string) (*StateDB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "state.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS uploaded_documents (
		path        TEXT PRIMARY KEY,
		endpoint    TEXT NOT NULL,
		size        INTEGER NOT NULL,
		hash        TEXT NOT NULL,
		uploaded_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating state table: %w", err)
	}

	return &StateDB{db: db}, nil
}

// IsUploaded checks if a file has already been uploaded with the same size and hash.
func (s *StateDB) IsUploaded(ctx context.Context, relPath string, size int64, hash string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM uploaded_documents WHERE path = ? AND size = ? AND hash = ?`,
		relPath, size, hash,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking upload state: %w", err)
	}
	return count > 0, nil
}

// MarkUploaded records that a file was accepted by endpoint. A changed file
// replaces its previous row.
func (s *StateDB) MarkUploaded(ctx context.Context, relPath, endpoint string, size int64, hash string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO uploaded_documents (path, endpoint, size, hash, uploaded_at) VALUES (?, ?, ?, ?, ?)`,
		relPath, endpoint, size, hash, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("marking %s uploaded: %w", relPath, err)
	}
	return nil
}

// List returns every recorded upload, newest first.
func (s *StateDB) List(ctx context.Context) ([]UploadedFile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, endpoint, size, hash, uploaded_at FROM uploaded_documents ORDER BY uploaded_at DESC, path`)
	if err != nil {
		return nil, fmt.Errorf("listing uploads: %w", err)
	}
	defer rows.Close()

	var out []UploadedFile
	for rows.Next() {
		var f UploadedFile
		if err := rows.Scan(&f.Path, &f.Endpoint, &f.Size, &f.Hash, &f.UploadedAt); err != nil {
			return nil, fmt.Errorf("scanning upload: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Close closes the state database.
func (s *StateDB) Close() error {
	return s.db.Close()
}

// HashFile computes the SHA-256 hash of a file.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
