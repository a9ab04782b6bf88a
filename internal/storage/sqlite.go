package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/pseudokit/internal/database"
)

// SQLite stores artifacts in the history database, grouped by namespace.
// The namespace is normally the job output directory.
type SQLite struct {
	db        *database.DB
	namespace string
}

// NewSQLite returns a backend over db.
func NewSQLite(db *database.DB, namespace string) *SQLite {
	return &SQLite{db: db, namespace: namespace}
}

// Read implements Storage.
func (s *SQLite) Read(ctx context.Context, name string) ([]byte, error) {
	data, err := s.db.GetArtifact(ctx, s.namespace, name)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", s.Location(name), ErrNotFound)
	}
	return data, err
}

// Write implements Storage.
func (s *SQLite) Write(ctx context.Context, name string, data []byte) error {
	return s.db.PutArtifact(ctx, s.namespace, name, data)
}

// Location implements Storage.
func (s *SQLite) Location(name string) string {
	return fmt.Sprintf("sqlite://%s#%s/%s", s.db.Path(), s.namespace, name)
}
