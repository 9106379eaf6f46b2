package sqlite

import (
	"context"
	"fmt"

	"github.com/rpggio/siteflow/internal/domain/exclusion"
	"github.com/rpggio/siteflow/internal/domain/rowkey"
)

// ExclusionRepository implements exclusion.Repository for SQLite
type ExclusionRepository struct {
	db *DB
}

// NewExclusionRepository creates a new ExclusionRepository
func NewExclusionRepository(db *DB) *ExclusionRepository {
	return &ExclusionRepository{db: db}
}

// Add appends an exclusion entry; duplicates are ignored
func (r *ExclusionRepository) Add(ctx context.Context, e *exclusion.Entry) error {
	query := `
		INSERT OR IGNORE INTO exclusions (file_id, row_key, site_code, approval_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, e.FileID, e.RowKey.String(), e.SiteCode, e.ApprovalID, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add exclusion: %w", err)
	}
	return nil
}

// ListByFile returns the entries recorded against a file
func (r *ExclusionRepository) ListByFile(ctx context.Context, fileID string) ([]exclusion.Entry, error) {
	return r.list(ctx, `SELECT file_id, row_key, site_code, approval_id, created_at
		FROM exclusions WHERE file_id = ? ORDER BY created_at, rowid`, fileID)
}

// ListAll returns every entry
func (r *ExclusionRepository) ListAll(ctx context.Context) ([]exclusion.Entry, error) {
	return r.list(ctx, `SELECT file_id, row_key, site_code, approval_id, created_at
		FROM exclusions ORDER BY created_at, rowid`)
}

func (r *ExclusionRepository) list(ctx context.Context, query string, args ...interface{}) ([]exclusion.Entry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list exclusions: %w", err)
	}
	defer rows.Close()

	entries := []exclusion.Entry{}
	for rows.Next() {
		var (
			e   exclusion.Entry
			key string
		)
		if err := rows.Scan(&e.FileID, &key, &e.SiteCode, &e.ApprovalID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan exclusion: %w", err)
		}
		if e.RowKey, err = rowkey.Parse(key); err != nil {
			return nil, fmt.Errorf("failed to parse exclusion row key: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate exclusions: %w", err)
	}
	return entries, nil
}
