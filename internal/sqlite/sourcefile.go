package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rpggio/siteflow/internal/domain/sourcefile"
	"github.com/rpggio/siteflow/internal/repository"
)

// SourceFileRepository implements sourcefile.Repository for SQLite
type SourceFileRepository struct {
	db *DB
}

// NewSourceFileRepository creates a new SourceFileRepository
func NewSourceFileRepository(db *DB) *SourceFileRepository {
	return &SourceFileRepository{db: db}
}

// Create inserts a new source file
func (r *SourceFileRepository) Create(ctx context.Context, f *sourcefile.File) error {
	headers, err := encodeJSON(nonNil(f.Headers))
	if err != nil {
		return err
	}

	query := `
		INSERT INTO source_files (id, name, headers, tick, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query, f.ID, f.Name, headers, f.Tick, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to create source file: %w", err)
	}
	return nil
}

// Get retrieves a source file by ID
func (r *SourceFileRepository) Get(ctx context.Context, id string) (*sourcefile.File, error) {
	query := `
		SELECT id, name, headers, tick, created_at, updated_at
		FROM source_files
		WHERE id = ?
	`

	f, err := scanSourceFile(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source file: %w", err)
	}
	return f, nil
}

// Update stores a file's name and header order
func (r *SourceFileRepository) Update(ctx context.Context, f *sourcefile.File) error {
	headers, err := encodeJSON(nonNil(f.Headers))
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE source_files SET name = ?, headers = ?, updated_at = ? WHERE id = ?`,
		f.Name, headers, f.UpdatedAt, f.ID)
	if err != nil {
		return fmt.Errorf("failed to update source file: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// List returns all source files ordered by ID
func (r *SourceFileRepository) List(ctx context.Context) ([]sourcefile.File, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, headers, tick, created_at, updated_at
		FROM source_files
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list source files: %w", err)
	}
	defer rows.Close()

	files := []sourcefile.File{}
	for rows.Next() {
		f, err := scanSourceFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source file: %w", err)
		}
		files = append(files, *f)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source file rows: %w", err)
	}
	return files, nil
}

// IncrementTick atomically increments the file tick and returns the new value
func (r *SourceFileRepository) IncrementTick(ctx context.Context, id string) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `UPDATE source_files SET tick = tick + 1 WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to increment tick: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return 0, repository.ErrNotFound
	}

	var newTick int64
	if err := tx.QueryRowContext(ctx, `SELECT tick FROM source_files WHERE id = ?`, id).Scan(&newTick); err != nil {
		return 0, fmt.Errorf("failed to get new tick: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return newTick, nil
}

func scanSourceFile(row rowScanner) (*sourcefile.File, error) {
	var (
		f       sourcefile.File
		headers string
	)
	if err := row.Scan(&f.ID, &f.Name, &headers, &f.Tick, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	if err := decodeJSON(headers, &f.Headers); err != nil {
		return nil, err
	}
	return &f, nil
}
