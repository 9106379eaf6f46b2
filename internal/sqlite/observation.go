package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rpggio/siteflow/internal/domain/observation"
	"github.com/rpggio/siteflow/internal/domain/rowkey"
	"github.com/rpggio/siteflow/internal/domain/team"
	"github.com/rpggio/siteflow/internal/repository"
)

const observationColumns = `row_key, site_code, role, status, remarks, updated_at`

// ObservationRepository implements observation.Repository for SQLite
type ObservationRepository struct {
	db *DB
}

// NewObservationRepository creates a new ObservationRepository
func NewObservationRepository(db *DB) *ObservationRepository {
	return &ObservationRepository{db: db}
}

// Put inserts or replaces a role's observation
func (r *ObservationRepository) Put(ctx context.Context, st *observation.State) error {
	query := `
		INSERT INTO observations (subject, role, row_key, file_id, site_code, status, remarks, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(subject, role) DO UPDATE SET
			row_key = excluded.row_key,
			file_id = excluded.file_id,
			site_code = excluded.site_code,
			status = excluded.status,
			remarks = excluded.remarks,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		observation.Subject(st.RowKey, st.SiteCode),
		st.Role,
		st.RowKey.String(),
		st.RowKey.FileID,
		st.SiteCode,
		st.Status,
		st.Remarks,
		st.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to put observation: %w", err)
	}
	return nil
}

// Get retrieves a role's observation of a subject
func (r *ObservationRepository) Get(ctx context.Context, subject string, role team.Role) (*observation.State, error) {
	query := `SELECT ` + observationColumns + ` FROM observations WHERE subject = ? AND role = ?`

	st, err := scanObservation(r.db.QueryRowContext(ctx, query, subject, role))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get observation: %w", err)
	}
	return st, nil
}

// FindBySite returns a role's observations of a site, newest first
func (r *ObservationRepository) FindBySite(ctx context.Context, siteCode string, role team.Role) ([]observation.State, error) {
	query := `SELECT ` + observationColumns + ` FROM observations
		WHERE site_code = ? AND role = ?
		ORDER BY updated_at DESC, subject`
	return r.list(ctx, query, siteCode, role)
}

// ListByFile returns every observation recorded against a file
func (r *ObservationRepository) ListByFile(ctx context.Context, fileID string) ([]observation.State, error) {
	query := `SELECT ` + observationColumns + ` FROM observations
		WHERE file_id = ?
		ORDER BY updated_at DESC, subject`
	return r.list(ctx, query, fileID)
}

// Rekey moves every role's observation from one row key to another. An
// observation already stored under the new key wins.
func (r *ObservationRepository) Rekey(ctx context.Context, from, to rowkey.RowKey) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin rekey: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE OR IGNORE observations
		SET subject = ?, row_key = ?, file_id = ?
		WHERE subject = ?`,
		to.String(), to.String(), to.FileID, from.String())
	if err != nil {
		return fmt.Errorf("failed to rekey observations: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM observations WHERE subject = ?`, from.String()); err != nil {
		return fmt.Errorf("failed to drop superseded observations: %w", err)
	}
	return tx.Commit()
}

func (r *ObservationRepository) list(ctx context.Context, query string, args ...interface{}) ([]observation.State, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list observations: %w", err)
	}
	defer rows.Close()

	states := []observation.State{}
	for rows.Next() {
		st, err := scanObservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		states = append(states, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate observations: %w", err)
	}
	return states, nil
}

func scanObservation(row rowScanner) (*observation.State, error) {
	var (
		st  observation.State
		key string
	)
	if err := row.Scan(&key, &st.SiteCode, &st.Role, &st.Status, &st.Remarks, &st.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if st.RowKey, err = rowkey.Parse(key); err != nil {
		return nil, err
	}
	return &st, nil
}
