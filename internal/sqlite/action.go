package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rpggio/siteflow/internal/domain/action"
	"github.com/rpggio/siteflow/internal/domain/rowkey"
	"github.com/rpggio/siteflow/internal/domain/site"
	"github.com/rpggio/siteflow/internal/repository"
)

const actionColumns = `
	id, source_file_id, row_key, site_code, device_type, type_of_issue, kind,
	assigned_by_role, assigned_by_user_id, assigned_to_role, assigned_to_user_id,
	assigned_to_vendor, status, remarks, photos, origin_row_key, origin_action_id,
	submitted_by_role, previous_assignees, version, created_at, updated_at`

// ActionRepository implements action.Repository for SQLite
type ActionRepository struct {
	db *DB
}

// NewActionRepository creates a new ActionRepository
func NewActionRepository(db *DB) *ActionRepository {
	return &ActionRepository{db: db}
}

// Create inserts a new action
func (r *ActionRepository) Create(ctx context.Context, a *action.Action) error {
	photos, err := encodeJSON(nonNil(a.Photos))
	if err != nil {
		return err
	}
	previous, err := encodeJSON(nonNilAssignees(a.PreviousAssignees))
	if err != nil {
		return err
	}

	query := `INSERT INTO actions (` + actionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		a.ID,
		a.SourceFileID,
		a.RowKey.String(),
		a.SiteCode,
		a.DeviceType,
		a.TypeOfIssue,
		a.Kind,
		a.AssignedByRole,
		a.AssignedByUserID,
		a.AssignedToRole,
		a.AssignedToUserID,
		a.AssignedToVendor,
		a.Status,
		a.Remarks,
		photos,
		a.OriginRowKey.String(),
		a.OriginActionID,
		a.SubmittedByRole,
		previous,
		a.Version,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to create action: %w", err)
	}
	return nil
}

// Get retrieves an action by ID
func (r *ActionRepository) Get(ctx context.Context, id string) (*action.Action, error) {
	query := `SELECT ` + actionColumns + ` FROM actions WHERE id = ?`

	a, err := scanAction(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get action: %w", err)
	}
	return a, nil
}

// Update stores an action with optimistic concurrency control
func (r *ActionRepository) Update(ctx context.Context, a *action.Action, expectedVersion int64) error {
	photos, err := encodeJSON(nonNil(a.Photos))
	if err != nil {
		return err
	}
	previous, err := encodeJSON(nonNilAssignees(a.PreviousAssignees))
	if err != nil {
		return err
	}

	query := `
		UPDATE actions
		SET assigned_to_role = ?, assigned_to_user_id = ?, assigned_to_vendor = ?,
		    status = ?, remarks = ?, photos = ?, previous_assignees = ?,
		    version = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		a.AssignedToRole,
		a.AssignedToUserID,
		a.AssignedToVendor,
		a.Status,
		a.Remarks,
		photos,
		previous,
		a.Version,
		a.UpdatedAt,
		a.ID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update action: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		var exists bool
		checkQuery := `SELECT EXISTS(SELECT 1 FROM actions WHERE id = ?)`
		if err := r.db.QueryRowContext(ctx, checkQuery, a.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check action existence: %w", err)
		}
		if !exists {
			return repository.ErrNotFound
		}
		// Action exists but version doesn't match - conflict
		return repository.ErrConflict
	}

	return nil
}

// List returns actions matching the given options in creation order
func (r *ActionRepository) List(ctx context.Context, opts action.ListOptions) ([]action.Action, error) {
	query := `SELECT ` + actionColumns + ` FROM actions`

	args := []interface{}{}
	conditions := []string{}

	if opts.AssignedToRole != "" {
		conditions = append(conditions, "assigned_to_role = ?")
		args = append(args, opts.AssignedToRole)
	}
	if opts.AssignedByRole != "" {
		conditions = append(conditions, "assigned_by_role = ?")
		args = append(args, opts.AssignedByRole)
	}
	if opts.Party != "" {
		conditions = append(conditions, `(assigned_by_role = ? OR assigned_to_role = ? OR EXISTS (
			SELECT 1 FROM json_each(actions.previous_assignees) WHERE json_extract(value, '$.role') = ?))`)
		args = append(args, opts.Party, opts.Party, opts.Party)
	}
	if code := site.NormalizeCode(opts.SiteCode); code != "" {
		conditions = append(conditions, "site_code = ?")
		args = append(args, code)
	}
	if opts.SourceFileID != "" {
		conditions = append(conditions, "source_file_id = ?")
		args = append(args, opts.SourceFileID)
	}
	if opts.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, opts.Kind)
	}
	if opts.OpenOnly {
		conditions = append(conditions, "status != ?")
		args = append(args, action.StatusCompleted)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at, rowid"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}
	defer rows.Close()

	actions := []action.Action{}
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		actions = append(actions, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate actions: %w", err)
	}
	return actions, nil
}

func scanAction(row rowScanner) (*action.Action, error) {
	var (
		a                      action.Action
		key, originKey         string
		photos, previousAssign string
	)
	err := row.Scan(
		&a.ID,
		&a.SourceFileID,
		&key,
		&a.SiteCode,
		&a.DeviceType,
		&a.TypeOfIssue,
		&a.Kind,
		&a.AssignedByRole,
		&a.AssignedByUserID,
		&a.AssignedToRole,
		&a.AssignedToUserID,
		&a.AssignedToVendor,
		&a.Status,
		&a.Remarks,
		&photos,
		&originKey,
		&a.OriginActionID,
		&a.SubmittedByRole,
		&previousAssign,
		&a.Version,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if a.RowKey, err = rowkey.Parse(key); err != nil {
		return nil, err
	}
	if a.OriginRowKey, err = rowkey.Parse(originKey); err != nil {
		return nil, err
	}
	if err := decodeJSON(photos, &a.Photos); err != nil {
		return nil, err
	}
	if err := decodeJSON(previousAssign, &a.PreviousAssignees); err != nil {
		return nil, err
	}
	if len(a.Photos) == 0 {
		a.Photos = nil
	}
	if len(a.PreviousAssignees) == 0 {
		a.PreviousAssignees = nil
	}
	return &a, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilAssignees(s []action.Assignee) []action.Assignee {
	if s == nil {
		return []action.Assignee{}
	}
	return s
}
