package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/desertthunder/framelabel/internal/models"
	"github.com/desertthunder/framelabel/internal/shared"
)

// DraftRepository journals annotations whose save failed, one row per project frame.
type DraftRepository struct {
	db *sql.DB
}

// NewDraftRepository creates a new [DraftRepository] with the given database connection
func NewDraftRepository(db *sql.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

// Put stores annotations for the frame. A repeated failure replaces the payload and bumps the attempt count.
func (r *DraftRepository) Put(ctx context.Context, projectID string, frame int, annotations []models.Annotation, cause error) error {
	if projectID == "" {
		return fmt.Errorf("%w: project id is required", shared.ErrInvalidInput)
	}
	if annotations == nil {
		annotations = []models.Annotation{}
	}

	payload, err := json.Marshal(annotations)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}

	lastError := ""
	if cause != nil {
		lastError = cause.Error()
	}

	ts := now()
	query := `
		INSERT INTO drafts (id, project_id, frame_index, payload, last_error, attempts, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT (project_id, frame_index) DO UPDATE SET
			payload = excluded.payload,
			last_error = excluded.last_error,
			attempts = drafts.attempts + 1,
			updated_at = excluded.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, shared.GenerateID(), projectID, frame, string(payload), lastError, ts, ts); err != nil {
		return fmt.Errorf("failed to store draft: %w", err)
	}
	return nil
}

// Get returns the draft of a frame, wrapping [shared.ErrDraftNotFound] when none exists.
func (r *DraftRepository) Get(ctx context.Context, projectID string, frame int) (*models.Draft, error) {
	query := `
		SELECT id, project_id, frame_index, payload, last_error, attempts, created_at, updated_at
		FROM drafts WHERE project_id = ? AND frame_index = ?
	`
	d, err := scanDraft(r.db.QueryRowContext(ctx, query, projectID, frame))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s frame %d", shared.ErrDraftNotFound, projectID, frame)
	}
	return d, err
}

// List returns drafts ordered by project and frame. An empty projectID lists every project.
func (r *DraftRepository) List(ctx context.Context, projectID string) ([]models.Draft, error) {
	query := `SELECT id, project_id, frame_index, payload, last_error, attempts, created_at, updated_at FROM drafts`
	args := []any{}
	if projectID != "" {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY project_id, frame_index`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query drafts: %w", err)
	}
	defer rows.Close()

	drafts := []models.Draft{}
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating drafts: %w", err)
	}
	return drafts, nil
}

// Delete removes the draft of a frame, wrapping [shared.ErrDraftNotFound] when there was none.
func (r *DraftRepository) Delete(ctx context.Context, projectID string, frame int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM drafts WHERE project_id = ? AND frame_index = ?`, projectID, frame)
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s frame %d", shared.ErrDraftNotFound, projectID, frame)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDraft(s scanner) (*models.Draft, error) {
	var (
		d       models.Draft
		payload string
	)
	if err := s.Scan(&d.ID, &d.ProjectID, &d.Frame, &payload, &d.LastError, &d.Attempts, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan draft: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &d.Annotations); err != nil {
		return nil, fmt.Errorf("failed to decode draft %s: %w", d.ID, err)
	}
	return &d, nil
}
