package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/framelabel/internal/models"
	"github.com/desertthunder/framelabel/internal/shared"
)

// HistoryRepository records the last frame visited per project.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a new [HistoryRepository] with the given database connection
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Record upserts the visited frame of projectID.
func (r *HistoryRepository) Record(ctx context.Context, projectID string, frame, totalFrames int) error {
	if projectID == "" {
		return fmt.Errorf("%w: project id is required", shared.ErrInvalidInput)
	}

	query := `
		INSERT INTO frame_history (project_id, frame_index, total_frames, visited_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (project_id) DO UPDATE SET
			frame_index = excluded.frame_index,
			total_frames = excluded.total_frames,
			visited_at = excluded.visited_at
	`

	if _, err := r.db.ExecContext(ctx, query, projectID, frame, totalFrames, now()); err != nil {
		return fmt.Errorf("failed to record frame history: %w", err)
	}
	return nil
}

// Last returns the entry of projectID, wrapping [shared.ErrProjectNotFound] when none exists.
func (r *HistoryRepository) Last(ctx context.Context, projectID string) (*models.HistoryEntry, error) {
	query := `SELECT project_id, frame_index, total_frames, visited_at FROM frame_history WHERE project_id = ?`

	var e models.HistoryEntry
	err := r.db.QueryRowContext(ctx, query, projectID).Scan(&e.ProjectID, &e.Frame, &e.TotalFrames, &e.VisitedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no history for %s", shared.ErrProjectNotFound, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query frame history: %w", err)
	}
	return &e, nil
}

// List returns entries ordered by most recent visit. A non-positive limit returns all.
func (r *HistoryRepository) List(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	query := `SELECT project_id, frame_index, total_frames, visited_at FROM frame_history ORDER BY visited_at DESC, project_id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query frame history: %w", err)
	}
	defer rows.Close()

	entries := []models.HistoryEntry{}
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.ProjectID, &e.Frame, &e.TotalFrames, &e.VisitedAt); err != nil {
			return nil, fmt.Errorf("failed to scan frame history: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating frame history: %w", err)
	}
	return entries, nil
}

// Forget removes the entry of projectID.
func (r *HistoryRepository) Forget(ctx context.Context, projectID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM frame_history WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("failed to delete frame history: %w", err)
	}
	return nil
}
