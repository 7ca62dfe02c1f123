package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexadark/ripreel-api/internal/models"
	"github.com/google/uuid"
)

func (db *DB) CreateSceneVideo(ctx context.Context, video *models.SceneVideo) error {
	query := `
		INSERT INTO scene_videos (id, shot_id, status, model, aspect_ratio, prompt)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	return db.QueryRowContext(
		ctx, query,
		video.ID, video.ShotID, video.Status, video.Model, video.AspectRatio, video.Prompt,
	).Scan(&video.CreatedAt, &video.UpdatedAt)
}

func (db *DB) GetSceneVideo(ctx context.Context, id uuid.UUID) (*models.SceneVideo, error) {
	query := `
		SELECT id, shot_id, status, model, aspect_ratio, prompt,
			video_url, storage_path, duration_seconds, job_id, error_message,
			created_at, updated_at
		FROM scene_videos
		WHERE id = $1
	`

	v := &models.SceneVideo{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&v.ID, &v.ShotID, &v.Status, &v.Model, &v.AspectRatio, &v.Prompt,
		&v.VideoURL, &v.StoragePath, &v.DurationSeconds, &v.JobID, &v.ErrorMessage,
		&v.CreatedAt, &v.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scene video: %w", err)
	}

	return v, nil
}

// GetShotVideo returns the video for a shot, or nil when none exists.
// Shots carry at most one video; the create path enforces that.
func (db *DB) GetShotVideo(ctx context.Context, shotID uuid.UUID) (*models.SceneVideo, error) {
	query := `
		SELECT id, shot_id, status, model, aspect_ratio, prompt,
			video_url, storage_path, duration_seconds, job_id, error_message,
			created_at, updated_at
		FROM scene_videos
		WHERE shot_id = $1
	`

	v := &models.SceneVideo{}
	err := db.QueryRowContext(ctx, query, shotID).Scan(
		&v.ID, &v.ShotID, &v.Status, &v.Model, &v.AspectRatio, &v.Prompt,
		&v.VideoURL, &v.StoragePath, &v.DurationSeconds, &v.JobID, &v.ErrorMessage,
		&v.CreatedAt, &v.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shot video: %w", err)
	}

	return v, nil
}

// GetSceneVideoProject resolves the owning project of a scene video. Used by
// the completion webhook to know which project to reconcile.
func (db *DB) GetSceneVideoProject(ctx context.Context, videoID uuid.UUID) (uuid.UUID, error) {
	query := `
		SELECT sc.project_id
		FROM scene_videos v
		JOIN shots sh ON v.shot_id = sh.id
		JOIN scenes sc ON sh.scene_id = sc.id
		WHERE v.id = $1
	`

	var projectID uuid.UUID
	err := db.QueryRowContext(ctx, query, videoID).Scan(&projectID)
	if err == sql.ErrNoRows {
		return uuid.Nil, ErrNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to resolve scene video project: %w", err)
	}

	return projectID, nil
}

// MarkSceneVideoReady records a terminal success: final URL, optional durable
// storage path and duration, job reference and error cleared.
func (db *DB) MarkSceneVideoReady(ctx context.Context, id uuid.UUID, videoURL string, storagePath *string, durationSeconds *float64) error {
	query := `
		UPDATE scene_videos
		SET status = $1, video_url = $2, storage_path = $3, duration_seconds = $4,
			job_id = NULL, error_message = NULL, updated_at = NOW()
		WHERE id = $5
	`

	res, err := db.ExecContext(ctx, query, models.VideoStatusReady, videoURL, storagePath, durationSeconds, id)
	if err != nil {
		return fmt.Errorf("failed to mark scene video ready: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkSceneVideoFailed records a terminal failure. errorMessage may be nil,
// the column is then cleared to NULL rather than left stale.
func (db *DB) MarkSceneVideoFailed(ctx context.Context, id uuid.UUID, errorMessage *string) error {
	query := `
		UPDATE scene_videos
		SET status = $1, error_message = $2, job_id = NULL, updated_at = NOW()
		WHERE id = $3
	`

	res, err := db.ExecContext(ctx, query, models.VideoStatusFailed, errorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to mark scene video failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetSceneVideoJob records the external workflow job reference after a
// dispatch was accepted.
func (db *DB) SetSceneVideoJob(ctx context.Context, id uuid.UUID, jobID string) error {
	query := `UPDATE scene_videos SET job_id = $1, updated_at = NOW() WHERE id = $2`
	res, err := db.ExecContext(ctx, query, jobID, id)
	if err != nil {
		return fmt.Errorf("failed to set scene video job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ClaimNextQueuedVideo atomically claims the next queued scene video for a
// project, respecting the per-project cap on concurrent "generating" rows.
//
// The project row is locked FOR UPDATE for the duration of the transaction, so
// concurrent reconciliation passes (two webhooks completing near-simultaneously)
// serialize here and cannot both observe a free slot. The status flip itself is
// still guarded by WHERE status = 'queued' as a second line of defense.
//
// Returns (nil, nil) when the project is at capacity or has no queued
// candidates, and ErrNotFound when the project does not exist.
func (db *DB) ClaimNextQueuedVideo(ctx context.Context, projectID uuid.UUID, maxGenerating int) (*models.VideoCandidate, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin claim transaction: %w", err)
	}
	defer tx.Rollback()

	var locked uuid.UUID
	err = tx.QueryRowContext(ctx, `SELECT id FROM projects WHERE id = $1 FOR UPDATE`, projectID).Scan(&locked)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock project: %w", err)
	}

	var generating int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM scene_videos v
		JOIN shots sh ON v.shot_id = sh.id
		JOIN scenes sc ON sh.scene_id = sc.id
		WHERE sc.project_id = $1 AND v.status = $2
	`, projectID, models.VideoStatusGenerating).Scan(&generating)
	if err != nil {
		return nil, fmt.Errorf("failed to count generating videos: %w", err)
	}

	if generating >= maxGenerating {
		return nil, nil
	}

	cand := &models.VideoCandidate{}
	err = tx.QueryRowContext(ctx, `
		SELECT v.id, v.shot_id, sc.project_id, sc.scene_number, sh.shot_number,
			v.model, v.aspect_ratio, v.prompt, sh.approved_image_url, p.visual_style
		FROM scene_videos v
		JOIN shots sh ON v.shot_id = sh.id
		JOIN scenes sc ON sh.scene_id = sc.id
		JOIN projects p ON sc.project_id = p.id
		WHERE sc.project_id = $1 AND v.status = $2
		ORDER BY sc.scene_number, sh.shot_number
		LIMIT 1
	`, projectID, models.VideoStatusQueued).Scan(
		&cand.VideoID, &cand.ShotID, &cand.ProjectID, &cand.SceneNumber, &cand.ShotNumber,
		&cand.Model, &cand.AspectRatio, &cand.Prompt, &cand.ApprovedImageURL, &cand.VisualStyle,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select queued candidate: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE scene_videos SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, models.VideoStatusGenerating, cand.VideoID, models.VideoStatusQueued)
	if err != nil {
		return nil, fmt.Errorf("failed to claim scene video: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		// Someone else flipped the row between select and update. The project
		// lock should make this impossible, but don't claim what we didn't win.
		return nil, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}

	return cand, nil
}
