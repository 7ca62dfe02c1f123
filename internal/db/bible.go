package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexadark/ripreel-api/internal/models"
	"github.com/google/uuid"
)

func (db *DB) GetCharacter(ctx context.Context, id uuid.UUID) (*models.Character, error) {
	query := `
		SELECT id, project_id, name, description, approval_status,
			created_at, updated_at
		FROM characters
		WHERE id = $1
	`

	c := &models.Character{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.ProjectID, &c.Name, &c.Description, &c.ApprovalStatus,
		&c.CreatedAt, &c.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get character: %w", err)
	}

	return c, nil
}

func (db *DB) GetLocation(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	query := `
		SELECT id, project_id, name, description, reference_image_url,
			storage_path, status, job_id, error_message, approval_status,
			created_at, updated_at
		FROM locations
		WHERE id = $1
	`

	loc := &models.Location{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&loc.ID, &loc.ProjectID, &loc.Name, &loc.Description, &loc.ReferenceImageURL,
		&loc.StoragePath, &loc.Status, &loc.JobID, &loc.ErrorMessage, &loc.ApprovalStatus,
		&loc.CreatedAt, &loc.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get location: %w", err)
	}

	return loc, nil
}

// MarkLocationImageReady records the final reference image for a location.
func (db *DB) MarkLocationImageReady(ctx context.Context, id uuid.UUID, imageURL string, storagePath *string) error {
	query := `
		UPDATE locations
		SET status = $1, reference_image_url = $2, storage_path = $3,
			job_id = NULL, error_message = NULL, updated_at = NOW()
		WHERE id = $4
	`

	res, err := db.ExecContext(ctx, query, models.VariantStatusReady, imageURL, storagePath, id)
	if err != nil {
		return fmt.Errorf("failed to mark location image ready: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) MarkLocationImageFailed(ctx context.Context, id uuid.UUID, errorMessage *string) error {
	query := `
		UPDATE locations
		SET status = $1, error_message = $2, job_id = NULL, updated_at = NOW()
		WHERE id = $3
	`

	res, err := db.ExecContext(ctx, query, models.VariantStatusFailed, errorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to mark location image failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetLocationJob moves a location into "generating" with a fresh workflow job
// reference, clearing any stale error from a previous attempt.
func (db *DB) SetLocationJob(ctx context.Context, id uuid.UUID, jobID string) error {
	query := `
		UPDATE locations
		SET status = $1, job_id = $2, error_message = NULL, updated_at = NOW()
		WHERE id = $3
	`

	res, err := db.ExecContext(ctx, query, models.VariantStatusGenerating, jobID, id)
	if err != nil {
		return fmt.Errorf("failed to set location job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) CreateImageVariant(ctx context.Context, v *models.ImageVariant) error {
	query := `
		INSERT INTO bible_image_variants (id, asset_kind, asset_id, project_id, status, prompt, job_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	return db.QueryRowContext(
		ctx, query,
		v.ID, v.AssetKind, v.AssetID, v.ProjectID, v.Status, v.Prompt, v.JobID,
	).Scan(&v.CreatedAt, &v.UpdatedAt)
}

func (db *DB) GetImageVariant(ctx context.Context, id uuid.UUID) (*models.ImageVariant, error) {
	query := `
		SELECT id, asset_kind, asset_id, project_id, status, prompt,
			image_url, storage_path, approved, job_id, error_message,
			created_at, updated_at
		FROM bible_image_variants
		WHERE id = $1
	`

	v := &models.ImageVariant{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&v.ID, &v.AssetKind, &v.AssetID, &v.ProjectID, &v.Status, &v.Prompt,
		&v.ImageURL, &v.StoragePath, &v.Approved, &v.JobID, &v.ErrorMessage,
		&v.CreatedAt, &v.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image variant: %w", err)
	}

	return v, nil
}

func (db *DB) MarkVariantReady(ctx context.Context, id uuid.UUID, imageURL string, storagePath *string) error {
	query := `
		UPDATE bible_image_variants
		SET status = $1, image_url = $2, storage_path = $3,
			job_id = NULL, error_message = NULL, updated_at = NOW()
		WHERE id = $4
	`

	res, err := db.ExecContext(ctx, query, models.VariantStatusReady, imageURL, storagePath, id)
	if err != nil {
		return fmt.Errorf("failed to mark variant ready: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) MarkVariantFailed(ctx context.Context, id uuid.UUID, errorMessage *string) error {
	query := `
		UPDATE bible_image_variants
		SET status = $1, error_message = $2, job_id = NULL, updated_at = NOW()
		WHERE id = $3
	`

	res, err := db.ExecContext(ctx, query, models.VariantStatusFailed, errorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to mark variant failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetVariantJob records a fresh workflow job reference on a re-dispatched variant.
func (db *DB) SetVariantJob(ctx context.Context, id uuid.UUID, jobID string) error {
	query := `UPDATE bible_image_variants SET job_id = $1, updated_at = NOW() WHERE id = $2`
	res, err := db.ExecContext(ctx, query, jobID, id)
	if err != nil {
		return fmt.Errorf("failed to set variant job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListGeneratingVariants returns a project's image variants stuck in
// "generating" (orphaned by a missed webhook), oldest first.
func (db *DB) ListGeneratingVariants(ctx context.Context, projectID uuid.UUID) ([]models.ImageVariant, error) {
	query := `
		SELECT id, asset_kind, asset_id, project_id, status, prompt,
			image_url, storage_path, approved, job_id, error_message,
			created_at, updated_at
		FROM bible_image_variants
		WHERE project_id = $1 AND status = $2
		ORDER BY created_at
	`

	rows, err := db.QueryContext(ctx, query, projectID, models.VariantStatusGenerating)
	if err != nil {
		return nil, fmt.Errorf("failed to query generating variants: %w", err)
	}
	defer rows.Close()

	var variants []models.ImageVariant
	for rows.Next() {
		var v models.ImageVariant
		if err := rows.Scan(
			&v.ID, &v.AssetKind, &v.AssetID, &v.ProjectID, &v.Status, &v.Prompt,
			&v.ImageURL, &v.StoragePath, &v.Approved, &v.JobID, &v.ErrorMessage,
			&v.CreatedAt, &v.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan image variant: %w", err)
		}
		variants = append(variants, v)
	}

	return variants, rows.Err()
}

// DeleteGeneratingVariants removes a project's stuck "generating" variants and
// returns how many were deleted. Ready and failed rows are untouched.
func (db *DB) DeleteGeneratingVariants(ctx context.Context, projectID uuid.UUID) (int, error) {
	query := `DELETE FROM bible_image_variants WHERE project_id = $1 AND status = $2`

	res, err := db.ExecContext(ctx, query, projectID, models.VariantStatusGenerating)
	if err != nil {
		return 0, fmt.Errorf("failed to delete generating variants: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted variants: %w", err)
	}

	return int(n), nil
}
