package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexadark/ripreel-api/internal/models"
	"github.com/google/uuid"
)

func (db *DB) CreateScene(ctx context.Context, scene *models.Scene) error {
	query := `
		INSERT INTO scenes (id, project_id, scene_number, title, synopsis)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	return db.QueryRowContext(
		ctx, query,
		scene.ID, scene.ProjectID, scene.SceneNumber, scene.Title, scene.Synopsis,
	).Scan(&scene.CreatedAt, &scene.UpdatedAt)
}

func (db *DB) GetProjectScenes(ctx context.Context, projectID uuid.UUID) ([]models.Scene, error) {
	query := `
		SELECT id, project_id, scene_number, title, synopsis, created_at, updated_at
		FROM scenes
		WHERE project_id = $1
		ORDER BY scene_number
	`

	rows, err := db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenes: %w", err)
	}
	defer rows.Close()

	var scenes []models.Scene
	for rows.Next() {
		var s models.Scene
		if err := rows.Scan(
			&s.ID, &s.ProjectID, &s.SceneNumber, &s.Title, &s.Synopsis,
			&s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan scene: %w", err)
		}
		scenes = append(scenes, s)
	}

	return scenes, rows.Err()
}

func (db *DB) GetScene(ctx context.Context, id uuid.UUID) (*models.Scene, error) {
	query := `
		SELECT id, project_id, scene_number, title, synopsis, created_at, updated_at
		FROM scenes
		WHERE id = $1
	`

	scene := &models.Scene{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&scene.ID, &scene.ProjectID, &scene.SceneNumber, &scene.Title,
		&scene.Synopsis, &scene.CreatedAt, &scene.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scene: %w", err)
	}

	return scene, nil
}

func (db *DB) CreateShot(ctx context.Context, shot *models.Shot) error {
	query := `
		INSERT INTO shots (id, scene_id, shot_number, shot_type, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	return db.QueryRowContext(
		ctx, query,
		shot.ID, shot.SceneID, shot.ShotNumber, shot.ShotType, shot.Description,
	).Scan(&shot.CreatedAt, &shot.UpdatedAt)
}

func (db *DB) GetSceneShots(ctx context.Context, sceneID uuid.UUID) ([]models.Shot, error) {
	query := `
		SELECT id, scene_id, shot_number, shot_type, description,
			approved_image_url, created_at, updated_at
		FROM shots
		WHERE scene_id = $1
		ORDER BY shot_number
	`

	rows, err := db.QueryContext(ctx, query, sceneID)
	if err != nil {
		return nil, fmt.Errorf("failed to query shots: %w", err)
	}
	defer rows.Close()

	var shots []models.Shot
	for rows.Next() {
		var s models.Shot
		if err := rows.Scan(
			&s.ID, &s.SceneID, &s.ShotNumber, &s.ShotType, &s.Description,
			&s.ApprovedImageURL, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan shot: %w", err)
		}
		shots = append(shots, s)
	}

	return shots, rows.Err()
}

func (db *DB) GetShot(ctx context.Context, id uuid.UUID) (*models.Shot, error) {
	query := `
		SELECT id, scene_id, shot_number, shot_type, description,
			approved_image_url, created_at, updated_at
		FROM shots
		WHERE id = $1
	`

	shot := &models.Shot{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&shot.ID, &shot.SceneID, &shot.ShotNumber, &shot.ShotType,
		&shot.Description, &shot.ApprovedImageURL,
		&shot.CreatedAt, &shot.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shot: %w", err)
	}

	return shot, nil
}

// GetShotProject resolves the owning project of a shot via its scene.
func (db *DB) GetShotProject(ctx context.Context, shotID uuid.UUID) (uuid.UUID, error) {
	query := `
		SELECT sc.project_id
		FROM shots sh
		JOIN scenes sc ON sh.scene_id = sc.id
		WHERE sh.id = $1
	`

	var projectID uuid.UUID
	err := db.QueryRowContext(ctx, query, shotID).Scan(&projectID)
	if err == sql.ErrNoRows {
		return uuid.Nil, ErrNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to resolve shot project: %w", err)
	}

	return projectID, nil
}
