package models

import (
	"time"

	"github.com/google/uuid"
)

// Enums
type ProjectStatus string

const (
	ProjectStatusDraft      ProjectStatus = "draft"
	ProjectStatusInProgress ProjectStatus = "in_progress"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusArchived   ProjectStatus = "archived"
)

// VideoStatus tracks one scene-video generation job.
// queued → generating happens only via the reconciler's atomic claim;
// generating → ready/failed happens only via the n8n completion webhook.
type VideoStatus string

const (
	VideoStatusQueued     VideoStatus = "queued"
	VideoStatusGenerating VideoStatus = "generating"
	VideoStatusReady      VideoStatus = "ready"
	VideoStatusFailed     VideoStatus = "failed"
)

type VariantStatus string

const (
	VariantStatusGenerating VariantStatus = "generating"
	VariantStatusReady      VariantStatus = "ready"
	VariantStatusFailed     VariantStatus = "failed"
)

type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// AssetKind distinguishes which bible table an image variant belongs to.
type AssetKind string

const (
	AssetKindCharacter AssetKind = "character"
	AssetKindLocation  AssetKind = "location"
)

// Models

type Project struct {
	ID          uuid.UUID     `json:"id"`
	Title       string        `json:"title"`
	Logline     *string       `json:"logline,omitempty"`
	Status      ProjectStatus `json:"status"`
	VisualStyle *string       `json:"visual_style,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type Scene struct {
	ID          uuid.UUID `json:"id"`
	ProjectID   uuid.UUID `json:"project_id"`
	SceneNumber int       `json:"scene_number"`
	Title       string    `json:"title"`
	Synopsis    *string   `json:"synopsis,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Shot struct {
	ID               uuid.UUID `json:"id"`
	SceneID          uuid.UUID `json:"scene_id"`
	ShotNumber       int       `json:"shot_number"`
	ShotType         string    `json:"shot_type"` // "wide", "medium", "close_up", "vertical", ...
	Description      string    `json:"description"`
	ApprovedImageURL *string   `json:"approved_image_url,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type SceneVideo struct {
	ID              uuid.UUID   `json:"id"`
	ShotID          uuid.UUID   `json:"shot_id"`
	Status          VideoStatus `json:"status"`
	Model           string      `json:"model"`
	AspectRatio     string      `json:"aspect_ratio"`
	Prompt          string      `json:"prompt"`
	VideoURL        *string     `json:"video_url,omitempty"`
	StoragePath     *string     `json:"storage_path,omitempty"`
	DurationSeconds *float64    `json:"duration_seconds,omitempty"`
	JobID           *string     `json:"job_id,omitempty"` // external workflow job reference, cleared on terminal transition
	ErrorMessage    *string     `json:"error_message,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

type Character struct {
	ID             uuid.UUID      `json:"id"`
	ProjectID      uuid.UUID      `json:"project_id"`
	Name           string         `json:"name"`
	Description    *string        `json:"description,omitempty"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

type Location struct {
	ID                uuid.UUID      `json:"id"`
	ProjectID         uuid.UUID      `json:"project_id"`
	Name              string         `json:"name"`
	Description       *string        `json:"description,omitempty"`
	ReferenceImageURL *string        `json:"reference_image_url,omitempty"`
	StoragePath       *string        `json:"storage_path,omitempty"`
	Status            VariantStatus  `json:"status"`
	JobID             *string        `json:"job_id,omitempty"`
	ErrorMessage      *string        `json:"error_message,omitempty"`
	ApprovalStatus    ApprovalStatus `json:"approval_status"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// ImageVariant is one candidate generated image for a bible asset
// (character or location), pending approval.
type ImageVariant struct {
	ID           uuid.UUID     `json:"id"`
	AssetKind    AssetKind     `json:"asset_kind"`
	AssetID      uuid.UUID     `json:"asset_id"`
	ProjectID    uuid.UUID     `json:"project_id"`
	Status       VariantStatus `json:"status"`
	Prompt       string        `json:"prompt"`
	ImageURL     *string       `json:"image_url,omitempty"`
	StoragePath  *string       `json:"storage_path,omitempty"`
	Approved     bool          `json:"approved"`
	JobID        *string       `json:"job_id,omitempty"`
	ErrorMessage *string       `json:"error_message,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// VideoCandidate is the slice of a queued scene video the reconciler needs to
// dispatch it: identity plus everything that goes into the workflow request.
type VideoCandidate struct {
	VideoID          uuid.UUID
	ShotID           uuid.UUID
	ProjectID        uuid.UUID
	SceneNumber      int
	ShotNumber       int
	Model            string
	AspectRatio      string
	Prompt           string
	ApprovedImageURL *string
	VisualStyle      *string
}

// DTOs for API responses

type SceneResponse struct {
	Scene
	Shots []ShotResponse `json:"shots"`
}

type ShotResponse struct {
	Shot
	Video *SceneVideo `json:"video,omitempty"`
}

type ProjectResponse struct {
	Project
	Scenes []SceneResponse `json:"scenes,omitempty"`
}

type ProjectStatusResponse struct {
	Status     ProjectStatus `json:"status"`
	SceneCount int           `json:"sceneCount"`
}

type ListProjectsResponse struct {
	Projects []Project `json:"projects"`
	Total    int       `json:"total"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
}

type CreateProjectRequest struct {
	Title       string  `json:"title"`
	Logline     *string `json:"logline,omitempty"`
	VisualStyle *string `json:"visual_style,omitempty"`
}

type CreateSceneRequest struct {
	SceneNumber int     `json:"scene_number"`
	Title       string  `json:"title"`
	Synopsis    *string `json:"synopsis,omitempty"`
}

type CreateShotRequest struct {
	ShotNumber  int    `json:"shot_number"`
	ShotType    string `json:"shot_type"`
	Description string `json:"description"`
}

type GenerateVariantRequest struct {
	AssetKind string  `json:"asset_kind"`
	AssetID   string  `json:"asset_id"`
	Prompt    *string `json:"prompt,omitempty"`
}

type GenerateVideoRequest struct {
	Model       *string `json:"model,omitempty"`
	AspectRatio *string `json:"aspect_ratio,omitempty"`
	Prompt      *string `json:"prompt,omitempty"`
}

type GenerateVideoResponse struct {
	VideoID   uuid.UUID   `json:"video_id"`
	Status    VideoStatus `json:"status"`
	Triggered int         `json:"triggered"`
}
