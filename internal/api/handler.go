package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/alexadark/ripreel-api/internal/db"
	"github.com/alexadark/ripreel-api/internal/models"
	"github.com/google/uuid"
)

// Store is the database surface the handlers consume. *db.DB satisfies it;
// tests swap in fakes.
type Store interface {
	// Projects
	CreateProject(ctx context.Context, project *models.Project) error
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	ListProjects(ctx context.Context, status string, limit, offset int) ([]models.Project, error)
	CountProjects(ctx context.Context, status string) (int, error)
	UpdateProjectStatus(ctx context.Context, id uuid.UUID, status models.ProjectStatus) error
	DeleteProject(ctx context.Context, id uuid.UUID) error
	CountScenes(ctx context.Context, projectID uuid.UUID) (int, error)

	// Scenes and shots
	CreateScene(ctx context.Context, scene *models.Scene) error
	GetScene(ctx context.Context, id uuid.UUID) (*models.Scene, error)
	GetProjectScenes(ctx context.Context, projectID uuid.UUID) ([]models.Scene, error)
	CreateShot(ctx context.Context, shot *models.Shot) error
	GetSceneShots(ctx context.Context, sceneID uuid.UUID) ([]models.Shot, error)
	GetShot(ctx context.Context, id uuid.UUID) (*models.Shot, error)
	GetShotProject(ctx context.Context, shotID uuid.UUID) (uuid.UUID, error)

	// Scene videos
	CreateSceneVideo(ctx context.Context, video *models.SceneVideo) error
	GetShotVideo(ctx context.Context, shotID uuid.UUID) (*models.SceneVideo, error)
	GetSceneVideoProject(ctx context.Context, videoID uuid.UUID) (uuid.UUID, error)
	MarkSceneVideoReady(ctx context.Context, id uuid.UUID, videoURL string, storagePath *string, durationSeconds *float64) error
	MarkSceneVideoFailed(ctx context.Context, id uuid.UUID, errorMessage *string) error

	// Bible
	GetLocation(ctx context.Context, id uuid.UUID) (*models.Location, error)
	MarkLocationImageReady(ctx context.Context, id uuid.UUID, imageURL string, storagePath *string) error
	MarkLocationImageFailed(ctx context.Context, id uuid.UUID, errorMessage *string) error
	GetImageVariant(ctx context.Context, id uuid.UUID) (*models.ImageVariant, error)
	MarkVariantReady(ctx context.Context, id uuid.UUID, imageURL string, storagePath *string) error
	MarkVariantFailed(ctx context.Context, id uuid.UUID, errorMessage *string) error
}

// Reconciler refills free video-generation slots after each terminal
// scene-video transition.
type Reconciler interface {
	Fill(ctx context.Context, projectID uuid.UUID) (int, error)
}

// Maintainer covers the bible generation and maintenance endpoints.
type Maintainer interface {
	GenerateLocationImage(ctx context.Context, locationID uuid.UUID) (string, error)
	GenerateVariant(ctx context.Context, kind models.AssetKind, assetID uuid.UUID, prompt string) (*models.ImageVariant, error)
	Cleanup(ctx context.Context, projectID uuid.UUID) (int, error)
	Reset(ctx context.Context, projectID uuid.UUID) (int, error)
}

// AssetMirror copies a time-limited provider URL into durable storage.
type AssetMirror interface {
	MirrorRemote(ctx context.Context, remoteURL, path string) (string, error)
}

// DedupGuard short-circuits redelivered webhook callbacks. Optional.
type DedupGuard interface {
	Seen(ctx context.Context, key string) bool
	MarkProcessed(ctx context.Context, key string)
}

type Handler struct {
	store      Store
	reconciler Reconciler
	bible      Maintainer
	mirror     AssetMirror
	dedup      DedupGuard // nil when Redis is not configured
}

func NewHandler(store Store, reconciler Reconciler, bible Maintainer, mirror AssetMirror, dedup DedupGuard) *Handler {
	return &Handler{
		store:      store,
		reconciler: reconciler,
		bible:      bible,
		mirror:     mirror,
		dedup:      dedup,
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondStoreError maps store errors at the handler boundary: missing rows
// become 404s, anything else a generic 500.
func respondStoreError(w http.ResponseWriter, err error, notFoundMsg string) {
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusNotFound, notFoundMsg)
		return
	}
	respondError(w, http.StatusInternalServerError, "Internal error")
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
