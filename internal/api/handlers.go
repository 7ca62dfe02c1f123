package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/alexadark/ripreel-api/internal/bible"
	"github.com/alexadark/ripreel-api/internal/db"
	"github.com/alexadark/ripreel-api/internal/models"
	"github.com/alexadark/ripreel-api/internal/registry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// CreateProject handles POST /v1/projects
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req models.CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Title == "" {
		respondError(w, http.StatusBadRequest, "Title is required")
		return
	}

	project := &models.Project{
		ID:          uuid.New(),
		Title:       req.Title,
		Logline:     req.Logline,
		Status:      models.ProjectStatusDraft,
		VisualStyle: req.VisualStyle,
	}

	if err := h.store.CreateProject(r.Context(), project); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create project")
		return
	}

	respondJSON(w, http.StatusCreated, project)
}

// ListProjects handles GET /v1/projects
// Query params:
//   - status: filter by project status (draft, in_progress, completed, archived)
//   - limit:  max results per page (default 20, max 100)
//   - offset: number of results to skip (default 0)
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	statusFilter := r.URL.Query().Get("status")
	if statusFilter != "" {
		switch models.ProjectStatus(statusFilter) {
		case models.ProjectStatusDraft, models.ProjectStatusInProgress,
			models.ProjectStatusCompleted, models.ProjectStatusArchived:
			// valid
		default:
			respondError(w, http.StatusBadRequest, "Invalid status filter. Allowed: draft, in_progress, completed, archived")
			return
		}
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	total, err := h.store.CountProjects(r.Context(), statusFilter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to count projects")
		return
	}

	projects, err := h.store.ListProjects(r.Context(), statusFilter, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list projects")
		return
	}

	respondJSON(w, http.StatusOK, models.ListProjectsResponse{
		Projects: projects,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	})
}

// GetProject handles GET /v1/projects/{id}
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	project, err := h.store.GetProject(r.Context(), projectID)
	if err != nil {
		respondStoreError(w, err, "Project not found")
		return
	}

	scenes, err := h.store.GetProjectScenes(r.Context(), projectID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get scenes")
		return
	}

	response := models.ProjectResponse{Project: *project}
	for _, scene := range scenes {
		sceneResp := models.SceneResponse{Scene: scene, Shots: []models.ShotResponse{}}

		shots, err := h.store.GetSceneShots(r.Context(), scene.ID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to get shots")
			return
		}

		for _, shot := range shots {
			video, err := h.store.GetShotVideo(r.Context(), shot.ID)
			if err != nil {
				respondError(w, http.StatusInternalServerError, "Failed to get shot video")
				return
			}
			sceneResp.Shots = append(sceneResp.Shots, models.ShotResponse{Shot: shot, Video: video})
		}

		response.Scenes = append(response.Scenes, sceneResp)
	}

	respondJSON(w, http.StatusOK, response)
}

// DeleteProject handles DELETE /v1/projects/{id}. Children cascade.
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	if err := h.store.DeleteProject(r.Context(), projectID); err != nil {
		respondStoreError(w, err, "Project not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GetProjectStatus handles GET /v1/projects/{id}/status
func (h *Handler) GetProjectStatus(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	project, err := h.store.GetProject(r.Context(), projectID)
	if err != nil {
		respondStoreError(w, err, "Project not found")
		return
	}

	sceneCount, err := h.store.CountScenes(r.Context(), projectID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to count scenes")
		return
	}

	respondJSON(w, http.StatusOK, models.ProjectStatusResponse{
		Status:     project.Status,
		SceneCount: sceneCount,
	})
}

// CreateScene handles POST /v1/projects/{id}/scenes
func (h *Handler) CreateScene(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	var req models.CreateSceneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SceneNumber < 1 {
		respondError(w, http.StatusBadRequest, "scene_number must be positive")
		return
	}
	if req.Title == "" {
		respondError(w, http.StatusBadRequest, "Title is required")
		return
	}

	if _, err := h.store.GetProject(r.Context(), projectID); err != nil {
		respondStoreError(w, err, "Project not found")
		return
	}

	scene := &models.Scene{
		ID:          uuid.New(),
		ProjectID:   projectID,
		SceneNumber: req.SceneNumber,
		Title:       req.Title,
		Synopsis:    req.Synopsis,
	}

	if err := h.store.CreateScene(r.Context(), scene); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create scene")
		return
	}

	respondJSON(w, http.StatusCreated, scene)
}

// CreateShot handles POST /v1/scenes/{id}/shots
func (h *Handler) CreateShot(w http.ResponseWriter, r *http.Request) {
	sceneID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid scene ID")
		return
	}

	var req models.CreateShotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ShotNumber < 1 {
		respondError(w, http.StatusBadRequest, "shot_number must be positive")
		return
	}
	if req.Description == "" {
		respondError(w, http.StatusBadRequest, "Description is required")
		return
	}
	if req.ShotType == "" {
		req.ShotType = "medium"
	}

	if _, err := h.store.GetScene(r.Context(), sceneID); err != nil {
		respondStoreError(w, err, "Scene not found")
		return
	}

	shot := &models.Shot{
		ID:          uuid.New(),
		SceneID:     sceneID,
		ShotNumber:  req.ShotNumber,
		ShotType:    req.ShotType,
		Description: req.Description,
	}

	if err := h.store.CreateShot(r.Context(), shot); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create shot")
		return
	}

	respondJSON(w, http.StatusCreated, shot)
}

// GenerateShotVideo handles POST /v1/shots/{id}/video. It queues a scene video
// for the shot and immediately runs the reconciler, so the job starts right
// away when the project has a free generation slot.
func (h *Handler) GenerateShotVideo(w http.ResponseWriter, r *http.Request) {
	shotID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid shot ID")
		return
	}

	// Body is optional, every field has a default.
	var req models.GenerateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	shot, err := h.store.GetShot(r.Context(), shotID)
	if err != nil {
		respondStoreError(w, err, "Shot not found")
		return
	}

	if existing, err := h.store.GetShotVideo(r.Context(), shotID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to check existing video")
		return
	} else if existing != nil {
		respondError(w, http.StatusConflict, "Shot already has a video")
		return
	}

	model := registry.DefaultVideoModel
	if req.Model != nil && *req.Model != "" {
		model = *req.Model
	}
	capability, ok := registry.ModelByValue(model)
	if !ok || capability.Kind != registry.KindVideo {
		respondError(w, http.StatusBadRequest, "Unknown video model: "+model)
		return
	}

	aspectRatio := registry.DefaultAspectRatio(shot.ShotType)
	if req.AspectRatio != nil && *req.AspectRatio != "" {
		aspectRatio = *req.AspectRatio
	}
	if !registry.IsAspectRatioSupported(model, aspectRatio) {
		respondError(w, http.StatusBadRequest, "Aspect ratio "+aspectRatio+" not supported by "+model)
		return
	}

	prompt := shot.Description
	if req.Prompt != nil && *req.Prompt != "" {
		prompt = *req.Prompt
	}

	video := &models.SceneVideo{
		ID:          uuid.New(),
		ShotID:      shotID,
		Status:      models.VideoStatusQueued,
		Model:       model,
		AspectRatio: aspectRatio,
		Prompt:      prompt,
	}

	if err := h.store.CreateSceneVideo(r.Context(), video); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to queue video")
		return
	}

	projectID, err := h.store.GetShotProject(r.Context(), shotID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to resolve project")
		return
	}

	// First queued video moves a draft project into production.
	if project, err := h.store.GetProject(r.Context(), projectID); err == nil && project.Status == models.ProjectStatusDraft {
		if err := h.store.UpdateProjectStatus(r.Context(), projectID, models.ProjectStatusInProgress); err != nil {
			log.Printf("[API] failed to move project %s to in_progress: %v", projectID, err)
		}
	}

	triggered, err := h.reconciler.Fill(r.Context(), projectID)
	if err != nil {
		// The row is queued; a later webhook-driven pass will pick it up.
		log.Printf("[API] reconcile after queueing video %s failed: %v", video.ID, err)
	}

	status := models.VideoStatusQueued
	if triggered > 0 {
		status = models.VideoStatusGenerating
	}

	respondJSON(w, http.StatusCreated, models.GenerateVideoResponse{
		VideoID:   video.ID,
		Status:    status,
		Triggered: triggered,
	})
}

// GenerateLocationImage handles POST /v1/locations/{id}/image. It dispatches a
// reference-image job for the location; the result arrives on the
// location-image webhook.
func (h *Handler) GenerateLocationImage(w http.ResponseWriter, r *http.Request) {
	locationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid location ID")
		return
	}

	jobID, err := h.bible.GenerateLocationImage(r.Context(), locationID)
	if err != nil {
		if errors.Is(err, bible.ErrAlreadyGenerating) {
			respondError(w, http.StatusConflict, "Location image generation already in progress")
			return
		}
		if errors.Is(err, db.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Location not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to dispatch location image")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": string(models.VariantStatusGenerating),
	})
}

// CreateBibleVariant handles POST /v1/bible/variants. It creates a new image
// variant for a character or location and dispatches it to the workflow tool.
func (h *Handler) CreateBibleVariant(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateVariantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	kind := models.AssetKind(req.AssetKind)
	if kind != models.AssetKindCharacter && kind != models.AssetKindLocation {
		respondError(w, http.StatusBadRequest, "asset_kind must be \"character\" or \"location\"")
		return
	}

	assetID, err := uuid.Parse(req.AssetID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid asset_id")
		return
	}

	prompt := ""
	if req.Prompt != nil {
		prompt = *req.Prompt
	}

	variant, err := h.bible.GenerateVariant(r.Context(), kind, assetID, prompt)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Asset not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to dispatch image variant")
		return
	}

	respondJSON(w, http.StatusCreated, variant)
}

// maintenanceRequest accepts both key spellings the frontend has used.
type maintenanceRequest struct {
	ProjectID      string `json:"project_id"`
	ProjectIDCamel string `json:"projectId"`
}

func (req maintenanceRequest) parse() (uuid.UUID, error) {
	raw := req.ProjectID
	if raw == "" {
		raw = req.ProjectIDCamel
	}
	if raw == "" {
		return uuid.Nil, errors.New("project_id is required")
	}
	return uuid.Parse(raw)
}

// BibleReset handles POST /v1/bible/reset. It re-dispatches stuck variants.
func (h *Handler) BibleReset(w http.ResponseWriter, r *http.Request) {
	var req maintenanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWebhook(w, http.StatusBadRequest, webhookResponse{Success: false, Error: "invalid request body"})
		return
	}

	projectID, err := req.parse()
	if err != nil {
		respondWebhook(w, http.StatusBadRequest, webhookResponse{Success: false, Error: "project_id is required"})
		return
	}

	if _, err := h.store.GetProject(r.Context(), projectID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			respondWebhook(w, http.StatusNotFound, webhookResponse{Success: false, Error: "project not found"})
			return
		}
		respondWebhook(w, http.StatusInternalServerError, webhookResponse{Success: false, Error: "internal error"})
		return
	}

	reset, err := h.bible.Reset(r.Context(), projectID)
	if err != nil {
		respondWebhook(w, http.StatusInternalServerError, webhookResponse{Success: false, Error: "internal error"})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "reset": reset})
}

// BibleCleanup handles POST /v1/bible/cleanup. It deletes stuck variants.
func (h *Handler) BibleCleanup(w http.ResponseWriter, r *http.Request) {
	var req maintenanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWebhook(w, http.StatusBadRequest, webhookResponse{Success: false, Error: "invalid request body"})
		return
	}

	projectID, err := req.parse()
	if err != nil {
		respondWebhook(w, http.StatusBadRequest, webhookResponse{Success: false, Error: "project_id is required"})
		return
	}

	if _, err := h.store.GetProject(r.Context(), projectID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			respondWebhook(w, http.StatusNotFound, webhookResponse{Success: false, Error: "project not found"})
			return
		}
		respondWebhook(w, http.StatusInternalServerError, webhookResponse{Success: false, Error: "internal error"})
		return
	}

	deleted, err := h.bible.Cleanup(r.Context(), projectID)
	if err != nil {
		respondWebhook(w, http.StatusInternalServerError, webhookResponse{Success: false, Error: "internal error"})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "deleted": deleted})
}

// ListModels handles GET /v1/models, the capability table for UI pickers.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"models": registry.Models()})
}
