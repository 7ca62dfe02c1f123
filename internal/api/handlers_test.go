package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexadark/ripreel-api/internal/bible"
	"github.com/alexadark/ripreel-api/internal/db"
	"github.com/alexadark/ripreel-api/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// fakeAPIStore layers the CRUD surface the project/shot handlers need on top
// of the webhook fake.
type fakeAPIStore struct {
	fakeWebhookStore

	projects      map[uuid.UUID]*models.Project
	scenes        map[uuid.UUID][]models.Scene
	shots         map[uuid.UUID]*models.Shot
	sceneShots    map[uuid.UUID][]models.Shot
	shotProjects  map[uuid.UUID]uuid.UUID
	shotVideos    map[uuid.UUID]*models.SceneVideo
	shotVideoErr  error
	createdVideos []*models.SceneVideo
	statusUpdates []models.ProjectStatus
}

func (s *fakeAPIStore) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	p, ok := s.projects[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return p, nil
}

func (s *fakeAPIStore) UpdateProjectStatus(ctx context.Context, id uuid.UUID, status models.ProjectStatus) error {
	p, ok := s.projects[id]
	if !ok {
		return db.ErrNotFound
	}
	p.Status = status
	s.statusUpdates = append(s.statusUpdates, status)
	return nil
}

func (s *fakeAPIStore) GetProjectScenes(ctx context.Context, projectID uuid.UUID) ([]models.Scene, error) {
	return s.scenes[projectID], nil
}

func (s *fakeAPIStore) GetSceneShots(ctx context.Context, sceneID uuid.UUID) ([]models.Shot, error) {
	return s.sceneShots[sceneID], nil
}

func (s *fakeAPIStore) GetShot(ctx context.Context, id uuid.UUID) (*models.Shot, error) {
	shot, ok := s.shots[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return shot, nil
}

func (s *fakeAPIStore) GetShotProject(ctx context.Context, shotID uuid.UUID) (uuid.UUID, error) {
	projectID, ok := s.shotProjects[shotID]
	if !ok {
		return uuid.Nil, db.ErrNotFound
	}
	return projectID, nil
}

func (s *fakeAPIStore) GetShotVideo(ctx context.Context, shotID uuid.UUID) (*models.SceneVideo, error) {
	if s.shotVideoErr != nil {
		return nil, s.shotVideoErr
	}
	return s.shotVideos[shotID], nil
}

func (s *fakeAPIStore) CreateSceneVideo(ctx context.Context, video *models.SceneVideo) error {
	s.createdVideos = append(s.createdVideos, video)
	return nil
}

type variantCall struct {
	kind    models.AssetKind
	assetID uuid.UUID
	prompt  string
}

type fakeMaintainer struct {
	jobID   string
	locErr  error
	variant *models.ImageVariant
	varErr  error

	locCalls []uuid.UUID
	varCalls []variantCall
}

func (m *fakeMaintainer) GenerateLocationImage(ctx context.Context, locationID uuid.UUID) (string, error) {
	m.locCalls = append(m.locCalls, locationID)
	if m.locErr != nil {
		return "", m.locErr
	}
	return m.jobID, nil
}

func (m *fakeMaintainer) GenerateVariant(ctx context.Context, kind models.AssetKind, assetID uuid.UUID, prompt string) (*models.ImageVariant, error) {
	m.varCalls = append(m.varCalls, variantCall{kind, assetID, prompt})
	if m.varErr != nil {
		return nil, m.varErr
	}
	return m.variant, nil
}

func (m *fakeMaintainer) Cleanup(ctx context.Context, projectID uuid.UUID) (int, error) {
	return 0, nil
}

func (m *fakeMaintainer) Reset(ctx context.Context, projectID uuid.UUID) (int, error) {
	return 0, nil
}

// doRequest routes the request with a chi URL param so chi.URLParam resolves.
func doRequest(t *testing.T, handler http.HandlerFunc, method, id string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, "/", nil)
	} else {
		req = httptest.NewRequest(method, "/", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func newShotFixture(projectStatus models.ProjectStatus) (*fakeAPIStore, uuid.UUID, uuid.UUID) {
	projectID := uuid.New()
	shotID := uuid.New()
	store := &fakeAPIStore{
		projects: map[uuid.UUID]*models.Project{
			projectID: {ID: projectID, Title: "Harbor Story", Status: projectStatus},
		},
		shots: map[uuid.UUID]*models.Shot{
			shotID: {ID: shotID, ShotNumber: 1, ShotType: "medium", Description: "captain at the wheel"},
		},
		shotProjects: map[uuid.UUID]uuid.UUID{shotID: projectID},
		shotVideos:   map[uuid.UUID]*models.SceneVideo{},
	}
	return store, projectID, shotID
}

func TestGenerateShotVideoMovesDraftProjectInProgress(t *testing.T) {
	store, projectID, shotID := newShotFixture(models.ProjectStatusDraft)

	h := NewHandler(store, &fakeReconciler{result: 1}, &fakeMaintainer{}, &fakeMirror{}, nil)
	w := doRequest(t, h.GenerateShotVideo, http.MethodPost, shotID.String(), "")

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if len(store.statusUpdates) != 1 || store.statusUpdates[0] != models.ProjectStatusInProgress {
		t.Errorf("expected one in_progress update, got %v", store.statusUpdates)
	}
	if store.projects[projectID].Status != models.ProjectStatusInProgress {
		t.Errorf("project still %s", store.projects[projectID].Status)
	}
}

func TestGenerateShotVideoKeepsNonDraftStatus(t *testing.T) {
	store, projectID, shotID := newShotFixture(models.ProjectStatusInProgress)

	h := NewHandler(store, &fakeReconciler{result: 1}, &fakeMaintainer{}, &fakeMirror{}, nil)
	w := doRequest(t, h.GenerateShotVideo, http.MethodPost, shotID.String(), "")

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if len(store.statusUpdates) != 0 {
		t.Errorf("non-draft project must not be touched, got %v", store.statusUpdates)
	}
	if store.projects[projectID].Status != models.ProjectStatusInProgress {
		t.Errorf("project status changed to %s", store.projects[projectID].Status)
	}
}

func TestGenerateShotVideoStatusFollowsTriggered(t *testing.T) {
	for _, tc := range []struct {
		triggered int
		want      models.VideoStatus
	}{
		{triggered: 1, want: models.VideoStatusGenerating},
		{triggered: 0, want: models.VideoStatusQueued},
	} {
		store, _, shotID := newShotFixture(models.ProjectStatusInProgress)

		h := NewHandler(store, &fakeReconciler{result: tc.triggered}, &fakeMaintainer{}, &fakeMirror{}, nil)
		w := doRequest(t, h.GenerateShotVideo, http.MethodPost, shotID.String(), "")

		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", w.Code)
		}
		var resp models.GenerateVideoResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Status != tc.want {
			t.Errorf("triggered=%d: expected status %s, got %s", tc.triggered, tc.want, resp.Status)
		}
		if resp.Triggered != tc.triggered {
			t.Errorf("expected triggered=%d, got %d", tc.triggered, resp.Triggered)
		}
	}
}

func TestGetProjectSurfacesShotVideoError(t *testing.T) {
	projectID := uuid.New()
	sceneID := uuid.New()
	store := &fakeAPIStore{
		projects: map[uuid.UUID]*models.Project{
			projectID: {ID: projectID, Title: "Harbor Story", Status: models.ProjectStatusInProgress},
		},
		scenes: map[uuid.UUID][]models.Scene{
			projectID: {{ID: sceneID, ProjectID: projectID, SceneNumber: 1, Title: "Opening"}},
		},
		sceneShots: map[uuid.UUID][]models.Shot{
			sceneID: {{ID: uuid.New(), SceneID: sceneID, ShotNumber: 1, ShotType: "wide", Description: "harbor at dawn"}},
		},
		shotVideoErr: errNotWired,
	}

	h := NewHandler(store, &fakeReconciler{}, &fakeMaintainer{}, &fakeMirror{}, nil)
	w := doRequest(t, h.GetProject, http.MethodGet, projectID.String(), "")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("a failing video read must surface as 500, got %d", w.Code)
	}
}

func TestGenerateLocationImageEndpoint(t *testing.T) {
	locationID := uuid.New()
	maintainer := &fakeMaintainer{jobID: "job-123"}

	h := NewHandler(&fakeAPIStore{}, &fakeReconciler{}, maintainer, &fakeMirror{}, nil)
	w := doRequest(t, h.GenerateLocationImage, http.MethodPost, locationID.String(), "")

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	if len(maintainer.locCalls) != 1 || maintainer.locCalls[0] != locationID {
		t.Errorf("maintainer not called for %s: %v", locationID, maintainer.locCalls)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["job_id"] != "job-123" || resp["status"] != "generating" {
		t.Errorf("unexpected response: %v", resp)
	}
}

func TestGenerateLocationImageConflictAndNotFound(t *testing.T) {
	h := NewHandler(&fakeAPIStore{}, &fakeReconciler{}, &fakeMaintainer{locErr: bible.ErrAlreadyGenerating}, &fakeMirror{}, nil)
	w := doRequest(t, h.GenerateLocationImage, http.MethodPost, uuid.New().String(), "")
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 while a job is in flight, got %d", w.Code)
	}

	h = NewHandler(&fakeAPIStore{}, &fakeReconciler{}, &fakeMaintainer{locErr: db.ErrNotFound}, &fakeMirror{}, nil)
	w = doRequest(t, h.GenerateLocationImage, http.MethodPost, uuid.New().String(), "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown location, got %d", w.Code)
	}
}

func TestCreateBibleVariantEndpoint(t *testing.T) {
	characterID := uuid.New()
	variantID := uuid.New()
	maintainer := &fakeMaintainer{variant: &models.ImageVariant{
		ID:        variantID,
		AssetKind: models.AssetKindCharacter,
		AssetID:   characterID,
		Status:    models.VariantStatusGenerating,
	}}

	h := NewHandler(&fakeAPIStore{}, &fakeReconciler{}, maintainer, &fakeMirror{}, nil)
	body := fmt.Sprintf(`{"asset_kind":"character","asset_id":"%s","prompt":"captain portrait"}`, characterID)
	w := doRequest(t, h.CreateBibleVariant, http.MethodPost, "", body)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if len(maintainer.varCalls) != 1 {
		t.Fatalf("expected 1 maintainer call, got %d", len(maintainer.varCalls))
	}
	call := maintainer.varCalls[0]
	if call.kind != models.AssetKindCharacter || call.assetID != characterID || call.prompt != "captain portrait" {
		t.Errorf("unexpected call: %+v", call)
	}
}

func TestCreateBibleVariantValidation(t *testing.T) {
	h := NewHandler(&fakeAPIStore{}, &fakeReconciler{}, &fakeMaintainer{}, &fakeMirror{}, nil)

	w := doRequest(t, h.CreateBibleVariant, http.MethodPost, "", `{"asset_kind":"prop","asset_id":"`+uuid.New().String()+`"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown asset kind, got %d", w.Code)
	}

	w = doRequest(t, h.CreateBibleVariant, http.MethodPost, "", `{"asset_kind":"character","asset_id":"not-a-uuid"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a malformed asset id, got %d", w.Code)
	}

	h = NewHandler(&fakeAPIStore{}, &fakeReconciler{}, &fakeMaintainer{varErr: db.ErrNotFound}, &fakeMirror{}, nil)
	w = doRequest(t, h.CreateBibleVariant, http.MethodPost, "", `{"asset_kind":"character","asset_id":"`+uuid.New().String()+`"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown asset, got %d", w.Code)
	}
}
