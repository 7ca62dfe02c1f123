package reconcile

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/alexadark/ripreel-api/internal/models"
	"github.com/alexadark/ripreel-api/internal/services"
	"github.com/google/uuid"
)

// fakeStore emulates the atomic claim with a mutex: claims, job updates, and
// failure marks all serialize, mirroring the project-row lock in Postgres.
type fakeStore struct {
	mu            sync.Mutex
	projectID     uuid.UUID
	videos        []*fakeVideo
	maxGenerating int // high-water mark of concurrently generating rows
}

type fakeVideo struct {
	id           uuid.UUID
	scene        int
	shot         int
	status       models.VideoStatus
	jobID        *string
	errorMessage *string
}

func newFakeStore(queued int) *fakeStore {
	s := &fakeStore{projectID: uuid.New()}
	for i := 0; i < queued; i++ {
		s.videos = append(s.videos, &fakeVideo{
			id:     uuid.New(),
			scene:  i + 1,
			shot:   1,
			status: models.VideoStatusQueued,
		})
	}
	return s
}

func (s *fakeStore) generatingLocked() int {
	n := 0
	for _, v := range s.videos {
		if v.status == models.VideoStatusGenerating {
			n++
		}
	}
	return n
}

func (s *fakeStore) ClaimNextQueuedVideo(ctx context.Context, projectID uuid.UUID, maxGenerating int) (*models.VideoCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if projectID != s.projectID {
		return nil, nil
	}
	if s.generatingLocked() >= maxGenerating {
		return nil, nil
	}

	var next *fakeVideo
	for _, v := range s.videos {
		if v.status != models.VideoStatusQueued {
			continue
		}
		if next == nil || v.scene < next.scene || (v.scene == next.scene && v.shot < next.shot) {
			next = v
		}
	}
	if next == nil {
		return nil, nil
	}

	next.status = models.VideoStatusGenerating
	if g := s.generatingLocked(); g > s.maxGenerating {
		s.maxGenerating = g
	}

	return &models.VideoCandidate{
		VideoID:     next.id,
		ShotID:      uuid.New(),
		ProjectID:   s.projectID,
		SceneNumber: next.scene,
		ShotNumber:  next.shot,
		Model:       "kling-1.6-pro",
		AspectRatio: "16:9",
		Prompt:      "a slow push-in on the doorway",
	}, nil
}

func (s *fakeStore) SetSceneVideoJob(ctx context.Context, id uuid.UUID, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.videos {
		if v.id == id {
			v.jobID = &jobID
			return nil
		}
	}
	return nil
}

func (s *fakeStore) MarkSceneVideoFailed(ctx context.Context, id uuid.UUID, errorMessage *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.videos {
		if v.id == id {
			v.status = models.VideoStatusFailed
			v.errorMessage = errorMessage
			v.jobID = nil
			return nil
		}
	}
	return nil
}

func (s *fakeStore) markReady(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.videos {
		if v.id == id {
			v.status = models.VideoStatusReady
			v.jobID = nil
		}
	}
}

func (s *fakeStore) countByStatus(status models.VideoStatus) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.videos {
		if v.status == status {
			n++
		}
	}
	return n
}

func (s *fakeStore) firstGenerating() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.videos {
		if v.status == models.VideoStatusGenerating {
			return v.id
		}
	}
	return uuid.Nil
}

type fakeDispatcher struct {
	mu      sync.Mutex
	jobs    []services.SceneVideoJob
	failFor map[string]bool // scene_video_id → reject dispatch
}

func (d *fakeDispatcher) DispatchSceneVideo(ctx context.Context, job services.SceneVideoJob) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failFor[job.SceneVideoID] {
		return context.DeadlineExceeded
	}
	d.jobs = append(d.jobs, job)
	return nil
}

func TestFillRespectsCap(t *testing.T) {
	store := newFakeStore(5)
	dispatcher := &fakeDispatcher{}
	r := New(store, dispatcher, nil, 2)

	triggered, err := r.Fill(context.Background(), store.projectID)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if triggered != 2 {
		t.Errorf("expected 2 triggered, got %d", triggered)
	}
	if got := store.countByStatus(models.VideoStatusGenerating); got != 2 {
		t.Errorf("expected 2 generating, got %d", got)
	}
	if got := store.countByStatus(models.VideoStatusQueued); got != 3 {
		t.Errorf("expected 3 still queued, got %d", got)
	}
	if len(dispatcher.jobs) != 2 {
		t.Errorf("expected 2 dispatches, got %d", len(dispatcher.jobs))
	}

	// Claims go out in scene order.
	if dispatcher.jobs[0].Prompt == "" || dispatcher.jobs[0].JobID == dispatcher.jobs[1].JobID {
		t.Error("expected distinct job ids on dispatched jobs")
	}
}

func TestFillIsIdempotent(t *testing.T) {
	store := newFakeStore(5)
	r := New(store, &fakeDispatcher{}, nil, 2)

	if _, err := r.Fill(context.Background(), store.projectID); err != nil {
		t.Fatalf("first fill: %v", err)
	}

	triggered, err := r.Fill(context.Background(), store.projectID)
	if err != nil {
		t.Fatalf("second fill: %v", err)
	}
	if triggered != 0 {
		t.Errorf("second fill with no completions should trigger 0, got %d", triggered)
	}
}

func TestFillBackfillsAfterCompletion(t *testing.T) {
	store := newFakeStore(5)
	r := New(store, &fakeDispatcher{}, nil, 2)

	if _, err := r.Fill(context.Background(), store.projectID); err != nil {
		t.Fatalf("fill: %v", err)
	}

	// A webhook marks one video ready, freeing a slot.
	store.markReady(store.firstGenerating())

	triggered, err := r.Fill(context.Background(), store.projectID)
	if err != nil {
		t.Fatalf("refill: %v", err)
	}
	if triggered != 1 {
		t.Errorf("expected exactly 1 backfilled job, got %d", triggered)
	}
	if got := store.countByStatus(models.VideoStatusGenerating); got != 2 {
		t.Errorf("expected 2 generating after backfill, got %d", got)
	}
	if got := store.countByStatus(models.VideoStatusQueued); got != 2 {
		t.Errorf("expected 2 remaining queued, got %d", got)
	}
}

func TestConcurrentFillsNeverExceedCap(t *testing.T) {
	store := newFakeStore(20)
	r := New(store, &fakeDispatcher{}, nil, 3)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Fill(context.Background(), store.projectID)
		}()
	}
	wg.Wait()

	if store.maxGenerating > 3 {
		t.Errorf("generating high-water mark %d exceeded cap 3", store.maxGenerating)
	}
	if got := store.countByStatus(models.VideoStatusGenerating); got != 3 {
		t.Errorf("expected exactly 3 generating, got %d", got)
	}
}

func TestFillMarksDispatchFailures(t *testing.T) {
	store := newFakeStore(3)
	firstID := store.videos[0].id

	dispatcher := &fakeDispatcher{failFor: map[string]bool{firstID.String(): true}}
	r := New(store, dispatcher, nil, 2)

	triggered, err := r.Fill(context.Background(), store.projectID)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}

	// The rejected candidate is failed, and the pass still fills both slots
	// from the remaining queued rows.
	if triggered != 2 {
		t.Errorf("expected 2 accepted dispatches, got %d", triggered)
	}
	if store.videos[0].status != models.VideoStatusFailed {
		t.Errorf("expected rejected candidate to be failed, got %s", store.videos[0].status)
	}
	if store.videos[0].errorMessage == nil || !strings.Contains(*store.videos[0].errorMessage, "dispatch failed") {
		t.Errorf("expected dispatch failure recorded, got %v", store.videos[0].errorMessage)
	}
}

type fakePrompter struct{}

func (fakePrompter) EnhanceVideoPrompt(ctx context.Context, rawPrompt string, visualStyle *string) (string, error) {
	return "ENHANCED: " + rawPrompt, nil
}

func TestFillUsesPrompterWhenConfigured(t *testing.T) {
	store := newFakeStore(1)
	dispatcher := &fakeDispatcher{}
	r := New(store, dispatcher, fakePrompter{}, 2)

	if _, err := r.Fill(context.Background(), store.projectID); err != nil {
		t.Fatalf("fill: %v", err)
	}
	if len(dispatcher.jobs) != 1 {
		t.Fatalf("expected 1 dispatch, got %d", len(dispatcher.jobs))
	}
	if !strings.HasPrefix(dispatcher.jobs[0].Prompt, "ENHANCED: ") {
		t.Errorf("expected enhanced prompt, got %q", dispatcher.jobs[0].Prompt)
	}
}
