package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// n8n workflow dispatch client.
// Generation never runs in-process: each job is handed to an n8n workflow via
// its webhook trigger, and the workflow reports back on our own webhook
// receivers when the provider finishes. Dispatch is fire-and-forget relative
// to the caller; the only thing recorded here is whether n8n accepted the job.
// ---------------------------------------------------------------------------

const dispatchTimeout = 15 * time.Second

// Workflow trigger paths, relative to the n8n base URL.
const (
	triggerSceneVideo    = "/webhook/ripreel-scene-video"
	triggerBibleImage    = "/webhook/ripreel-bible-image"
	triggerLocationImage = "/webhook/ripreel-location-image"
)

type WorkflowClient struct {
	baseURL string
	secret  string
	client  *http.Client
}

func NewWorkflowClient(baseURL, secret string) *WorkflowClient {
	return &WorkflowClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		client:  &http.Client{Timeout: dispatchTimeout},
	}
}

// SceneVideoJob is the request body for the scene-video generation workflow.
type SceneVideoJob struct {
	JobID           string  `json:"job_id"`
	SceneVideoID    string  `json:"scene_video_id"`
	ProjectID       string  `json:"project_id"`
	Model           string  `json:"model"`
	AspectRatio     string  `json:"aspect_ratio"`
	Prompt          string  `json:"prompt"`
	ImageURL        *string `json:"image_url,omitempty"` // approved shot reference, when present
	DurationSeconds int     `json:"duration_seconds,omitempty"`
}

// BibleImageJob is the request body for the bible image variant workflow.
type BibleImageJob struct {
	JobID        string `json:"job_id"`
	SceneImageID string `json:"scene_image_id"`
	ProjectID    string `json:"project_id"`
	AssetKind    string `json:"asset_kind"` // "character" or "location"
	Model        string `json:"model"`
	Prompt       string `json:"prompt"`
}

// LocationImageJob is the request body for the location reference image workflow.
type LocationImageJob struct {
	JobID      string `json:"job_id"`
	LocationID string `json:"location_id"`
	ProjectID  string `json:"project_id"`
	Model      string `json:"model"`
	Prompt     string `json:"prompt"`
}

func (c *WorkflowClient) DispatchSceneVideo(ctx context.Context, job SceneVideoJob) error {
	return c.post(ctx, triggerSceneVideo, job)
}

func (c *WorkflowClient) DispatchBibleImage(ctx context.Context, job BibleImageJob) error {
	return c.post(ctx, triggerBibleImage, job)
}

func (c *WorkflowClient) DispatchLocationImage(ctx context.Context, job LocationImageJob) error {
	return c.post(ctx, triggerLocationImage, job)
}

// post sends a job to an n8n webhook trigger. Any non-2xx response means the
// workflow did not accept the job; the caller records dispatch-failed locally.
func (c *WorkflowClient) post(ctx context.Context, path string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create workflow request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set("X-Webhook-Secret", c.secret)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("workflow dispatch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("workflow rejected dispatch with status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}
