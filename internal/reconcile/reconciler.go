// Package reconcile refills free video-generation slots for a project.
//
// Every terminal scene-video webhook (ready or failed) frees a slot; the
// reconciler pulls the next queued candidates in (scene_number, shot_number)
// order until the per-project cap on concurrently "generating" videos is hit
// again. It holds no state of its own; the claim is an atomic data-store
// transition, so redundant and concurrent invocations are safe.
package reconcile

import (
	"context"
	"fmt"
	"log"

	"github.com/alexadark/ripreel-api/internal/models"
	"github.com/alexadark/ripreel-api/internal/registry"
	"github.com/alexadark/ripreel-api/internal/services"
	"github.com/google/uuid"
)

// Store is the slice of the database the reconciler needs.
type Store interface {
	// ClaimNextQueuedVideo atomically flips the next queued candidate to
	// "generating" while the project is below maxGenerating, or returns
	// (nil, nil) when there is no capacity or no candidate.
	ClaimNextQueuedVideo(ctx context.Context, projectID uuid.UUID, maxGenerating int) (*models.VideoCandidate, error)
	SetSceneVideoJob(ctx context.Context, id uuid.UUID, jobID string) error
	MarkSceneVideoFailed(ctx context.Context, id uuid.UUID, errorMessage *string) error
}

// Dispatcher hands an accepted claim to the external workflow tool.
type Dispatcher interface {
	DispatchSceneVideo(ctx context.Context, job services.SceneVideoJob) error
}

// Prompter optionally rewrites the raw shot prompt before dispatch.
type Prompter interface {
	EnhanceVideoPrompt(ctx context.Context, rawPrompt string, visualStyle *string) (string, error)
}

type Reconciler struct {
	store         Store
	dispatcher    Dispatcher
	prompter      Prompter // optional: nil means dispatch raw prompts
	maxGenerating int
}

func New(store Store, dispatcher Dispatcher, prompter Prompter, maxGenerating int) *Reconciler {
	return &Reconciler{
		store:         store,
		dispatcher:    dispatcher,
		prompter:      prompter,
		maxGenerating: maxGenerating,
	}
}

// Fill triggers generation for queued scene videos until the project's
// "generating" count reaches the cap or no queued candidates remain. Returns
// the number of jobs the workflow tool accepted.
//
// A rejected dispatch marks that row failed and moves on: the claim already
// consumed the row, and leaving it "generating" would wedge a slot until an
// operator noticed.
func (r *Reconciler) Fill(ctx context.Context, projectID uuid.UUID) (int, error) {
	triggered := 0

	for {
		cand, err := r.store.ClaimNextQueuedVideo(ctx, projectID, r.maxGenerating)
		if err != nil {
			return triggered, fmt.Errorf("failed to claim next queued video: %w", err)
		}
		if cand == nil {
			return triggered, nil
		}

		prompt := cand.Prompt
		if r.prompter != nil {
			enhanced, err := r.prompter.EnhanceVideoPrompt(ctx, cand.Prompt, cand.VisualStyle)
			if err != nil {
				log.Printf("[Reconcile] prompt enrichment failed for video %s, using raw prompt: %v", cand.VideoID, err)
			} else {
				prompt = enhanced
			}
		}

		duration := 0
		if m, ok := registry.ModelByValue(cand.Model); ok {
			duration = m.DefaultDuration
		}

		jobID := uuid.New().String()
		job := services.SceneVideoJob{
			JobID:           jobID,
			SceneVideoID:    cand.VideoID.String(),
			ProjectID:       cand.ProjectID.String(),
			Model:           cand.Model,
			AspectRatio:     cand.AspectRatio,
			Prompt:          prompt,
			ImageURL:        cand.ApprovedImageURL,
			DurationSeconds: duration,
		}

		if err := r.dispatcher.DispatchSceneVideo(ctx, job); err != nil {
			log.Printf("[Reconcile] dispatch failed for video %s (scene %d, shot %d): %v",
				cand.VideoID, cand.SceneNumber, cand.ShotNumber, err)
			msg := fmt.Sprintf("dispatch failed: %v", err)
			if markErr := r.store.MarkSceneVideoFailed(ctx, cand.VideoID, &msg); markErr != nil {
				log.Printf("[Reconcile] failed to record dispatch failure for video %s: %v", cand.VideoID, markErr)
			}
			continue
		}

		if err := r.store.SetSceneVideoJob(ctx, cand.VideoID, jobID); err != nil {
			// The job is already running in n8n; the row just lacks its
			// reference. The completion webhook keys on the video id, so this
			// only loses traceability, not the result.
			log.Printf("[Reconcile] failed to record job id for video %s: %v", cand.VideoID, err)
		}

		log.Printf("[Reconcile] triggered video %s (scene %d, shot %d, model %s, job %s)",
			cand.VideoID, cand.SceneNumber, cand.ShotNumber, cand.Model, jobID)
		triggered++
	}
}
