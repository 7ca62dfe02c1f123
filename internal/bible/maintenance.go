// Package bible manages the project bible: triggering image generation for
// characters and locations, and maintenance for image variants stuck in
// "generating" (orphaned by a missed webhook), which are either deleted
// outright or re-dispatched to the workflow tool.
package bible

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/alexadark/ripreel-api/internal/models"
	"github.com/alexadark/ripreel-api/internal/registry"
	"github.com/alexadark/ripreel-api/internal/services"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// resetConcurrency bounds parallel re-dispatches so a reset of a large bible
// doesn't hammer the workflow tool.
const resetConcurrency = 4

// ErrAlreadyGenerating is returned when a location image generation is
// requested while a previous job is still in flight.
var ErrAlreadyGenerating = errors.New("image generation already in progress")

type Store interface {
	GetCharacter(ctx context.Context, id uuid.UUID) (*models.Character, error)
	GetLocation(ctx context.Context, id uuid.UUID) (*models.Location, error)
	SetLocationJob(ctx context.Context, id uuid.UUID, jobID string) error
	CreateImageVariant(ctx context.Context, v *models.ImageVariant) error
	MarkVariantFailed(ctx context.Context, id uuid.UUID, errorMessage *string) error
	ListGeneratingVariants(ctx context.Context, projectID uuid.UUID) ([]models.ImageVariant, error)
	DeleteGeneratingVariants(ctx context.Context, projectID uuid.UUID) (int, error)
	SetVariantJob(ctx context.Context, id uuid.UUID, jobID string) error
}

type Dispatcher interface {
	DispatchBibleImage(ctx context.Context, job services.BibleImageJob) error
	DispatchLocationImage(ctx context.Context, job services.LocationImageJob) error
}

type Maintenance struct {
	store      Store
	dispatcher Dispatcher
}

func NewMaintenance(store Store, dispatcher Dispatcher) *Maintenance {
	return &Maintenance{store: store, dispatcher: dispatcher}
}

// GenerateLocationImage dispatches a reference-image job for a location and
// moves the row into "generating". The prompt is the location's description
// when present, its name otherwise. Returns the workflow job id.
func (m *Maintenance) GenerateLocationImage(ctx context.Context, locationID uuid.UUID) (string, error) {
	loc, err := m.store.GetLocation(ctx, locationID)
	if err != nil {
		return "", err
	}
	if loc.Status == models.VariantStatusGenerating {
		return "", ErrAlreadyGenerating
	}

	prompt := loc.Name
	if loc.Description != nil && *loc.Description != "" {
		prompt = *loc.Description
	}

	jobID := uuid.New().String()
	job := services.LocationImageJob{
		JobID:      jobID,
		LocationID: loc.ID.String(),
		ProjectID:  loc.ProjectID.String(),
		Model:      registry.DefaultImageModel,
		Prompt:     prompt,
	}

	if err := m.dispatcher.DispatchLocationImage(ctx, job); err != nil {
		return "", fmt.Errorf("location image dispatch failed: %w", err)
	}

	if err := m.store.SetLocationJob(ctx, locationID, jobID); err != nil {
		log.Printf("[Bible] failed to record job id for location %s: %v", locationID, err)
	}

	log.Printf("[Bible] triggered reference image for location %s (job %s)", locationID, jobID)
	return jobID, nil
}

// GenerateVariant creates a new image variant for a bible asset and dispatches
// it to the workflow tool. The asset must exist; an empty prompt falls back to
// the asset's description, then its name. A rejected dispatch marks the fresh
// variant failed so it never wedges in "generating".
func (m *Maintenance) GenerateVariant(ctx context.Context, kind models.AssetKind, assetID uuid.UUID, prompt string) (*models.ImageVariant, error) {
	var projectID uuid.UUID

	switch kind {
	case models.AssetKindCharacter:
		c, err := m.store.GetCharacter(ctx, assetID)
		if err != nil {
			return nil, err
		}
		projectID = c.ProjectID
		if prompt == "" {
			prompt = c.Name
			if c.Description != nil && *c.Description != "" {
				prompt = *c.Description
			}
		}
	case models.AssetKindLocation:
		loc, err := m.store.GetLocation(ctx, assetID)
		if err != nil {
			return nil, err
		}
		projectID = loc.ProjectID
		if prompt == "" {
			prompt = loc.Name
			if loc.Description != nil && *loc.Description != "" {
				prompt = *loc.Description
			}
		}
	default:
		return nil, fmt.Errorf("unknown asset kind %q", kind)
	}

	jobID := uuid.New().String()
	variant := &models.ImageVariant{
		ID:        uuid.New(),
		AssetKind: kind,
		AssetID:   assetID,
		ProjectID: projectID,
		Status:    models.VariantStatusGenerating,
		Prompt:    prompt,
		JobID:     &jobID,
	}

	if err := m.store.CreateImageVariant(ctx, variant); err != nil {
		return nil, fmt.Errorf("failed to create image variant: %w", err)
	}

	job := services.BibleImageJob{
		JobID:        jobID,
		SceneImageID: variant.ID.String(),
		ProjectID:    projectID.String(),
		AssetKind:    string(kind),
		Model:        registry.DefaultImageModel,
		Prompt:       prompt,
	}

	if err := m.dispatcher.DispatchBibleImage(ctx, job); err != nil {
		msg := fmt.Sprintf("dispatch failed: %v", err)
		if markErr := m.store.MarkVariantFailed(ctx, variant.ID, &msg); markErr != nil {
			log.Printf("[Bible] failed to record dispatch failure for variant %s: %v", variant.ID, markErr)
		}
		return nil, fmt.Errorf("bible image dispatch failed: %w", err)
	}

	log.Printf("[Bible] triggered %s variant %s for asset %s (job %s)", kind, variant.ID, assetID, jobID)
	return variant, nil
}

// Cleanup deletes all of a project's image variants stuck in "generating".
// Pure deletion: ready and failed variants are untouched, nothing is
// re-triggered. Returns the number of rows removed.
func (m *Maintenance) Cleanup(ctx context.Context, projectID uuid.UUID) (int, error) {
	deleted, err := m.store.DeleteGeneratingVariants(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("cleanup failed: %w", err)
	}
	if deleted > 0 {
		log.Printf("[Bible] cleanup removed %d stuck variants for project %s", deleted, projectID)
	}
	return deleted, nil
}

// Reset re-issues generation for a project's stuck "generating" variants.
// Each variant gets a fresh job id; dispatch failures are logged and skipped
// rather than aborting the pass. Returns the number of re-dispatched variants.
func (m *Maintenance) Reset(ctx context.Context, projectID uuid.UUID) (int, error) {
	variants, err := m.store.ListGeneratingVariants(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("reset failed: %w", err)
	}
	if len(variants) == 0 {
		return 0, nil
	}

	var reset int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resetConcurrency)

	for _, v := range variants {
		v := v
		g.Go(func() error {
			jobID := uuid.New().String()
			job := services.BibleImageJob{
				JobID:        jobID,
				SceneImageID: v.ID.String(),
				ProjectID:    v.ProjectID.String(),
				AssetKind:    string(v.AssetKind),
				Model:        registry.DefaultImageModel,
				Prompt:       v.Prompt,
			}

			if err := m.dispatcher.DispatchBibleImage(gctx, job); err != nil {
				log.Printf("[Bible] reset dispatch failed for variant %s: %v", v.ID, err)
				return nil
			}

			if err := m.store.SetVariantJob(gctx, v.ID, jobID); err != nil {
				log.Printf("[Bible] failed to record job id for variant %s: %v", v.ID, err)
			}

			atomic.AddInt64(&reset, 1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(reset), err
	}

	log.Printf("[Bible] reset re-dispatched %d/%d stuck variants for project %s", reset, len(variants), projectID)
	return int(reset), nil
}
