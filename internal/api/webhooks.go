package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/alexadark/ripreel-api/internal/db"
	"github.com/alexadark/ripreel-api/internal/webhook"
	"github.com/google/uuid"
)

// webhookResponse is the envelope every n8n callback receives.
type webhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respondWebhook(w http.ResponseWriter, status int, resp webhookResponse) {
	respondJSON(w, status, resp)
}

// mapWebhookError turns normalization and store errors into the response
// contract: missing/invalid field is 400, missing row is 404, otherwise 500.
func mapWebhookError(w http.ResponseWriter, err error) {
	var fe *webhook.FieldError
	if errors.As(err, &fe) {
		respondWebhook(w, http.StatusBadRequest, webhookResponse{Success: false, Error: fe.Error()})
		return
	}
	if errors.Is(err, db.ErrNotFound) {
		respondWebhook(w, http.StatusNotFound, webhookResponse{Success: false, Error: "target not found"})
		return
	}
	respondWebhook(w, http.StatusInternalServerError, webhookResponse{Success: false, Error: "internal error"})
}

// seenBefore checks the dedup guard, which is optional.
func (h *Handler) seenBefore(r *http.Request, key string) bool {
	return h.dedup != nil && h.dedup.Seen(r.Context(), key)
}

func (h *Handler) markProcessed(r *http.Request, key string) {
	if h.dedup != nil {
		h.dedup.MarkProcessed(r.Context(), key)
	}
}

// mirrorOrFallback copies a provider URL into durable storage. Provider URLs
// expire, so this is best-effort: on failure the temporary URL is kept and the
// webhook still succeeds.
func (h *Handler) mirrorOrFallback(r *http.Request, remoteURL, path string) (finalURL string, storagePath *string) {
	if remoteURL == "" || h.mirror == nil {
		return remoteURL, nil
	}

	durable, err := h.mirror.MirrorRemote(r.Context(), remoteURL, path)
	if err != nil {
		log.Printf("[Webhook] asset mirror failed for %s, keeping provider URL: %v", path, err)
		return remoteURL, nil
	}

	return durable, &path
}

func dedupKey(kind string, id uuid.UUID, failed bool) string {
	status := "ready"
	if failed {
		status = "failed"
	}
	return fmt.Sprintf("%s:%s:%s", kind, id, status)
}

// HandleSceneVideoWebhook handles POST /webhooks/n8n/scene-video.
//
// Both terminal outcomes free a generation slot, so the reconciler runs on
// success and on failure, but never when the target row doesn't exist.
func (h *Handler) HandleSceneVideoWebhook(w http.ResponseWriter, r *http.Request) {
	var payload webhook.SceneVideoPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWebhook(w, http.StatusBadRequest, webhookResponse{Success: false, Error: "invalid JSON body"})
		return
	}

	result, err := payload.Normalize()
	if err != nil {
		mapWebhookError(w, err)
		return
	}

	key := dedupKey("scene_video", result.SceneVideoID, result.Failed)
	if h.seenBefore(r, key) {
		respondWebhook(w, http.StatusOK, webhookResponse{Success: true, Message: "duplicate delivery ignored"})
		return
	}

	projectID, err := h.store.GetSceneVideoProject(r.Context(), result.SceneVideoID)
	if err != nil {
		mapWebhookError(w, err)
		return
	}

	if result.Failed {
		if err := h.store.MarkSceneVideoFailed(r.Context(), result.SceneVideoID, result.ErrorMessage); err != nil {
			mapWebhookError(w, err)
			return
		}
	} else {
		finalURL, storagePath := h.mirrorOrFallback(r, result.VideoURL,
			fmt.Sprintf("videos/%s.mp4", result.SceneVideoID))

		if err := h.store.MarkSceneVideoReady(r.Context(), result.SceneVideoID, finalURL, storagePath, result.DurationSeconds); err != nil {
			mapWebhookError(w, err)
			return
		}
	}

	h.markProcessed(r, key)

	triggered, err := h.reconciler.Fill(r.Context(), projectID)
	if err != nil {
		// Terminal state is already persisted; the next webhook for this
		// project retries the refill.
		log.Printf("[Webhook] reconcile for project %s failed: %v", projectID, err)
	}

	respondWebhook(w, http.StatusOK, webhookResponse{
		Success: true,
		Message: fmt.Sprintf("scene video updated, %d generation slots refilled", triggered),
	})
}

// HandleBibleImageWebhook handles POST /webhooks/n8n/bible-image.
func (h *Handler) HandleBibleImageWebhook(w http.ResponseWriter, r *http.Request) {
	var payload webhook.BibleImagePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWebhook(w, http.StatusBadRequest, webhookResponse{Success: false, Error: "invalid JSON body"})
		return
	}

	result, err := payload.Normalize()
	if err != nil {
		mapWebhookError(w, err)
		return
	}

	key := dedupKey("bible_image", result.VariantID, result.Failed)
	if h.seenBefore(r, key) {
		respondWebhook(w, http.StatusOK, webhookResponse{Success: true, Message: "duplicate delivery ignored"})
		return
	}

	if _, err := h.store.GetImageVariant(r.Context(), result.VariantID); err != nil {
		mapWebhookError(w, err)
		return
	}

	if result.Failed {
		if err := h.store.MarkVariantFailed(r.Context(), result.VariantID, result.ErrorMessage); err != nil {
			mapWebhookError(w, err)
			return
		}
	} else {
		finalURL, storagePath := h.mirrorOrFallback(r, result.ImageURL,
			fmt.Sprintf("bible-variants/%s.png", result.VariantID))

		if err := h.store.MarkVariantReady(r.Context(), result.VariantID, finalURL, storagePath); err != nil {
			mapWebhookError(w, err)
			return
		}
	}

	h.markProcessed(r, key)
	respondWebhook(w, http.StatusOK, webhookResponse{Success: true, Message: "bible image variant updated"})
}

// HandleLocationImageWebhook handles POST /webhooks/n8n/location-image.
func (h *Handler) HandleLocationImageWebhook(w http.ResponseWriter, r *http.Request) {
	var payload webhook.LocationImagePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWebhook(w, http.StatusBadRequest, webhookResponse{Success: false, Error: "invalid JSON body"})
		return
	}

	result, err := payload.Normalize()
	if err != nil {
		mapWebhookError(w, err)
		return
	}

	key := dedupKey("location_image", result.LocationID, result.Failed)
	if h.seenBefore(r, key) {
		respondWebhook(w, http.StatusOK, webhookResponse{Success: true, Message: "duplicate delivery ignored"})
		return
	}

	if _, err := h.store.GetLocation(r.Context(), result.LocationID); err != nil {
		mapWebhookError(w, err)
		return
	}

	if result.Failed {
		if err := h.store.MarkLocationImageFailed(r.Context(), result.LocationID, result.ErrorMessage); err != nil {
			mapWebhookError(w, err)
			return
		}
	} else {
		finalURL := result.ImageURL
		var storagePath *string

		// Some workflows upload into the bucket themselves and send the
		// storage path along; only mirror when they didn't.
		if result.StoragePath != "" {
			storagePath = &result.StoragePath
		} else {
			finalURL, storagePath = h.mirrorOrFallback(r, result.ImageURL,
				fmt.Sprintf("locations/%s.png", result.LocationID))
		}

		if err := h.store.MarkLocationImageReady(r.Context(), result.LocationID, finalURL, storagePath); err != nil {
			mapWebhookError(w, err)
			return
		}
	}

	h.markProcessed(r, key)
	respondWebhook(w, http.StatusOK, webhookResponse{Success: true, Message: "location image updated"})
}
