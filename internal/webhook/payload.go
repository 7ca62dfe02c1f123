// Package webhook normalizes inbound n8n callback payloads at the boundary.
//
// n8n workflows are assembled by hand, and over time the same callback has been
// emitted with snake_case keys, camelCase keys, or a mix of both. Each payload
// struct declares both spellings and Normalize() collapses them into one
// canonical shape, preferring snake_case when both are present. Handlers never
// probe raw fields themselves.
package webhook

import (
	"fmt"

	"github.com/google/uuid"
)

const statusFailed = "failed"

// FieldError reports a required payload field that is missing or unusable.
// Handlers map it to a 400 response without touching the data store.
type FieldError struct {
	Field  string
	Reason string // "missing" or "invalid"
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s is %s", e.Field, e.Reason)
}

// pick returns the snake_case value when present, the camelCase value otherwise.
func pick(snake, camel string) string {
	if snake != "" {
		return snake
	}
	return camel
}

func pickFloat(snake, camel *float64) *float64 {
	if snake != nil {
		return snake
	}
	return camel
}

// optional converts an empty string to nil so absent error messages persist as NULL.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func parseID(field, snake, camel string) (uuid.UUID, error) {
	raw := pick(snake, camel)
	if raw == "" {
		return uuid.Nil, &FieldError{Field: field, Reason: "missing"}
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &FieldError{Field: field, Reason: "invalid"}
	}
	return id, nil
}

// LocationImagePayload is the raw callback for a location reference image job.
type LocationImagePayload struct {
	LocationID      string `json:"location_id"`
	LocationIDCamel string `json:"locationId"`

	ImageURL      string `json:"image_url"`
	ImageURLCamel string `json:"imageUrl"`

	StoragePath      string `json:"storage_path"`
	StoragePathCamel string `json:"storagePath"`

	Status string `json:"status"`

	ErrorMessage      string `json:"error_message"`
	ErrorMessageCamel string `json:"errorMessage"`
}

// LocationImage is the canonical form of a location image callback.
type LocationImage struct {
	LocationID   uuid.UUID
	ImageURL     string
	StoragePath  string
	Failed       bool
	ErrorMessage *string
}

func (p *LocationImagePayload) Normalize() (*LocationImage, error) {
	id, err := parseID("location_id", p.LocationID, p.LocationIDCamel)
	if err != nil {
		return nil, err
	}
	return &LocationImage{
		LocationID:   id,
		ImageURL:     pick(p.ImageURL, p.ImageURLCamel),
		StoragePath:  pick(p.StoragePath, p.StoragePathCamel),
		Failed:       p.Status == statusFailed,
		ErrorMessage: optional(pick(p.ErrorMessage, p.ErrorMessageCamel)),
	}, nil
}

// BibleImagePayload is the raw callback for a bible image variant job.
// This workflow only ever emitted snake_case keys.
type BibleImagePayload struct {
	SceneImageID string `json:"scene_image_id"`
	ImageURL     string `json:"image_url"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

// BibleImage is the canonical form of a bible image variant callback.
type BibleImage struct {
	VariantID    uuid.UUID
	ImageURL     string
	Failed       bool
	ErrorMessage *string
}

func (p *BibleImagePayload) Normalize() (*BibleImage, error) {
	id, err := parseID("scene_image_id", p.SceneImageID, "")
	if err != nil {
		return nil, err
	}
	return &BibleImage{
		VariantID:    id,
		ImageURL:     p.ImageURL,
		Failed:       p.Status == statusFailed,
		ErrorMessage: optional(p.ErrorMessage),
	}, nil
}

// SceneVideoPayload is the raw callback for a scene video job.
type SceneVideoPayload struct {
	SceneVideoID      string `json:"scene_video_id"`
	SceneVideoIDCamel string `json:"sceneVideoId"`

	VideoURL      string `json:"video_url"`
	VideoURLCamel string `json:"videoUrl"`

	DurationSeconds      *float64 `json:"duration_seconds"`
	DurationSecondsCamel *float64 `json:"durationSeconds"`

	Status string `json:"status"`

	ErrorMessage      string `json:"error_message"`
	ErrorMessageCamel string `json:"errorMessage"`
}

// SceneVideo is the canonical form of a scene video callback.
type SceneVideo struct {
	SceneVideoID    uuid.UUID
	VideoURL        string
	DurationSeconds *float64
	Failed          bool
	ErrorMessage    *string
}

func (p *SceneVideoPayload) Normalize() (*SceneVideo, error) {
	id, err := parseID("scene_video_id", p.SceneVideoID, p.SceneVideoIDCamel)
	if err != nil {
		return nil, err
	}
	return &SceneVideo{
		SceneVideoID:    id,
		VideoURL:        pick(p.VideoURL, p.VideoURLCamel),
		DurationSeconds: pickFloat(p.DurationSeconds, p.DurationSecondsCamel),
		Failed:          p.Status == statusFailed,
		ErrorMessage:    optional(pick(p.ErrorMessage, p.ErrorMessageCamel)),
	}, nil
}
