// Package registry is the static capability table for the generative models the
// n8n workflows can be pointed at. The table is fixed at build time; the API
// only ever validates against it and hands the model value through to the
// workflow request.
package registry

// ModelKind separates still-image models from video models.
type ModelKind string

const (
	KindImage ModelKind = "image"
	KindVideo ModelKind = "video"
)

// Model describes one generative model the workflow tool knows how to drive.
type Model struct {
	Value           string    `json:"value"` // identifier sent to the workflow, e.g. "kling-1.6-pro"
	Label           string    `json:"label"`
	Provider        string    `json:"provider"` // "fal", "replicate", "runway", "google"
	Kind            ModelKind `json:"kind"`
	AspectRatios    []string  `json:"aspect_ratios"`
	Resolution      string    `json:"resolution"`
	MaxDurationSec  int       `json:"max_duration_sec,omitempty"` // video models only
	DefaultDuration int       `json:"default_duration_sec,omitempty"`
}

const (
	// DefaultVideoModel is used when a generation request names no model.
	DefaultVideoModel = "kling-1.6-pro"

	// DefaultImageModel backs bible reference image generation.
	DefaultImageModel = "flux-pro-1.1"
)

var models = []Model{
	{
		Value:        "flux-pro-1.1",
		Label:        "FLUX 1.1 Pro",
		Provider:     "fal",
		Kind:         KindImage,
		AspectRatios: []string{"16:9", "9:16", "1:1", "4:3", "3:4", "21:9"},
		Resolution:   "1440p",
	},
	{
		Value:        "recraft-v3",
		Label:        "Recraft V3",
		Provider:     "replicate",
		Kind:         KindImage,
		AspectRatios: []string{"16:9", "9:16", "1:1", "4:3", "3:4"},
		Resolution:   "1080p",
	},
	{
		Value:        "ideogram-v2",
		Label:        "Ideogram 2.0",
		Provider:     "replicate",
		Kind:         KindImage,
		AspectRatios: []string{"16:9", "9:16", "1:1", "3:4"},
		Resolution:   "1024p",
	},
	{
		Value:           "kling-1.6-pro",
		Label:           "Kling 1.6 Pro",
		Provider:        "fal",
		Kind:            KindVideo,
		AspectRatios:    []string{"16:9", "9:16", "1:1"},
		Resolution:      "1080p",
		MaxDurationSec:  10,
		DefaultDuration: 5,
	},
	{
		Value:           "runway-gen3-turbo",
		Label:           "Runway Gen-3 Alpha Turbo",
		Provider:        "runway",
		Kind:            KindVideo,
		AspectRatios:    []string{"16:9", "9:16"},
		Resolution:      "720p",
		MaxDurationSec:  10,
		DefaultDuration: 10,
	},
	{
		Value:           "minimax-video-01",
		Label:           "MiniMax Video-01",
		Provider:        "replicate",
		Kind:            KindVideo,
		AspectRatios:    []string{"16:9", "9:16", "1:1"},
		Resolution:      "720p",
		MaxDurationSec:  6,
		DefaultDuration: 6,
	},
	{
		Value:           "veo-2",
		Label:           "Veo 2",
		Provider:        "google",
		Kind:            KindVideo,
		AspectRatios:    []string{"16:9", "9:16"},
		Resolution:      "720p",
		MaxDurationSec:  8,
		DefaultDuration: 8,
	},
}

// shotTypeAspects is the fixed shot-type → aspect ratio mapping used when a
// generation request doesn't name one. Unknown shot types get the house
// default of 16:9.
var shotTypeAspects = map[string]string{
	"wide":         "16:9",
	"establishing": "16:9",
	"medium":       "16:9",
	"close_up":     "4:3",
	"insert":       "1:1",
	"vertical":     "9:16",
}

const defaultAspectRatio = "16:9"

// ModelByValue returns the capability record for a model identifier.
// The second return is false when the model is unknown.
func ModelByValue(value string) (Model, bool) {
	for _, m := range models {
		if m.Value == value {
			return m, true
		}
	}
	return Model{}, false
}

// IsAspectRatioSupported reports whether a model supports an aspect ratio.
// Unknown models and unsupported ratios both return false; it never panics.
func IsAspectRatioSupported(value, ratio string) bool {
	m, ok := ModelByValue(value)
	if !ok {
		return false
	}
	for _, r := range m.AspectRatios {
		if r == ratio {
			return true
		}
	}
	return false
}

// DefaultAspectRatio returns the aspect ratio for a shot type. Total function:
// unknown shot types map to 16:9.
func DefaultAspectRatio(shotType string) string {
	if r, ok := shotTypeAspects[shotType]; ok {
		return r
	}
	return defaultAspectRatio
}

// Models returns the full capability table (for the /v1/models picker endpoint).
func Models() []Model {
	out := make([]Model, len(models))
	copy(out, models)
	return out
}
