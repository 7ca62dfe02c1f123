package registry

import "testing"

func TestModelByValue(t *testing.T) {
	m, ok := ModelByValue("kling-1.6-pro")
	if !ok {
		t.Fatal("expected kling-1.6-pro to exist")
	}
	if m.Provider != "fal" {
		t.Errorf("expected provider fal, got %s", m.Provider)
	}
	if m.Kind != KindVideo {
		t.Errorf("expected video kind, got %s", m.Kind)
	}

	if _, ok := ModelByValue("does-not-exist"); ok {
		t.Error("expected unknown model to return ok=false")
	}
	if _, ok := ModelByValue(""); ok {
		t.Error("expected empty value to return ok=false")
	}
}

func TestIsAspectRatioSupported(t *testing.T) {
	cases := []struct {
		model string
		ratio string
		want  bool
	}{
		{"kling-1.6-pro", "16:9", true},
		{"kling-1.6-pro", "9:16", true},
		{"kling-1.6-pro", "21:9", false},
		{"runway-gen3-turbo", "1:1", false},
		{"flux-pro-1.1", "21:9", true},
		{"does-not-exist", "16:9", false},
		{"", "", false},
	}

	for _, tc := range cases {
		if got := IsAspectRatioSupported(tc.model, tc.ratio); got != tc.want {
			t.Errorf("IsAspectRatioSupported(%q, %q) = %v, want %v", tc.model, tc.ratio, got, tc.want)
		}
	}
}

func TestDefaultAspectRatio(t *testing.T) {
	cases := map[string]string{
		"wide":         "16:9",
		"establishing": "16:9",
		"close_up":     "4:3",
		"insert":       "1:1",
		"vertical":     "9:16",
		"dutch_angle":  "16:9", // unknown shot types fall back to 16:9
		"":             "16:9",
	}

	for shotType, want := range cases {
		if got := DefaultAspectRatio(shotType); got != want {
			t.Errorf("DefaultAspectRatio(%q) = %s, want %s", shotType, got, want)
		}
	}
}

func TestDefaultModelsExist(t *testing.T) {
	for _, v := range []string{DefaultVideoModel, DefaultImageModel} {
		if _, ok := ModelByValue(v); !ok {
			t.Errorf("default model %s not in registry", v)
		}
	}
}
