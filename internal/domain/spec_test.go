package domain

import "testing"

func TestNormalizeAppliesDefaults(t *testing.T) {
	spec := RenderSpec{SourceAssetID: "a"}
	spec.Normalize("id")

	if spec.Version != DefaultSpecVersion {
		t.Fatalf("version mismatch: %q", spec.Version)
	}
	if spec.Mode != string(ModeComposite) {
		t.Fatalf("empty mode should default to composite, got %q", spec.Mode)
	}
	if spec.Variations != DefaultVariations {
		t.Fatalf("variations mismatch: %d", spec.Variations)
	}
	if spec.Locale != "id" {
		t.Fatalf("locale should come from the request, got %q", spec.Locale)
	}
}

func TestNormalizeClampsVariationsAndTrimsPalette(t *testing.T) {
	spec := RenderSpec{
		SourceAssetID: "a",
		Variations:    99,
		ColorPalette:  []string{" coral ", "teal"},
		Locale:        "ja",
	}
	spec.Normalize("en")

	if spec.Variations != MaxVariations {
		t.Fatalf("variations should clamp to %d, got %d", MaxVariations, spec.Variations)
	}
	if spec.ColorPalette[0] != "coral" {
		t.Fatalf("palette entries should be trimmed, got %q", spec.ColorPalette[0])
	}
	if spec.Locale != "ja" {
		t.Fatalf("explicit locale must win, got %q", spec.Locale)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		spec    RenderSpec
		wantErr bool
	}{
		{"valid", RenderSpec{SourceAssetID: "a", Mode: "inpaint", Variations: 1}, false},
		{"missing source", RenderSpec{Mode: "composite", Variations: 1}, true},
		{"blank source", RenderSpec{SourceAssetID: "   ", Mode: "composite", Variations: 1}, true},
		{"bad mode", RenderSpec{SourceAssetID: "a", Mode: "sketch", Variations: 1}, true},
		{"zero variations", RenderSpec{SourceAssetID: "a", Mode: "both", Variations: 0}, true},
		{"too many variations", RenderSpec{SourceAssetID: "a", Mode: "both", Variations: MaxVariations + 1}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.spec.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNormalizeMode(t *testing.T) {
	if NormalizeMode("inpaint") != ModeInpaint {
		t.Fatal("inpaint should map to ModeInpaint")
	}
	if NormalizeMode("both") != ModeBoth {
		t.Fatal("both should map to ModeBoth")
	}
	if NormalizeMode("anything else") != ModeComposite {
		t.Fatal("unknown modes should fall back to composite")
	}
}
