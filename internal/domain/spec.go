package domain

import (
	"fmt"
	"strings"
)

const (
	// DefaultSpecVersion is the schema version persisted with render specs.
	DefaultSpecVersion = "2025-06"
	// DefaultVariations is used when the request omits a variation count.
	DefaultVariations = 1
	// MaxVariations caps the number of renders produced by one job.
	MaxVariations = 4
)

// RenderSpec is the JSON contract stored on a render job. Prompt fields are
// optional; the worker auto-generates them from the product photo when empty.
type RenderSpec struct {
	Version            string   `json:"version"`
	SourceAssetID      string   `json:"source_asset_id"`
	Mode               string   `json:"mode"`
	Prompt             string   `json:"prompt"`
	ProductDescription string   `json:"product_description"`
	NegativePrompt     string   `json:"negative_prompt"`
	StylePreset        string   `json:"style_preset"`
	ColorPalette       []string `json:"color_palette"`
	Variations         int      `json:"variations"`
	Locale             string   `json:"locale"`
	SaveStages         bool     `json:"save_stages"`
	Seed               int64    `json:"seed"`
}

// Normalize applies server defaults and limits before persistence.
func (s *RenderSpec) Normalize(preferredLocale string) {
	if s == nil {
		return
	}
	if s.Version == "" {
		s.Version = DefaultSpecVersion
	}
	s.Mode = string(NormalizeMode(s.Mode))
	if s.Variations <= 0 {
		s.Variations = DefaultVariations
	}
	if s.Variations > MaxVariations {
		s.Variations = MaxVariations
	}
	if s.Locale == "" && preferredLocale != "" {
		s.Locale = preferredLocale
	}
	for i, c := range s.ColorPalette {
		s.ColorPalette[i] = strings.TrimSpace(c)
	}
}

// Validate ensures the spec satisfies the contract before it is queued.
func (s RenderSpec) Validate() error {
	if strings.TrimSpace(s.SourceAssetID) == "" {
		return fmt.Errorf("source_asset_id is required")
	}
	if s.Variations < 1 || s.Variations > MaxVariations {
		return fmt.Errorf("variations must be between 1 and %d", MaxVariations)
	}
	switch RenderMode(s.Mode) {
	case ModeInpaint, ModeComposite, ModeBoth:
	default:
		return fmt.Errorf("mode must be one of inpaint, composite, both")
	}
	return nil
}
