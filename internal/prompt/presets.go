package prompt

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Preset is a named style fragment appended to the base prompt.
type Preset struct {
	Name        string `yaml:"-" json:"name"`
	Description string `yaml:"description" json:"description"`
	Prompt      string `yaml:"prompt" json:"prompt"`
}

type presetFile struct {
	Presets map[string]Preset `yaml:"presets"`
}

// PresetLibrary holds the style presets loaded from YAML.
type PresetLibrary struct {
	presets map[string]Preset
}

// LoadPresets reads a YAML preset file. A missing file yields an empty
// library so the pipeline still runs without preset support.
func LoadPresets(path string) (*PresetLibrary, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &PresetLibrary{presets: map[string]Preset{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	return ParsePresets(data)
}

// ParsePresets parses preset YAML content.
func ParsePresets(data []byte) (*PresetLibrary, error) {
	var f presetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	lib := &PresetLibrary{presets: make(map[string]Preset, len(f.Presets))}
	for name, p := range f.Presets {
		key := strings.ToLower(strings.TrimSpace(name))
		p.Name = key
		lib.presets[key] = p
	}
	return lib, nil
}

// Get looks a preset up by case-insensitive name.
func (l *PresetLibrary) Get(name string) (Preset, bool) {
	p, ok := l.presets[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// List returns all presets sorted by name.
func (l *PresetLibrary) List() []Preset {
	out := make([]Preset, 0, len(l.presets))
	for _, p := range l.presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Apply appends the preset fragment to the base prompt. Unknown preset
// names leave the prompt unchanged.
func (l *PresetLibrary) Apply(base, presetName string) string {
	if presetName == "" {
		return base
	}
	p, ok := l.Get(presetName)
	if !ok || p.Prompt == "" {
		return base
	}
	return base + ", " + p.Prompt
}
