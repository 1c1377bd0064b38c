package prompt

import (
	"context"
	"image"
	"strings"

	"productshot/internal/analysis"
	"productshot/internal/infra"
)

// Analyzer produces a text answer about an image. The Gemini vision client
// satisfies this; tests use a stub.
type Analyzer interface {
	AnalyzeImage(ctx context.Context, img image.Image, instruction string) (string, error)
}

// Analysis is the structured outcome of looking at a product photo.
type Analysis struct {
	Product    string
	Background string
	Style      string
	Raw        string
	Source     string // "vision" or "local"
}

// Generator creates prompts automatically when the user provides none.
// Vision analysis is preferred; a palette-based local analysis covers the
// no-API-key and API-failure paths.
type Generator struct {
	Vision Analyzer
	Log    infra.Logger
}

const visionInstruction = `Analyze this product image and provide a concise description.

CRITICAL RULES:
1. Keep TOTAL response under 100 words
2. NO markdown formatting (no *, **, bullets, etc.)
3. Do NOT read or mention specific text/brand names on the product
4. Describe product GENERICALLY (e.g., "yellow beverage can" not specific brand)
5. Be concise and direct
6. Focus on: product type, colors, design style

PRODUCT DESCRIPTION (max 30 words):
Describe the product type, shape, primary colors, overall design. Generic terms only.

BACKGROUND IDEA (max 50 words):
Suggest a creative, Gen-Z appealing background that complements the product. Be specific about scene, colors, mood but concise.

STYLE (max 20 words):
Overall aesthetic style in adjectives.

Format EXACTLY as:
PRODUCT: [description]
BACKGROUND: [suggestion]
STYLE: [style words]`

var backgroundIdeas = []string{
	"a vibrant gradient with neon geometric shapes",
	"soft pastel bokeh with dreamy lighting",
	"a tropical scene with bright sunny vibes",
	"a minimalist studio with dramatic lighting",
	"an organic botanical setting with soft light",
	"a pop art scene with bold dynamic colors",
}

// Analyze inspects the product photo and returns a structured analysis.
func (g *Generator) Analyze(ctx context.Context, img image.Image) Analysis {
	if g.Vision != nil {
		text, err := g.Vision.AnalyzeImage(ctx, img, visionInstruction)
		if err == nil {
			if a, ok := parseAnalysis(text); ok {
				return a
			}
			g.Log.Warn().Str("response", truncate(text, 120)).Msg("vision analysis unparseable, using local analysis")
		} else {
			g.Log.Warn().Err(err).Msg("vision analysis failed, using local analysis")
		}
	}
	return g.localAnalysis(img)
}

// SceneFor produces the full-scene prompt for the inpainting method.
func (g *Generator) SceneFor(ctx context.Context, img image.Image) (string, Analysis) {
	a := g.Analyze(ctx, img)
	return ScenePrompt(a.Product, a.Background, a.Style), a
}

// BackgroundFor produces the background-only prompt for the compositing
// method.
func (g *Generator) BackgroundFor(ctx context.Context, img image.Image, palette []string) (string, Analysis) {
	a := g.Analyze(ctx, img)
	return BackgroundPrompt(a.Background, splitKeywords(a.Style), palette), a
}

func parseAnalysis(text string) (Analysis, bool) {
	product := cleanText(extractSection(text, "PRODUCT:"))
	background := cleanText(extractSection(text, "BACKGROUND:"))
	style := cleanText(extractSection(text, "STYLE:"))
	if product == "" && background == "" {
		return Analysis{}, false
	}
	if product == "" {
		product = "modern product"
	}
	if background == "" {
		background = "creative vibrant scene"
	}
	if style == "" {
		style = "modern, clean"
	}
	return Analysis{Product: product, Background: background, Style: style, Raw: text, Source: "vision"}, true
}

// extractSection returns the text between a section marker and the next
// marker (or end of text).
func extractSection(text, marker string) string {
	idx := strings.Index(text, marker)
	if idx < 0 {
		return ""
	}
	rest := text[idx+len(marker):]
	end := len(rest)
	for _, next := range []string{"\nPRODUCT:", "\nBACKGROUND:", "\nSTYLE:"} {
		if i := strings.Index(rest, next); i >= 0 && i < end {
			end = i
		}
	}
	return strings.TrimSpace(rest[:end])
}

// cleanText strips markdown artifacts models sometimes emit despite the
// instruction not to.
func cleanText(s string) string {
	replacer := strings.NewReplacer("**", "", "*", "", "###", "", "##", "", "#", "", "- ", "")
	s = replacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// localAnalysis derives a usable analysis from the image itself: dominant
// color names describe the product, luminance statistics set the mood, and
// the palette picks a background idea deterministically.
func (g *Generator) localAnalysis(img image.Image) Analysis {
	palette := analysis.ExtractPalette(img, 4)
	names := analysis.PaletteNames(palette)
	mean, stddev := analysis.LuminanceStats(img)
	mood := analysis.MoodDescriptor(mean, stddev)

	product := "a modern product"
	if len(names) > 0 {
		product = "a modern product with " + joinNatural(names) + " tones"
	}
	idea := backgroundIdeas[int(mean*255)%len(backgroundIdeas)]
	return Analysis{
		Product:    product,
		Background: idea,
		Style:      mood,
		Raw:        "local palette analysis",
		Source:     "local",
	}
}

func joinNatural(words []string) string {
	switch len(words) {
	case 0:
		return ""
	case 1:
		return words[0]
	default:
		return strings.Join(words[:len(words)-1], ", ") + " and " + words[len(words)-1]
	}
}

func splitKeywords(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
