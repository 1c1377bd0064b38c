// Package prompt builds the text prompts fed to the background generators:
// a descriptive full-scene prompt for inpainting and a background-only
// prompt for generative compositing. Prompts can come from the user, from a
// vision model analysis, or from a local palette-based fallback.
package prompt

import "strings"

const maxScenePromptLen = 600

// ScenePrompt describes the entire target photograph, product included.
// Inpainting models respond to descriptive language, not instructions.
func ScenePrompt(product, background, style string) string {
	if product == "" {
		product = "a modern product"
	}
	if background == "" {
		background = "a clean studio environment"
	}
	if style == "" {
		style = "clean, professional, and visually appealing"
	}
	var b strings.Builder
	b.WriteString("This photo showcases ")
	b.WriteString(product)
	b.WriteString(". The product is clearly highlighted and prominently displayed, placed in ")
	b.WriteString(background)
	b.WriteString(". The overall image maintains a ")
	b.WriteString(style)
	b.WriteString(" visual style, with natural lighting and high-quality commercial photography aesthetics.")
	out := b.String()
	if len(out) > maxScenePromptLen {
		out = out[:maxScenePromptLen]
	}
	return out
}

// BackgroundPrompt describes only the backdrop. The trailing exclusion
// clause keeps generative models from painting products into the scene.
func BackgroundPrompt(background string, styleKeywords, palette []string) string {
	if background == "" {
		background = "a clean studio environment with soft gradients"
	}
	if len(styleKeywords) == 0 {
		styleKeywords = []string{"vibrant", "Instagram-worthy", "Gen-Z aesthetic"}
	}
	var b strings.Builder
	b.WriteString("A creative and visually stunning background scene featuring ")
	b.WriteString(background)
	b.WriteString(". Style: ")
	b.WriteString(strings.Join(styleKeywords, ", "))
	b.WriteString(".")
	if len(palette) > 0 {
		b.WriteString(" Color palette: ")
		b.WriteString(strings.Join(palette, ", "))
		b.WriteString(".")
	}
	b.WriteString(" High quality commercial photography background with perfect lighting and composition.")
	b.WriteString(" Background only, no products, no text, no objects in foreground.")
	return b.String()
}

// localeAudiences maps the locales the API negotiates to the audience the
// generated scene should be styled for. English carries no hint.
var localeAudiences = map[string]string{
	"id": "an Indonesian audience",
	"es": "a Spanish-speaking audience",
	"ja": "a Japanese audience",
}

// LanguageHint returns a prompt fragment steering the scene toward the
// locale's audience, or "" when the locale needs none.
func LanguageHint(locale string) string {
	audience, ok := localeAudiences[strings.ToLower(strings.TrimSpace(locale))]
	if !ok {
		return ""
	}
	return "styled for " + audience
}

// NegativeDefault is appended to user negatives for inpainting backends.
const NegativeDefault = "blurry, low quality, distorted, watermark, text, logo"

// MergeNegative combines the default negative prompt with user additions.
func MergeNegative(user string) string {
	user = strings.TrimSpace(user)
	if user == "" {
		return NegativeDefault
	}
	return NegativeDefault + ", " + user
}
