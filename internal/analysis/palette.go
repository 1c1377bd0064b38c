// Package analysis derives lightweight descriptors from a product photo:
// its dominant color palette and simple luminance statistics. The prompt
// generator uses these when no vision model is available.
package analysis

import (
	"image"
	"math"
	"slices"

	"github.com/cenkalti/dominantcolor"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

// ExtractPalette returns up to k dominant colors ordered by weight. It uses
// the dominant-color histogram first and falls back to k-means clustering
// when the histogram produces too few usable candidates.
func ExtractPalette(img image.Image, k int) []colorful.Color {
	if img == nil || k <= 0 {
		return nil
	}
	candidates := dominantcolor.FindWeight(img, max(8, k*4))
	out := make([]colorful.Color, 0, k)
	for _, c := range candidates {
		col, ok := colorful.MakeColor(c.RGBA)
		if !ok {
			continue
		}
		out = append(out, col.Clamped())
		if len(out) == k {
			break
		}
	}
	if len(out) < k {
		if km := KMeansPalette(img, k); len(km) > len(out) {
			return km
		}
	}
	return out
}

// KMeansPalette clusters a pixel sample into k colors.
func KMeansPalette(img image.Image, k int) []colorful.Color {
	if img == nil || k <= 0 {
		return nil
	}
	var observations clusters.Observations
	b := img.Bounds()
	step := sampleStep(b.Dx()*b.Dy(), 4096)
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			col, ok := colorful.MakeColor(img.At(x, y))
			if !ok {
				continue
			}
			observations = append(observations, clusters.Coordinates{col.R, col.G, col.B})
		}
	}
	if len(observations) < k {
		return nil
	}
	km := kmeans.New()
	result, err := km.Partition(observations, k)
	if err != nil {
		return nil
	}
	out := make([]colorful.Color, 0, len(result))
	for _, cluster := range result {
		center := cluster.Center
		if len(center) < 3 {
			continue
		}
		out = append(out, colorful.Color{R: center[0], G: center[1], B: center[2]}.Clamped())
	}
	return out
}

// SortByBrightness orders colors darkest first using linear luminance.
func SortByBrightness(palette []colorful.Color) {
	slices.SortFunc(palette, func(a, b colorful.Color) int {
		ya := linearLuminance(a)
		yb := linearLuminance(b)
		if ya < yb {
			return -1
		}
		if ya > yb {
			return 1
		}
		return 0
	})
}

func linearLuminance(c colorful.Color) float64 {
	r, g, b := c.LinearRgb()
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// ColorName maps a color to a coarse human name suitable for prompt text.
func ColorName(c colorful.Color) string {
	h, s, v := c.Hsv()
	switch {
	case v < 0.15:
		return "black"
	case s < 0.12 && v > 0.85:
		return "white"
	case s < 0.15:
		return "gray"
	}
	switch {
	case h < 15 || h >= 345:
		return "red"
	case h < 45:
		return "orange"
	case h < 70:
		return "yellow"
	case h < 160:
		return "green"
	case h < 200:
		return "teal"
	case h < 255:
		return "blue"
	case h < 290:
		return "purple"
	case h < 345:
		return "pink"
	}
	return "gray"
}

// PaletteNames converts a palette into a deduplicated list of color names,
// preserving the weight ordering.
func PaletteNames(palette []colorful.Color) []string {
	seen := make(map[string]struct{}, len(palette))
	out := make([]string, 0, len(palette))
	for _, c := range palette {
		name := ColorName(c)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func sampleStep(pixels, target int) int {
	if pixels <= target {
		return 1
	}
	step := int(math.Sqrt(float64(pixels) / float64(target)))
	if step < 1 {
		step = 1
	}
	return step
}
