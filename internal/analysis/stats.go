package analysis

import (
	"image"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/stat"
)

// LuminanceStats samples the image and returns the mean and standard
// deviation of relative luminance in [0,1].
func LuminanceStats(img image.Image) (mean, stddev float64) {
	if img == nil {
		return 0, 0
	}
	b := img.Bounds()
	step := sampleStep(b.Dx()*b.Dy(), 8192)
	var samples []float64
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			col, ok := colorful.MakeColor(img.At(x, y))
			if !ok {
				continue
			}
			samples = append(samples, linearLuminance(col))
		}
	}
	if len(samples) == 0 {
		return 0, 0
	}
	mean = stat.Mean(samples, nil)
	if len(samples) > 1 {
		stddev = stat.StdDev(samples, nil)
	}
	return mean, stddev
}

// MoodDescriptor translates luminance statistics into adjectives usable in
// a photography prompt.
func MoodDescriptor(mean, stddev float64) string {
	switch {
	case mean >= 0.6 && stddev < 0.18:
		return "bright, airy, evenly lit"
	case mean >= 0.6:
		return "bright, punchy, high-contrast"
	case mean < 0.25:
		return "moody, low-key, dramatic lighting"
	case stddev >= 0.25:
		return "bold, high-contrast, dynamic"
	default:
		return "balanced, soft natural lighting"
	}
}
