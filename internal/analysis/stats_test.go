package analysis

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLuminanceStatsBrightImage(t *testing.T) {
	img := solidImage(color.RGBA{R: 240, G: 240, B: 240, A: 255}, 32, 32)
	mean, stddev := LuminanceStats(img)
	assert.Greater(t, mean, 0.8)
	assert.Less(t, stddev, 0.01)
}

func TestLuminanceStatsContrast(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	draw.Draw(img, image.Rect(0, 0, 16, 32), &image.Uniform{color.RGBA{A: 255}}, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(16, 0, 32, 32), &image.Uniform{color.RGBA{R: 255, G: 255, B: 255, A: 255}}, image.Point{}, draw.Src)
	_, stddev := LuminanceStats(img)
	assert.Greater(t, stddev, 0.3)
}

func TestMoodDescriptor(t *testing.T) {
	assert.Equal(t, "bright, airy, evenly lit", MoodDescriptor(0.8, 0.05))
	assert.Equal(t, "bright, punchy, high-contrast", MoodDescriptor(0.7, 0.3))
	assert.Equal(t, "moody, low-key, dramatic lighting", MoodDescriptor(0.1, 0.1))
	assert.Equal(t, "bold, high-contrast, dynamic", MoodDescriptor(0.4, 0.3))
	assert.Equal(t, "balanced, soft natural lighting", MoodDescriptor(0.45, 0.1))
}
