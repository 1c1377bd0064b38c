// Package background adapts image generation providers to the backdrop
// contract the render pipeline consumes.
package background

import (
	"context"
	"image"

	"productshot/internal/imaging"
	"productshot/internal/providers/genai"
)

// Gemini generates backdrops through the Gemini client. Generated images
// rarely come back at the exact requested size, so the adapter resizes.
type Gemini struct {
	Client *genai.Client
}

// GenerateBackground produces a backdrop of exactly width x height.
func (g *Gemini) GenerateBackground(ctx context.Context, prompt string, width, height int, seed int64) (image.Image, error) {
	res, err := g.Client.GenerateImage(ctx, genai.ImageRequest{
		Prompt: prompt,
		Width:  width,
		Height: height,
		Seed:   seed,
	})
	if err != nil {
		return nil, err
	}
	img := res.Image
	if b := img.Bounds(); b.Dx() != width || b.Dy() != height {
		img = imaging.Scale(img, width, height)
	}
	return img, nil
}
