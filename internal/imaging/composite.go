package imaging

import (
	"image"
	"image/color"
	"image/draw"
)

// AlphaBlend composites the foreground cutout over the background using the
// mask as per-pixel alpha: out = fg*a + bg*(1-a). The background is resized
// to the foreground dimensions when they differ.
func AlphaBlend(fg *image.NRGBA, bg image.Image, mask *image.Gray) *image.RGBA {
	fb := fg.Bounds()
	w, h := fb.Dx(), fb.Dy()
	if bb := bg.Bounds(); bb.Dx() != w || bb.Dy() != h {
		bg = Scale(bg, w, h)
	}
	bgRGBA := toRGBA(bg)

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := float64(mask.Pix[y*mask.Stride+x]) / 255.0
			fi := y*fg.Stride + x*4
			bi := y*bgRGBA.Stride + x*4
			oi := y*out.Stride + x*4
			out.Pix[oi+0] = lerp(bgRGBA.Pix[bi+0], fg.Pix[fi+0], a)
			out.Pix[oi+1] = lerp(bgRGBA.Pix[bi+1], fg.Pix[fi+1], a)
			out.Pix[oi+2] = lerp(bgRGBA.Pix[bi+2], fg.Pix[fi+2], a)
			out.Pix[oi+3] = 255
		}
	}
	return out
}

// Shadow darkens the background under a copy of the product mask that has
// been shifted down and Gaussian-blurred, producing a soft contact shadow.
func Shadow(bg image.Image, mask *image.Gray, offset int, blur float64, opacity float64) *image.RGBA {
	b := bg.Bounds()
	w, h := b.Dx(), b.Dy()
	if mb := mask.Bounds(); mb.Dx() != w || mb.Dy() != h {
		mask = ToGray(Scale(mask, w, h))
	}
	shadowMask := Feather(ShiftDown(mask, offset), blur)

	out := toRGBA(bg)
	if opacity <= 0 {
		return out
	}
	if opacity > 1 {
		opacity = 1
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := float64(shadowMask.Pix[y*shadowMask.Stride+x]) / 255.0 * opacity
			if a == 0 {
				continue
			}
			oi := y*out.Stride + x*4
			factor := 1 - a
			out.Pix[oi+0] = uint8(float64(out.Pix[oi+0]) * factor)
			out.Pix[oi+1] = uint8(float64(out.Pix[oi+1]) * factor)
			out.Pix[oi+2] = uint8(float64(out.Pix[oi+2]) * factor)
		}
	}
	return out
}

// Overlay tints the masked region of an image, used for mask diagnostics.
func Overlay(img image.Image, mask *image.Gray, tint color.RGBA, alpha float64) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	out := toRGBA(img)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := float64(mask.Pix[y*mask.Stride+x]) / 255.0 * alpha
			if a == 0 {
				continue
			}
			oi := y*out.Stride + x*4
			out.Pix[oi+0] = lerp(out.Pix[oi+0], tint.R, a)
			out.Pix[oi+1] = lerp(out.Pix[oi+1], tint.G, a)
			out.Pix[oi+2] = lerp(out.Pix[oi+2], tint.B, a)
		}
	}
	return out
}

func lerp(from, to uint8, a float64) uint8 {
	return uint8(float64(from)*(1-a) + float64(to)*a + 0.5)
}

// toRGBA always returns a fresh buffer. Shadow and Overlay write into the
// result, and callers keep using the source image afterwards.
func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
