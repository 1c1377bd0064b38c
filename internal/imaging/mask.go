package imaging

import (
	"image"
	"math"
)

// AlphaMask extracts the alpha channel of an RGBA cutout as a grayscale
// mask: white = foreground, black = background.
func AlphaMask(img *image.NRGBA) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	mask := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		srcRow := img.Pix[(y+b.Min.Y-img.Rect.Min.Y)*img.Stride:]
		for x := 0; x < w; x++ {
			mask.Pix[y*mask.Stride+x] = srcRow[(x+b.Min.X-img.Rect.Min.X)*4+3]
		}
	}
	return mask
}

// Dilate expands the bright regions of the mask with a square max filter of
// the given radius. Radius <= 0 returns the mask unchanged.
func Dilate(m *image.Gray, radius int) *image.Gray {
	if radius <= 0 {
		return m
	}
	// Separable: horizontal max pass then vertical max pass.
	horiz := maxFilterPass(m, radius, true)
	return maxFilterPass(horiz, radius, false)
}

func maxFilterPass(m *image.Gray, radius int, horizontal bool) *image.Gray {
	b := m.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var best uint8
			for d := -radius; d <= radius; d++ {
				sx, sy := x, y
				if horizontal {
					sx += d
				} else {
					sy += d
				}
				if sx < 0 || sx >= w || sy < 0 || sy >= h {
					continue
				}
				if v := m.Pix[sy*m.Stride+sx]; v > best {
					best = v
				}
			}
			out.Pix[y*out.Stride+x] = best
		}
	}
	return out
}

// Feather softens mask edges with a separable Gaussian blur. Sigma <= 0
// returns the mask unchanged.
func Feather(m *image.Gray, sigma float64) *image.Gray {
	if sigma <= 0 {
		return m
	}
	kernel := gaussianKernel(sigma)
	horiz := convolvePass(m, kernel, true)
	return convolvePass(horiz, kernel, false)
}

func gaussianKernel(sigma float64) []float64 {
	radius := int(math.Ceil(sigma * 3))
	if radius < 1 {
		radius = 1
	}
	kernel := make([]float64, 2*radius+1)
	sum := 0.0
	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

func convolvePass(m *image.Gray, kernel []float64, horizontal bool) *image.Gray {
	b := m.Bounds()
	w, h := b.Dx(), b.Dy()
	radius := len(kernel) / 2
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			acc := 0.0
			for i, k := range kernel {
				sx, sy := x, y
				if horizontal {
					sx += i - radius
				} else {
					sy += i - radius
				}
				// Clamp to edge so borders keep their intensity.
				if sx < 0 {
					sx = 0
				} else if sx >= w {
					sx = w - 1
				}
				if sy < 0 {
					sy = 0
				} else if sy >= h {
					sy = h - 1
				}
				acc += k * float64(m.Pix[sy*m.Stride+sx])
			}
			out.Pix[y*out.Stride+x] = uint8(math.Round(math.Min(255, math.Max(0, acc))))
		}
	}
	return out
}

// Invert flips the mask so white becomes black and vice versa. Inpainting
// masks are inverted: white marks the region to repaint.
func Invert(m *image.Gray) *image.Gray {
	b := m.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Pix[y*out.Stride+x] = 255 - m.Pix[y*m.Stride+x]
		}
	}
	return out
}

// Threshold binarizes the mask: values above t become 255, the rest 0.
func Threshold(m *image.Gray, t uint8) *image.Gray {
	b := m.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if m.Pix[y*m.Stride+x] > t {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

// BoundingBox returns the tight bounds of mask pixels above min, and false
// when the mask has no such pixels.
func BoundingBox(m *image.Gray, min uint8) (image.Rectangle, bool) {
	b := m.Bounds()
	w, h := b.Dx(), b.Dy()
	minX, minY := w, h
	maxX, maxY := -1, -1
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if m.Pix[y*m.Stride+x] > min {
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}
	if maxX < 0 {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// ShiftDown translates the mask down by px rows, filling the vacated rows
// with black. Used to anchor the synthesized shadow under the product.
func ShiftDown(m *image.Gray, px int) *image.Gray {
	b := m.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if px < 0 {
		px = 0
	}
	for y := px; y < h; y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+w], m.Pix[(y-px)*m.Stride:(y-px)*m.Stride+w])
	}
	return out
}

// IsEmpty reports whether no mask pixel exceeds min.
func IsEmpty(m *image.Gray, min uint8) bool {
	_, ok := BoundingBox(m, min)
	return !ok
}

// ToGray converts any image to grayscale, used when external services return
// masks as RGB(A) images.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(x-b.Min.X, y-b.Min.Y, img.At(x, y))
		}
	}
	return out
}
