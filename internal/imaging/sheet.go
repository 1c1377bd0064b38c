package imaging

import (
	"image"
	"image/color"
	stddraw "image/draw"

	xdraw "golang.org/x/image/draw"
)

// Stage pairs a pipeline stage name with its intermediate image, in the
// order the stages ran.
type Stage struct {
	Name  string
	Image image.Image
}

const (
	sheetGutter   = 12
	sheetMaxCols  = 3
	sheetTileSide = 512
)

var sheetBackground = color.RGBA{R: 24, G: 24, B: 28, A: 255}

// ContactSheet arranges stage images in a grid montage so a whole pipeline
// run can be reviewed at a glance.
func ContactSheet(stages []Stage) *image.RGBA {
	if len(stages) == 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}
	cols := len(stages)
	if cols > sheetMaxCols {
		cols = sheetMaxCols
	}
	rows := (len(stages) + cols - 1) / cols

	tileW := sheetTileSide
	tileH := sheetTileSide
	sheetW := cols*tileW + (cols+1)*sheetGutter
	sheetH := rows*tileH + (rows+1)*sheetGutter

	sheet := image.NewRGBA(image.Rect(0, 0, sheetW, sheetH))
	stddraw.Draw(sheet, sheet.Bounds(), &image.Uniform{sheetBackground}, image.Point{}, stddraw.Src)

	for idx, stage := range stages {
		col := idx % cols
		row := idx / cols
		x0 := sheetGutter + col*(tileW+sheetGutter)
		y0 := sheetGutter + row*(tileH+sheetGutter)
		drawTile(sheet, stage.Image, image.Rect(x0, y0, x0+tileW, y0+tileH))
	}
	return sheet
}

// Comparison renders the original and the final result side by side.
func Comparison(before, after image.Image) *image.RGBA {
	tiles := []Stage{{Name: "before", Image: before}, {Name: "after", Image: after}}
	tileW := sheetTileSide
	tileH := sheetTileSide
	sheetW := 2*tileW + 3*sheetGutter
	sheetH := tileH + 2*sheetGutter
	sheet := image.NewRGBA(image.Rect(0, 0, sheetW, sheetH))
	stddraw.Draw(sheet, sheet.Bounds(), &image.Uniform{sheetBackground}, image.Point{}, stddraw.Src)
	for idx, tile := range tiles {
		x0 := sheetGutter + idx*(tileW+sheetGutter)
		drawTile(sheet, tile.Image, image.Rect(x0, sheetGutter, x0+tileW, sheetGutter+tileH))
	}
	return sheet
}

// drawTile scales the image into the cell preserving aspect ratio and
// centers it.
func drawTile(dst *image.RGBA, src image.Image, cell image.Rectangle) {
	if src == nil {
		return
	}
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	if sw == 0 || sh == 0 {
		return
	}
	cw, ch := cell.Dx(), cell.Dy()
	scale := float64(cw) / float64(sw)
	if s := float64(ch) / float64(sh); s < scale {
		scale = s
	}
	tw := int(float64(sw) * scale)
	th := int(float64(sh) * scale)
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}
	x0 := cell.Min.X + (cw-tw)/2
	y0 := cell.Min.Y + (ch-th)/2
	target := image.Rect(x0, y0, x0+tw, y0+th)
	xdraw.ApproxBiLinear.Scale(dst, target, src, sb, xdraw.Src, nil)
}
