package render

import (
	"image"
	"image/color"
	"math"
)

// WindowLUT maps 8-bit gray input to display values for a window pair on
// the 0-100 intensity scale. Inputs below center-width/2 are black, inputs
// above center+width/2 are white, and the range between is linear. The
// default window (50/100) is the identity.
func WindowLUT(center, width float64) [256]uint8 {
	var lut [256]uint8
	if width < 1 {
		width = 1
	}
	low := center - width/2
	for i := range lut {
		v := float64(i) * 100 / 255
		out := (v - low) / width
		out = math.Max(0, math.Min(1, out))
		lut[i] = uint8(math.Round(out * 255))
	}
	return lut
}

// ApplyWindow returns a new 8-bit raster with the window LUT applied to src.
// The result's bounds start at the origin.
func ApplyWindow(src image.Image, center, width float64) *image.Gray {
	lut := WindowLUT(center, width)
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	if g, ok := src.(*image.Gray); ok {
		for y := 0; y < b.Dy(); y++ {
			off := g.PixOffset(b.Min.X, b.Min.Y+y)
			srow := g.Pix[off : off+b.Dx()]
			drow := dst.Pix[y*dst.Stride : y*dst.Stride+b.Dx()]
			for x, v := range srow {
				drow[x] = lut[v]
			}
		}
		return dst
	}

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.GrayModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			dst.Pix[y*dst.Stride+x] = lut[c.Y]
		}
	}
	return dst
}
