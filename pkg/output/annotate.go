package output

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Annotate returns a copy of img with a caption band appended below it
func Annotate(img image.Image, caption string) *image.RGBA {
	face := basicfont.Face7x13
	metrics := face.Metrics()
	lineHeight := (metrics.Ascent + metrics.Descent).Ceil()
	padding := 4

	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()+lineHeight+2*padding))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(0, 0, bounds.Dx(), bounds.Dy()), img, bounds.Min, draw.Src)

	drawer := &font.Drawer{
		Dst:  out,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.P(padding, bounds.Dy()+padding+metrics.Ascent.Ceil()),
	}
	drawer.DrawString(caption)
	return out
}
