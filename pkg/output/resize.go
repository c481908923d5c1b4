package output

import (
	"image"

	"github.com/nfnt/resize"
)

// Downscale resamples img to width x height with a Lanczos3 filter. It is
// used to average supersampled renders down to the requested size.
func Downscale(img image.Image, width, height int) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() == width && bounds.Dy() == height {
		return img
	}
	return resize.Resize(uint(width), uint(height), img, resize.Lanczos3)
}
