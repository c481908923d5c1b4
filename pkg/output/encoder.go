package output

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/df07/go-stochastic-raytracer/pkg/core"
	"github.com/df07/go-stochastic-raytracer/pkg/renderer"
)

// ErrUnknownFormat is returned for image formats the encoder does not write
var ErrUnknownFormat = errors.New("unknown image format")

// Format names an output image encoding
type Format string

const (
	FormatPNG  Format = "png"
	FormatPPM  Format = "ppm" // plain-text P3
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
)

// ParseFormat accepts a format name case-insensitively; "tif" means TIFF
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "png":
		return FormatPNG, nil
	case "ppm":
		return FormatPPM, nil
	case "bmp":
		return FormatBMP, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	}
	return "", fmt.Errorf("%q: %w", name, ErrUnknownFormat)
}

// FormatFromPath picks the format from the file extension
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Extension returns the file extension including the dot
func (f Format) Extension() string {
	return "." + string(f)
}

// ContentType returns the MIME type used when publishing
func (f Format) ContentType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatBMP:
		return "image/bmp"
	case FormatTIFF:
		return "image/tiff"
	case FormatPPM:
		return "image/x-portable-pixmap"
	}
	return "application/octet-stream"
}

// ToColor converts a linear color to 8-bit sRGB-ish output: gamma 2 (square
// root), clamp to [0, 0.999], then scale by 256
func ToColor(c core.Vec3) color.RGBA {
	c = c.GammaCorrect(2.0)
	return color.RGBA{
		R: quantize(c.X),
		G: quantize(c.Y),
		B: quantize(c.Z),
		A: 255,
	}
}

func quantize(v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	return uint8(256 * math.Max(0, math.Min(0.999, v)))
}

// ToImage converts the linear pixel buffer to an 8-bit image. Buffer row 0
// becomes image row 0 (the top).
func ToImage(buf *renderer.PixelBuffer) *image.RGBA {
	return ToImageRows(buf, 0, buf.Height)
}

// ToImageRows converts buffer rows [startRow, endRow) into an image strip
func ToImageRows(buf *renderer.PixelBuffer, startRow, endRow int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, buf.Width, endRow-startRow))
	for y := startRow; y < endRow; y++ {
		for x, c := range buf.Row(y) {
			img.SetRGBA(x, y-startRow, ToColor(c))
		}
	}
	return img
}

// Encode writes img to w in the given format
func Encode(w io.Writer, img image.Image, format Format) error {
	var err error
	switch format {
	case FormatPNG:
		err = png.Encode(w, img)
	case FormatBMP:
		err = bmp.Encode(w, img)
	case FormatTIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case FormatPPM:
		err = encodePPM(w, img)
	default:
		return fmt.Errorf("%q: %w", format, ErrUnknownFormat)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", format, err)
	}
	return nil
}

// encodePPM writes the plain (P3) variant: a text header then one
// "r g b" triple per line
func encodePPM(w io.Writer, img image.Image) error {
	bw := bufio.NewWriter(w)
	bounds := img.Bounds()
	fmt.Fprintf(bw, "P3\n%d %d\n255\n", bounds.Dx(), bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			fmt.Fprintf(bw, "%d %d %d\n", c.R, c.G, c.B)
		}
	}
	return bw.Flush()
}

// WriteFile stores encoded image bytes at path, creating parent directories
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
