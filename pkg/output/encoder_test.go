package output

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/df07/go-stochastic-raytracer/pkg/core"
	"github.com/df07/go-stochastic-raytracer/pkg/renderer"
)

func TestToColor(t *testing.T) {
	tests := []struct {
		name     string
		input    core.Vec3
		expected color.RGBA
	}{
		{"black", core.NewVec3(0, 0, 0), color.RGBA{0, 0, 0, 255}},
		{"white clamps to 255", core.NewVec3(1, 1, 1), color.RGBA{255, 255, 255, 255}},
		{"over-bright clamps", core.NewVec3(4, 9, 100), color.RGBA{255, 255, 255, 255}},
		{"quarter is gamma corrected to half", core.NewVec3(0.25, 0.25, 0.25), color.RGBA{128, 128, 128, 255}},
		{"negative clamps to zero", core.NewVec3(-1, 0.25, 0), color.RGBA{0, 128, 0, 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToColor(tt.input)
			if got != tt.expected {
				t.Errorf("ToColor(%v) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func testBuffer() *renderer.PixelBuffer {
	buf := renderer.NewPixelBuffer(3, 2)
	buf.Set(0, 0, core.NewVec3(1, 0, 0))
	buf.Set(1, 0, core.NewVec3(0, 1, 0))
	buf.Set(2, 0, core.NewVec3(0, 0, 1))
	buf.Set(0, 1, core.NewVec3(0.25, 0.25, 0.25))
	return buf
}

func TestToImage_TopRowFirst(t *testing.T) {
	img := ToImage(testBuffer())

	if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
		t.Fatalf("bounds = %v, want 3x2", img.Bounds())
	}
	if got := img.RGBAAt(0, 0); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("pixel (0,0) = %v, want red", got)
	}
	if got := img.RGBAAt(0, 1); got != (color.RGBA{128, 128, 128, 255}) {
		t.Errorf("pixel (0,1) = %v, want mid grey", got)
	}
}

func TestToImageRows(t *testing.T) {
	strip := ToImageRows(testBuffer(), 1, 2)
	if strip.Bounds().Dy() != 1 {
		t.Fatalf("strip height = %d, want 1", strip.Bounds().Dy())
	}
	if got := strip.RGBAAt(0, 0); got != (color.RGBA{128, 128, 128, 255}) {
		t.Errorf("strip pixel = %v, want mid grey", got)
	}
}

func TestEncodePPM(t *testing.T) {
	var out bytes.Buffer
	if err := Encode(&out, ToImage(testBuffer()), FormatPPM); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3+6 {
		t.Fatalf("got %d lines, want 9", len(lines))
	}
	if lines[0] != "P3" || lines[1] != "3 2" || lines[2] != "255" {
		t.Errorf("unexpected header %q", lines[:3])
	}
	if lines[3] != "255 0 0" {
		t.Errorf("first pixel = %q, want \"255 0 0\"", lines[3])
	}
	if lines[6] != "128 128 128" {
		t.Errorf("first pixel of second row = %q, want \"128 128 128\"", lines[6])
	}
}

func TestEncode_RoundTripFormats(t *testing.T) {
	img := ToImage(testBuffer())

	decoders := map[Format]func(*bytes.Buffer) (image.Image, error){
		FormatPNG:  func(b *bytes.Buffer) (image.Image, error) { return png.Decode(b) },
		FormatBMP:  func(b *bytes.Buffer) (image.Image, error) { return bmp.Decode(b) },
		FormatTIFF: func(b *bytes.Buffer) (image.Image, error) { return tiff.Decode(b) },
	}

	for format, decode := range decoders {
		t.Run(string(format), func(t *testing.T) {
			var out bytes.Buffer
			if err := Encode(&out, img, format); err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			decoded, err := decode(&out)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			r, g, b, _ := decoded.At(1, 0).RGBA()
			if r != 0 || g>>8 != 255 || b != 0 {
				t.Errorf("pixel (1,0) = (%d,%d,%d), want green", r>>8, g>>8, b>>8)
			}
		})
	}
}

func TestEncode_UnknownFormat(t *testing.T) {
	err := Encode(&bytes.Buffer{}, image.NewRGBA(image.Rect(0, 0, 1, 1)), Format("gif"))
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path     string
		expected Format
		wantErr  bool
	}{
		{"out.png", FormatPNG, false},
		{"dir/out.PPM", FormatPPM, false},
		{"out.bmp", FormatBMP, false},
		{"out.tif", FormatTIFF, false},
		{"out.tiff", FormatTIFF, false},
		{"out.jpg", "", true},
		{"noext", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFromPath(tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownFormat) {
					t.Errorf("expected ErrUnknownFormat, got %v", err)
				}
				return
			}
			if err != nil || got != tt.expected {
				t.Errorf("FormatFromPath(%q) = %q, %v; want %q", tt.path, got, err, tt.expected)
			}
		})
	}
}

func TestWriteFile(t *testing.T) {
	var encoded bytes.Buffer
	if err := Encode(&encoded, ToImage(testBuffer()), FormatPNG); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"existing directory", filepath.Join(dir, "render.png"), false},
		{"nested directories", filepath.Join(dir, "a", "b", "render.png"), false},
		{"parent is a file", filepath.Join(blocker, "render.png"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WriteFile(tt.path, encoded.Bytes())
			if tt.wantErr {
				if err == nil {
					t.Error("Expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("WriteFile failed: %v", err)
			}

			file, err := os.Open(tt.path)
			if err != nil {
				t.Fatalf("open saved image: %v", err)
			}
			defer file.Close()

			cfg, err := png.DecodeConfig(file)
			if err != nil {
				t.Fatalf("decode saved image: %v", err)
			}
			if cfg.Width != 3 || cfg.Height != 2 {
				t.Errorf("saved size = %dx%d, want 3x2", cfg.Width, cfg.Height)
			}
		})
	}
}

func TestDownscale(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for i := range src.Pix {
		src.Pix[i] = 200
	}

	if got := Downscale(src, 8, 6); got != image.Image(src) {
		t.Error("same-size Downscale should return the input")
	}

	small := Downscale(src, 4, 3)
	if small.Bounds().Dx() != 4 || small.Bounds().Dy() != 3 {
		t.Fatalf("bounds = %v, want 4x3", small.Bounds())
	}
	r, _, _, _ := small.At(2, 1).RGBA()
	if r>>8 < 190 || r>>8 > 210 {
		t.Errorf("uniform image changed value: got %d, want ~200", r>>8)
	}
}

func TestAnnotate(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 120, 10))
	out := Annotate(src, "1 spp")

	if out.Bounds().Dx() != 120 || out.Bounds().Dy() <= 10 {
		t.Fatalf("bounds = %v, want wider band below a 120x10 image", out.Bounds())
	}

	lit := false
	for y := 10; y < out.Bounds().Dy() && !lit; y++ {
		for x := 0; x < 60; x++ {
			if out.RGBAAt(x, y).R > 0 {
				lit = true
				break
			}
		}
	}
	if !lit {
		t.Error("caption band contains no text pixels")
	}
}
