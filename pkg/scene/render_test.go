package scene

import (
	"context"
	"errors"
	"testing"

	"github.com/df07/go-stochastic-raytracer/pkg/core"
	"github.com/df07/go-stochastic-raytracer/pkg/renderer"
)

func TestScene_NewRaytracer(t *testing.T) {
	tests := []struct {
		name          string
		settings      RenderSettings
		expectSamples int
		expectDepth   int
		expectErr     error
	}{
		{"keeps scene settings", DefaultRenderSettings(), 100, 50, nil},
		{"overrides samples and depth", RenderSettings{SamplesPerPixel: 4, MaxDepth: 0}, 4, 0, nil},
		{"unknown integrator", RenderSettings{MaxDepth: -1, Integrator: "bidirectional"}, 0, 0, core.ErrInvalidConfig},
		{"negative workers", RenderSettings{MaxDepth: -1, Workers: -2}, 0, 0, core.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewDefaultScene(renderer.CameraConfig{Width: 16})
			if err != nil {
				t.Fatalf("NewDefaultScene failed: %v", err)
			}

			original := s.SamplingConfig
			rt, sampling, err := s.NewRaytracer(tt.settings, nil)
			if s.SamplingConfig != original {
				t.Errorf("scene sampling changed from %+v to %+v", original, s.SamplingConfig)
			}
			if tt.expectErr != nil {
				if !errors.Is(err, tt.expectErr) {
					t.Errorf("expected %v, got %v", tt.expectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewRaytracer failed: %v", err)
			}
			if rt.Config().SamplesPerPixel != tt.expectSamples {
				t.Errorf("samples = %d, want %d", rt.Config().SamplesPerPixel, tt.expectSamples)
			}
			if sampling.SamplesPerPixel != tt.expectSamples || sampling.MaxDepth != tt.expectDepth {
				t.Errorf("sampling = %d spp depth %d, want %d spp depth %d",
					sampling.SamplesPerPixel, sampling.MaxDepth, tt.expectSamples, tt.expectDepth)
			}
			if rt.Config().Width != 16 || rt.Config().Height != s.CameraConfig.ImageHeight() {
				t.Errorf("size = %dx%d", rt.Config().Width, rt.Config().Height)
			}
		})
	}
}

func TestScene_RenderNormals(t *testing.T) {
	s, err := NewDefaultScene(renderer.CameraConfig{Width: 8})
	if err != nil {
		t.Fatalf("NewDefaultScene failed: %v", err)
	}
	rt, _, err := s.NewRaytracer(RenderSettings{SamplesPerPixel: 1, MaxDepth: -1, Integrator: "normals"}, nil)
	if err != nil {
		t.Fatalf("NewRaytracer failed: %v", err)
	}

	buf, stats, err := rt.Render(context.Background(), renderer.RenderOptions{})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if stats.TotalPixels != int64(buf.Width*buf.Height) {
		t.Errorf("rendered %d pixels, want %d", stats.TotalPixels, buf.Width*buf.Height)
	}
	for i, c := range buf.Pixels {
		if c.X < 0 || c.X > 1 || c.Y < 0 || c.Y > 1 || c.Z < 0 || c.Z > 1 {
			t.Fatalf("pixel %d = %v outside [0,1]", i, c)
		}
	}
}
