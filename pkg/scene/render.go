package scene

import (
	"fmt"
	"log/slog"

	"github.com/df07/go-stochastic-raytracer/pkg/renderer"
)

// RenderSettings overrides the scene's sampling for one render. Zero values
// keep the scene's settings, except MaxDepth where only a negative value does.
type RenderSettings struct {
	SamplesPerPixel int
	MaxDepth        int
	Workers         int
	RowChunkSize    int
	Seed            int64
	Integrator      string // "path" or "normals"
}

// DefaultRenderSettings keeps every scene setting
func DefaultRenderSettings() RenderSettings {
	return RenderSettings{MaxDepth: -1, Seed: 42}
}

// NewRaytracer builds a raytracer with the selected integrator. It returns the
// sampling the render uses: the scene's own settings with overrides applied.
// The scene is not modified.
func (s *Scene) NewRaytracer(settings RenderSettings, logger *slog.Logger) (*renderer.Raytracer, SamplingConfig, error) {
	sampling := s.SamplingConfig
	if settings.SamplesPerPixel > 0 {
		sampling.SamplesPerPixel = settings.SamplesPerPixel
	}
	if settings.MaxDepth >= 0 {
		sampling.MaxDepth = settings.MaxDepth
	}
	if err := sampling.Validate(); err != nil {
		return nil, sampling, fmt.Errorf("scene %s: %w", s.Name, err)
	}

	integ, err := s.integrator(settings.Integrator, sampling.MaxDepth)
	if err != nil {
		return nil, sampling, err
	}

	rt, err := renderer.NewRaytracer(s.World, s.Camera, integ, renderer.Config{
		Width:           sampling.Width,
		Height:          sampling.Height,
		SamplesPerPixel: sampling.SamplesPerPixel,
		NumWorkers:      settings.Workers,
		RowChunkSize:    settings.RowChunkSize,
		Seed:            settings.Seed,
	}, logger)
	return rt, sampling, err
}
