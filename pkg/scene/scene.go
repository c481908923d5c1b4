package scene

import (
	"fmt"

	"github.com/df07/go-stochastic-raytracer/pkg/core"
	"github.com/df07/go-stochastic-raytracer/pkg/geometry"
	"github.com/df07/go-stochastic-raytracer/pkg/integrator"
	"github.com/df07/go-stochastic-raytracer/pkg/material"
	"github.com/df07/go-stochastic-raytracer/pkg/renderer"
)

// Scene contains all the elements needed for rendering
type Scene struct {
	Name           string
	Camera         *renderer.Camera
	CameraConfig   renderer.CameraConfig
	World          *geometry.HittableList // Objects in the scene
	Background     integrator.Background
	SamplingConfig SamplingConfig
}

// SamplingConfig contains rendering configuration
type SamplingConfig struct {
	Width           int // Image width
	Height          int // Image height
	SamplesPerPixel int // Number of rays per pixel
	MaxDepth        int // Maximum ray bounce depth
}

// Validate reports sampling settings that cannot produce an image
func (c SamplingConfig) Validate() error {
	if c.Width < 1 || c.Height < 1 {
		return fmt.Errorf("image size %dx%d must be at least 1x1: %w", c.Width, c.Height, core.ErrInvalidConfig)
	}
	if c.SamplesPerPixel < 1 {
		return fmt.Errorf("samples per pixel %d must be at least 1: %w", c.SamplesPerPixel, core.ErrInvalidConfig)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max depth %d must not be negative: %w", c.MaxDepth, core.ErrInvalidConfig)
	}
	return nil
}

// newScene builds the camera from defaults merged with any override and
// derives the image size from it
func newScene(name string, cameraConfig renderer.CameraConfig, sampling SamplingConfig, cameraOverrides ...renderer.CameraConfig) (*Scene, error) {
	if len(cameraOverrides) > 0 {
		cameraConfig = renderer.MergeCameraConfig(cameraConfig, cameraOverrides[0])
	}

	camera, err := renderer.NewCamera(cameraConfig)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", name, err)
	}

	sampling.Width = cameraConfig.Width
	sampling.Height = cameraConfig.ImageHeight()

	return &Scene{
		Name:           name,
		Camera:         camera,
		CameraConfig:   cameraConfig,
		World:          geometry.NewHittableList(),
		Background:     integrator.DefaultBackground(),
		SamplingConfig: sampling,
	}, nil
}

// AddSphere validates and adds a sphere to the world
func (s *Scene) AddSphere(center core.Vec3, radius float64, mat material.Material) error {
	sphere, err := geometry.NewSphere(center, radius, mat)
	if err != nil {
		return fmt.Errorf("scene %s: %w", s.Name, err)
	}
	s.World.Add(sphere)
	return nil
}

// Integrator creates the named integrator configured for this scene:
// "path" (default) or "normals"
func (s *Scene) Integrator(kind string) (integrator.Integrator, error) {
	return s.integrator(kind, s.SamplingConfig.MaxDepth)
}

func (s *Scene) integrator(kind string, maxDepth int) (integrator.Integrator, error) {
	switch kind {
	case "", "path":
		return integrator.NewPathTracingIntegrator(maxDepth, s.Background), nil
	case "normals":
		return integrator.NewNormalShadingIntegrator(s.Background), nil
	default:
		return nil, fmt.Errorf("unknown integrator %q: %w", kind, core.ErrInvalidConfig)
	}
}

// sphereSpec is a literal sphere description used by the built-in scenes
type sphereSpec struct {
	center   core.Vec3
	radius   float64
	material material.Material
}

// addSpheres adds each sphere, stopping at the first invalid one
func (s *Scene) addSpheres(specs ...sphereSpec) error {
	for _, spec := range specs {
		if err := s.AddSphere(spec.center, spec.radius, spec.material); err != nil {
			return err
		}
	}
	return nil
}
