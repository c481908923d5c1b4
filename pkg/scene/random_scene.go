package scene

import (
	"math/rand"

	"github.com/df07/go-stochastic-raytracer/pkg/core"
	"github.com/df07/go-stochastic-raytracer/pkg/material"
	"github.com/df07/go-stochastic-raytracer/pkg/renderer"
)

// NewRandomScene creates a field of small random spheres around three large
// ones. The layout depends only on seed.
func NewRandomScene(seed int64, cameraOverrides ...renderer.CameraConfig) (*Scene, error) {
	cameraConfig := renderer.CameraConfig{
		Center:        core.NewVec3(13, 2, 3),
		LookAt:        core.NewVec3(0, 0, 0),
		Up:            core.NewVec3(0, 1, 0),
		Width:         600,
		AspectRatio:   3.0 / 2.0,
		VFov:          20.0,
		Aperture:      0.1,
		FocusDistance: 10.0,
	}

	s, err := newScene("random", cameraConfig, SamplingConfig{
		SamplesPerPixel: 50,
		MaxDepth:        50,
	}, cameraOverrides...)
	if err != nil {
		return nil, err
	}

	random := rand.New(rand.NewSource(seed))
	specs := []sphereSpec{
		{core.NewVec3(0, -1000, 0), 1000, material.NewLambertian(core.NewVec3(0.5, 0.5, 0.5))},
	}

	// Keep the small spheres clear of the big metal one
	clearing := core.NewVec3(4, 0.2, 0)

	for a := -11; a < 11; a++ {
		for b := -11; b < 11; b++ {
			center := core.NewVec3(float64(a)+0.9*random.Float64(), 0.2, float64(b)+0.9*random.Float64())
			if center.Subtract(clearing).Length() <= 0.9 {
				continue
			}

			var mat material.Material
			switch choose := random.Float64(); {
			case choose < 0.8:
				albedo := randomColor(random, 0, 1).MultiplyVec(randomColor(random, 0, 1))
				mat = material.NewLambertian(albedo)
			case choose < 0.95:
				mat = material.NewMetal(randomColor(random, 0.5, 1), 0.5*random.Float64())
			default:
				mat = material.NewDielectric(1.5)
			}
			specs = append(specs, sphereSpec{center, 0.2, mat})
		}
	}

	specs = append(specs,
		sphereSpec{core.NewVec3(0, 1, 0), 1.0, material.NewDielectric(1.5)},
		sphereSpec{core.NewVec3(-4, 1, 0), 1.0, material.NewLambertian(core.NewVec3(0.4, 0.2, 0.1))},
		sphereSpec{core.NewVec3(4, 1, 0), 1.0, material.NewMetal(core.NewVec3(0.7, 0.6, 0.5), 0.0)},
	)

	if err := s.addSpheres(specs...); err != nil {
		return nil, err
	}
	return s, nil
}

// randomColor returns a color with each channel uniform in [lo, hi)
func randomColor(random *rand.Rand, lo, hi float64) core.Vec3 {
	span := hi - lo
	return core.NewVec3(
		lo+span*random.Float64(),
		lo+span*random.Float64(),
		lo+span*random.Float64(),
	)
}
