package scene

import (
	"github.com/df07/go-stochastic-raytracer/pkg/core"
	"github.com/df07/go-stochastic-raytracer/pkg/material"
	"github.com/df07/go-stochastic-raytracer/pkg/renderer"
)

// NewDefaultScene creates the two-sphere scene: a diffuse sphere resting on a
// huge ground sphere, seen through a pinhole camera at the origin
func NewDefaultScene(cameraOverrides ...renderer.CameraConfig) (*Scene, error) {
	cameraConfig := renderer.CameraConfig{
		Center:      core.NewVec3(0, 0, 0),
		LookAt:      core.NewVec3(0, 0, -1),
		Up:          core.NewVec3(0, 1, 0),
		Width:       400,
		AspectRatio: 16.0 / 9.0,
		VFov:        90.0,
	}

	s, err := newScene("default", cameraConfig, SamplingConfig{
		SamplesPerPixel: 100,
		MaxDepth:        50,
	}, cameraOverrides...)
	if err != nil {
		return nil, err
	}

	err = s.addSpheres(
		sphereSpec{core.NewVec3(0, -100.5, -1), 100, material.NewLambertian(core.NewVec3(0.8, 0.8, 0.0))},
		sphereSpec{core.NewVec3(0, 0, -1), 0.5, material.NewLambertian(core.NewVec3(0.7, 0.3, 0.3))},
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewMaterialsScene places one sphere of each material side by side:
// a hollow glass sphere, a diffuse sphere and a polished gold sphere
func NewMaterialsScene(cameraOverrides ...renderer.CameraConfig) (*Scene, error) {
	cameraConfig := renderer.CameraConfig{
		Center:      core.NewVec3(-2, 2, 1),
		LookAt:      core.NewVec3(0, 0, -1),
		Up:          core.NewVec3(0, 1, 0),
		Width:       400,
		AspectRatio: 16.0 / 9.0,
		VFov:        30.0,
		Aperture:    0.1,
	}

	s, err := newScene("materials", cameraConfig, SamplingConfig{
		SamplesPerPixel: 100,
		MaxDepth:        50,
	}, cameraOverrides...)
	if err != nil {
		return nil, err
	}

	ground := material.NewLambertian(core.NewVec3(0.8, 0.8, 0.0))
	diffuse := material.NewLambertian(core.NewVec3(0.1, 0.2, 0.5))
	glass := material.NewDielectric(1.5)
	// The inner surface sees glass-to-air, which inverts the ratio
	airBubble := material.NewDielectric(1.0 / 1.5)
	gold := material.NewMetal(core.NewVec3(0.8, 0.6, 0.2), 0.0)

	err = s.addSpheres(
		sphereSpec{core.NewVec3(0, -100.5, -1), 100, ground},
		sphereSpec{core.NewVec3(0, 0, -1), 0.5, diffuse},
		sphereSpec{core.NewVec3(-1, 0, -1), 0.5, glass},
		sphereSpec{core.NewVec3(-1, 0, -1), 0.4, airBubble},
		sphereSpec{core.NewVec3(1, 0, -1), 0.5, gold},
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewEmptyScene has no objects; every pixel is the background gradient
func NewEmptyScene(cameraOverrides ...renderer.CameraConfig) (*Scene, error) {
	return newScene("empty", renderer.DefaultCameraConfig(), SamplingConfig{
		SamplesPerPixel: 10,
		MaxDepth:        10,
	}, cameraOverrides...)
}
