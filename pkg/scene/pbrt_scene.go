package scene

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/df07/go-stochastic-raytracer/pkg/core"
	"github.com/df07/go-stochastic-raytracer/pkg/loaders"
	"github.com/df07/go-stochastic-raytracer/pkg/material"
	"github.com/df07/go-stochastic-raytracer/pkg/renderer"
)

// maxFilmResolution bounds Film x/yresolution
const maxFilmResolution = 8192

// NewPBRTScene creates a scene from a PBRT file
func NewPBRTScene(path string, cameraOverrides ...renderer.CameraConfig) (*Scene, error) {
	pbrtScene, err := loaders.LoadPBRT(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load PBRT file: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return NewSceneFromPBRT(name, pbrtScene, cameraOverrides...)
}

// NewSceneFromPBRT converts parsed PBRT data into a renderable scene
func NewSceneFromPBRT(name string, pbrtScene *loaders.PBRTScene, cameraOverrides ...renderer.CameraConfig) (*Scene, error) {
	cameraConfig, err := convertCamera(pbrtScene)
	if err != nil {
		return nil, fmt.Errorf("failed to convert camera: %w", err)
	}
	sampling, err := convertSampling(pbrtScene)
	if err != nil {
		return nil, err
	}

	s, err := newScene(name, cameraConfig, sampling, cameraOverrides...)
	if err != nil {
		return nil, err
	}

	// Material statements are shared by every shape declared under them
	materials := make(map[*loaders.PBRTStatement]material.Material)
	for _, sphere := range pbrtScene.Spheres {
		if sphere.Material == nil {
			return nil, fmt.Errorf("line %d: sphere has no material", sphere.Line)
		}
		mat, ok := materials[sphere.Material]
		if !ok {
			mat, err = convertMaterial(sphere.Material)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", sphere.Material.Line, err)
			}
			materials[sphere.Material] = mat
		}
		if err := s.AddSphere(sphere.Center, sphere.Radius, mat); err != nil {
			return nil, fmt.Errorf("line %d: %w", sphere.Line, err)
		}
	}

	return s, nil
}

// convertCamera maps LookAt, Camera and Film onto a camera configuration
func convertCamera(pbrtScene *loaders.PBRTScene) (renderer.CameraConfig, error) {
	cameraConfig := renderer.CameraConfig{
		Center:      core.NewVec3(0, 0, 0),
		LookAt:      core.NewVec3(0, 0, -1),
		Up:          core.NewVec3(0, 1, 0),
		Width:       640,
		AspectRatio: 640.0 / 480.0,
		VFov:        90.0,
	}

	if pbrtScene.Eye != nil {
		cameraConfig.Center = *pbrtScene.Eye
		cameraConfig.LookAt = *pbrtScene.LookAt
		cameraConfig.Up = *pbrtScene.Up
	}

	if film := pbrtScene.Film; film != nil {
		width, height := 640, 480
		if x, ok, err := film.IntParam("xresolution"); err != nil {
			return cameraConfig, err
		} else if ok {
			width = x
		}
		if y, ok, err := film.IntParam("yresolution"); err != nil {
			return cameraConfig, err
		} else if ok {
			height = y
		}
		if width < 1 || width > maxFilmResolution || height < 1 || height > maxFilmResolution {
			return cameraConfig, fmt.Errorf("film resolution %dx%d out of range [1, %d]: %w", width, height, maxFilmResolution, core.ErrInvalidConfig)
		}
		cameraConfig.Width = width
		cameraConfig.AspectRatio = float64(width) / float64(height)
	}

	if cam := pbrtScene.Camera; cam != nil {
		if fov, ok, err := cam.FloatParam("fov"); err != nil {
			return cameraConfig, err
		} else if ok {
			if fov <= 0 || fov >= 180 {
				return cameraConfig, fmt.Errorf("camera fov %v must be between 0 and 180 degrees: %w", fov, core.ErrInvalidConfig)
			}
			cameraConfig.VFov = verticalFOV(fov, cameraConfig.AspectRatio)
		}
		if lensRadius, ok, err := cam.FloatParam("lensradius"); err != nil {
			return cameraConfig, err
		} else if ok {
			cameraConfig.Aperture = 2 * lensRadius
		}
		if focus, ok, err := cam.FloatParam("focaldistance"); err != nil {
			return cameraConfig, err
		} else if ok {
			cameraConfig.FocusDistance = focus
		}
	}

	return cameraConfig, nil
}

// verticalFOV converts a PBRT fov, which spans the shorter image axis, to a
// vertical field of view
func verticalFOV(fov, aspect float64) float64 {
	if aspect >= 1 {
		return fov
	}
	half := fov * math.Pi / 360.0
	return 2 * math.Atan(math.Tan(half)/aspect) * 180.0 / math.Pi
}

// convertSampling reads pixel samples and max depth
func convertSampling(pbrtScene *loaders.PBRTScene) (SamplingConfig, error) {
	sampling := SamplingConfig{
		SamplesPerPixel: 16,
		MaxDepth:        5,
	}
	if sampler := pbrtScene.Sampler; sampler != nil {
		if spp, ok, err := sampler.IntParam("pixelsamples"); err != nil {
			return sampling, err
		} else if ok {
			sampling.SamplesPerPixel = spp
		}
	}
	if integ := pbrtScene.Integrator; integ != nil {
		if depth, ok, err := integ.IntParam("maxdepth"); err != nil {
			return sampling, err
		} else if ok {
			sampling.MaxDepth = depth
		}
	}
	return sampling, nil
}

// convertMaterial converts a PBRT material to our material system
func convertMaterial(stmt *loaders.PBRTStatement) (material.Material, error) {
	var mat material.Material
	switch stmt.Subtype {
	case "diffuse":
		albedo, ok, err := stmt.RGBParam("reflectance")
		if err != nil {
			return nil, err
		}
		if !ok {
			albedo = core.NewVec3(0.5, 0.5, 0.5)
		}
		mat = material.NewLambertian(albedo)

	case "conductor":
		albedo, ok, err := stmt.RGBParam("reflectance")
		if err != nil {
			return nil, err
		}
		if !ok {
			albedo = core.NewVec3(0.9, 0.9, 0.9)
		}
		fuzz, _, err := stmt.FloatParam("roughness")
		if err != nil {
			return nil, err
		}
		mat = material.NewMetal(albedo, fuzz)

	case "dielectric":
		eta, ok, err := stmt.FloatParam("eta")
		if err != nil {
			return nil, err
		}
		if !ok {
			eta = 1.5
		}
		mat = material.NewDielectric(eta)

	default:
		return nil, fmt.Errorf("material %q: %w", stmt.Subtype, loaders.ErrUnsupported)
	}

	if err := material.Validate(mat); err != nil {
		return nil, err
	}
	return mat, nil
}
