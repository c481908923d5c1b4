package renderer

import (
	"fmt"
	"math"

	"github.com/df07/go-stochastic-raytracer/pkg/core"
)

// CameraConfig contains all parameters needed to create a camera
type CameraConfig struct {
	Center        core.Vec3 // Camera position (lookfrom)
	LookAt        core.Vec3 // Point the camera is looking at
	Up            core.Vec3 // Up direction (usually (0,1,0))
	Width         int       // Image width in pixels
	AspectRatio   float64   // Width / height
	VFov          float64   // Vertical field of view in degrees
	Aperture      float64   // Lens diameter; 0 gives a pinhole camera
	FocusDistance float64   // Distance to the plane in focus; 0 means |Center-LookAt|
}

// DefaultCameraConfig looks down -z from the origin with a 90 degree field of view
func DefaultCameraConfig() CameraConfig {
	return CameraConfig{
		Center:      core.NewVec3(0, 0, 0),
		LookAt:      core.NewVec3(0, 0, -1),
		Up:          core.NewVec3(0, 1, 0),
		Width:       400,
		AspectRatio: 16.0 / 9.0,
		VFov:        90.0,
	}
}

// ImageHeight derives the image height from width and aspect ratio, at least 1
func (c CameraConfig) ImageHeight() int {
	if c.AspectRatio <= 0 {
		return 1
	}
	return max(1, int(float64(c.Width)/c.AspectRatio))
}

// Camera generates primary rays with optional depth of field
type Camera struct {
	config CameraConfig

	origin          core.Vec3
	lowerLeftCorner core.Vec3
	horizontal      core.Vec3
	vertical        core.Vec3
	u, v, w         core.Vec3
	lensRadius      float64
}

// NewCamera builds the camera basis. It fails with ErrDegenerateGeometry when the
// view direction is undefined or parallel to Up.
func NewCamera(config CameraConfig) (*Camera, error) {
	if config.VFov <= 0 || config.VFov >= 180 || math.IsNaN(config.VFov) {
		return nil, fmt.Errorf("camera vfov %v out of range (0, 180): %w", config.VFov, core.ErrInvalidConfig)
	}
	if config.AspectRatio <= 0 || math.IsInf(config.AspectRatio, 0) || math.IsNaN(config.AspectRatio) {
		return nil, fmt.Errorf("camera aspect ratio %v must be positive: %w", config.AspectRatio, core.ErrInvalidConfig)
	}
	if config.Aperture < 0 || config.FocusDistance < 0 {
		return nil, fmt.Errorf("camera aperture and focus distance must not be negative: %w", core.ErrInvalidConfig)
	}

	w, err := config.Center.Subtract(config.LookAt).NormalizeChecked()
	if err != nil {
		return nil, fmt.Errorf("camera center equals look-at point: %w", err)
	}
	u, err := config.Up.Cross(w).NormalizeChecked()
	if err != nil {
		return nil, fmt.Errorf("camera up vector parallel to view direction: %w", err)
	}
	v := w.Cross(u)

	focusDistance := config.FocusDistance
	if focusDistance == 0 {
		focusDistance = config.Center.Subtract(config.LookAt).Length()
	}

	theta := config.VFov * math.Pi / 180.0
	viewportHeight := 2.0 * math.Tan(theta/2)
	viewportWidth := config.AspectRatio * viewportHeight

	origin := config.Center
	horizontal := u.Multiply(viewportWidth * focusDistance)
	vertical := v.Multiply(viewportHeight * focusDistance)
	lowerLeftCorner := origin.
		Subtract(horizontal.Multiply(0.5)).
		Subtract(vertical.Multiply(0.5)).
		Subtract(w.Multiply(focusDistance))

	return &Camera{
		config:          config,
		origin:          origin,
		lowerLeftCorner: lowerLeftCorner,
		horizontal:      horizontal,
		vertical:        vertical,
		u:               u,
		v:               v,
		w:               w,
		lensRadius:      config.Aperture / 2,
	}, nil
}

// Config returns the configuration the camera was built from
func (c *Camera) Config() CameraConfig {
	return c.config
}

// LensRadius returns half the aperture
func (c *Camera) LensRadius() float64 {
	return c.lensRadius
}

// GetRay generates a ray for viewport coordinates (s, t) where 0 <= s,t <= 1 and
// t grows upward. A pinhole camera draws nothing from the sampler.
func (c *Camera) GetRay(s, t float64, sampler core.Sampler) core.Ray {
	target := c.lowerLeftCorner.
		Add(c.horizontal.Multiply(s)).
		Add(c.vertical.Multiply(t))

	if c.lensRadius <= 0 {
		return core.NewRay(c.origin, target.Subtract(c.origin))
	}

	rd := core.RandomInUnitDisk(sampler).Multiply(c.lensRadius)
	offset := c.u.Multiply(rd.X).Add(c.v.Multiply(rd.Y))
	origin := c.origin.Add(offset)
	return core.NewRay(origin, target.Subtract(origin))
}

// MergeCameraConfig overlays the non-zero fields of override onto base
func MergeCameraConfig(base, override CameraConfig) CameraConfig {
	merged := base
	if override.Center != (core.Vec3{}) {
		merged.Center = override.Center
	}
	if override.LookAt != (core.Vec3{}) {
		merged.LookAt = override.LookAt
	}
	if override.Up != (core.Vec3{}) {
		merged.Up = override.Up
	}
	if override.Width != 0 {
		merged.Width = override.Width
	}
	if override.AspectRatio != 0 {
		merged.AspectRatio = override.AspectRatio
	}
	if override.VFov != 0 {
		merged.VFov = override.VFov
	}
	if override.Aperture != 0 {
		merged.Aperture = override.Aperture
	}
	if override.FocusDistance != 0 {
		merged.FocusDistance = override.FocusDistance
	}
	return merged
}
