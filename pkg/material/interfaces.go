package material

import (
	"fmt"
	"math"

	"github.com/df07/go-stochastic-raytracer/pkg/core"
)

// Material interface for surfaces that can scatter rays.
// The built-in variants are Lambertian, Metal and Dielectric.
type Material interface {
	// Scatter returns the attenuation and the scattered ray, or false when the
	// ray is absorbed.
	Scatter(rayIn core.Ray, hit HitRecord, sampler core.Sampler) (ScatterResult, bool)
}

// ScatterResult contains the result of material scattering
type ScatterResult struct {
	Scattered   core.Ray  // The scattered ray
	Attenuation core.Vec3 // Per-channel color attenuation
}

// HitRecord contains information about a ray-object intersection.
// Material points at the shape's own material; it is never copied per hit.
type HitRecord struct {
	Point     core.Vec3 // Point of intersection
	Normal    core.Vec3 // Surface normal, always facing against the ray
	T         float64   // Parameter t along the ray
	FrontFace bool      // Whether the ray hit from outside
	Material  Material  // Material of the hit object
}

// SetFaceNormal sets the normal vector and determines front/back face
func (h *HitRecord) SetFaceNormal(ray core.Ray, outwardNormal core.Vec3) {
	h.FrontFace = ray.Direction.Dot(outwardNormal) < 0
	if h.FrontFace {
		h.Normal = outwardNormal
	} else {
		h.Normal = outwardNormal.Negate()
	}
}

// Validate checks material parameters against the domain of each variant
func Validate(m Material) error {
	switch mat := m.(type) {
	case nil:
		return fmt.Errorf("material is nil: %w", core.ErrInvalidMaterial)
	case *Lambertian:
		if !validColor(mat.Albedo) {
			return fmt.Errorf("lambertian albedo %v: %w", mat.Albedo, core.ErrInvalidMaterial)
		}
	case *Metal:
		if !validColor(mat.Albedo) {
			return fmt.Errorf("metal albedo %v: %w", mat.Albedo, core.ErrInvalidMaterial)
		}
		if mat.Fuzz < 0 || mat.Fuzz > 1 || math.IsNaN(mat.Fuzz) {
			return fmt.Errorf("metal fuzz %f outside [0,1]: %w", mat.Fuzz, core.ErrInvalidMaterial)
		}
	case *Dielectric:
		if !(mat.RefractiveIndex > 0) || math.IsInf(mat.RefractiveIndex, 0) {
			return fmt.Errorf("dielectric refractive index %f: %w", mat.RefractiveIndex, core.ErrInvalidMaterial)
		}
	}
	return nil
}

func validColor(c core.Vec3) bool {
	return c.IsFinite() && c.X >= 0 && c.Y >= 0 && c.Z >= 0
}
