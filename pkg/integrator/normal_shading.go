package integrator

import (
	"math"

	"github.com/df07/go-stochastic-raytracer/pkg/core"
	"github.com/df07/go-stochastic-raytracer/pkg/geometry"
)

// NormalShadingIntegrator colors each hit by its surface normal mapped into [0,1].
// It ignores materials and is useful for checking geometry and camera setup.
type NormalShadingIntegrator struct {
	background Background
}

// NewNormalShadingIntegrator creates a normal visualisation integrator
func NewNormalShadingIntegrator(background Background) *NormalShadingIntegrator {
	return &NormalShadingIntegrator{background: background}
}

// RayColor returns 0.5*(white+normal) on a hit and the background on a miss
func (ns *NormalShadingIntegrator) RayColor(ray core.Ray, world geometry.Shape, sampler core.Sampler) core.Vec3 {
	hit, isHit := world.Hit(ray, 0, math.Inf(1))
	if !isHit {
		return ns.background.Color(ray)
	}
	return core.NewVec3(1, 1, 1).Add(hit.Normal).Multiply(0.5)
}
