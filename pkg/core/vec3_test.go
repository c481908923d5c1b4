package core

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

const tolerance = 1e-9

func vecClose(a, b Vec3, tol float64) bool {
	return a.Subtract(b).Length() <= tol
}

func TestVec3_BasicOperations(t *testing.T) {
	a := NewVec3(1, 2, 3)
	b := NewVec3(4, -5, 6)

	tests := []struct {
		name     string
		got      Vec3
		expected Vec3
	}{
		{"Add", a.Add(b), NewVec3(5, -3, 9)},
		{"Subtract", a.Subtract(b), NewVec3(-3, 7, -3)},
		{"Negate", a.Negate(), NewVec3(-1, -2, -3)},
		{"Multiply", a.Multiply(2), NewVec3(2, 4, 6)},
		{"MultiplyVec", a.MultiplyVec(b), NewVec3(4, -10, 18)},
		{"Cross", NewVec3(1, 0, 0).Cross(NewVec3(0, 1, 0)), NewVec3(0, 0, 1)},
		{"Lerp midpoint", NewVec3(0, 0, 0).Lerp(NewVec3(2, 4, 6), 0.5), NewVec3(1, 2, 3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !vecClose(tt.got, tt.expected, tolerance) {
				t.Errorf("Expected %v, got %v", tt.expected, tt.got)
			}
		})
	}

	if got := a.Dot(b); got != 12 {
		t.Errorf("Expected dot 12, got %f", got)
	}
	if got := NewVec3(3, 4, 0).Length(); got != 5 {
		t.Errorf("Expected length 5, got %f", got)
	}
	if got := NewVec3(3, 4, 0).LengthSquared(); got != 25 {
		t.Errorf("Expected squared length 25, got %f", got)
	}
}

func TestVec3_Normalize(t *testing.T) {
	v := NewVec3(0, 3, 4).Normalize()
	if math.Abs(v.Length()-1) > tolerance {
		t.Errorf("Expected unit length, got %f", v.Length())
	}

	zero := Vec3{}.Normalize()
	if !zero.Equals(Vec3{}) {
		t.Errorf("Zero vector should normalize to zero, got %v", zero)
	}
	if !zero.IsFinite() {
		t.Error("Zero vector normalization produced a non-finite value")
	}
}

func TestVec3_NormalizeChecked(t *testing.T) {
	if _, err := (Vec3{}).NormalizeChecked(); !errors.Is(err, ErrDegenerateGeometry) {
		t.Errorf("Expected ErrDegenerateGeometry, got %v", err)
	}
	if _, err := NewVec3(math.Inf(1), 0, 0).NormalizeChecked(); !errors.Is(err, ErrDegenerateGeometry) {
		t.Errorf("Expected ErrDegenerateGeometry for infinite vector, got %v", err)
	}

	v, err := NewVec3(2, 0, 0).NormalizeChecked()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !vecClose(v, NewVec3(1, 0, 0), tolerance) {
		t.Errorf("Expected (1,0,0), got %v", v)
	}
}

func TestVec3_NearZero(t *testing.T) {
	if !NewVec3(1e-9, -1e-9, 0).NearZero() {
		t.Error("Expected tiny vector to be near zero")
	}
	if NewVec3(1e-3, 0, 0).NearZero() {
		t.Error("Expected 1e-3 component not to be near zero")
	}
}

// randomUnit draws a unit vector for property tests
func randomUnit(sampler Sampler) Vec3 {
	return RandomUnitVector(sampler)
}

func TestReflect_PreservesNormalComponent(t *testing.T) {
	sampler := NewRandomSampler(rand.New(rand.NewSource(7)))

	for i := 0; i < 1000; i++ {
		v := randomUnit(sampler)
		n := randomUnit(sampler)
		r := Reflect(v, n)

		if math.Abs(r.Dot(n)+v.Dot(n)) > 1e-9 {
			t.Fatalf("dot(reflect(v,n), n) = %f, expected %f", r.Dot(n), -v.Dot(n))
		}
		if math.Abs(r.Length()-1) > 1e-9 {
			t.Fatalf("Reflection of a unit vector should stay unit length, got %f", r.Length())
		}
	}
}

func TestReflect_Mirror(t *testing.T) {
	v := NewVec3(1, -1, 0)
	n := NewVec3(0, 1, 0)
	expected := NewVec3(1, 1, 0)
	if got := Reflect(v, n); !vecClose(got, expected, tolerance) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestRefract_UnitLength(t *testing.T) {
	sampler := NewRandomSampler(rand.New(rand.NewSource(11)))
	ratios := []float64{1.0 / 1.5, 1.0, 1.0 / 1.33, 1.2, 1.5}

	checked := 0
	for i := 0; i < 2000; i++ {
		n := randomUnit(sampler)
		v := randomUnit(sampler)
		if v.Dot(n) > 0 {
			v = v.Negate()
		}
		ratio := ratios[i%len(ratios)]

		cosTheta := math.Min(v.Negate().Dot(n), 1.0)
		sinTheta := math.Sqrt(1 - cosTheta*cosTheta)
		if ratio*sinTheta > 1.0 {
			continue
		}
		checked++

		r := Refract(v, n, ratio)
		if math.Abs(r.Length()-1) > 1e-6 {
			t.Fatalf("Refracted vector length %f, expected 1 (v=%v n=%v ratio=%f)", r.Length(), v, n, ratio)
		}
	}

	if checked == 0 {
		t.Fatal("No valid refraction inputs were generated")
	}
}

func TestRefract_UnitRatioPassesThrough(t *testing.T) {
	v := NewVec3(1, -2, 0.5).Normalize()
	n := NewVec3(0, 1, 0)
	if got := Refract(v, n, 1.0); !vecClose(got, v, 1e-12) {
		t.Errorf("Expected unchanged direction %v, got %v", v, got)
	}
}

func TestRefract_GrazingRoundOff(t *testing.T) {
	// perp slightly longer than 1 must not produce NaN
	v := NewVec3(1, -1e-12, 0).Normalize()
	n := NewVec3(0, 1, 0)
	r := Refract(v, n, 1.0000001)
	if !r.IsFinite() {
		t.Errorf("Expected finite refraction at grazing angle, got %v", r)
	}
}

func TestRay_At(t *testing.T) {
	ray := NewRay(NewVec3(1, 1, 1), NewVec3(0, 0, -2))
	if got := ray.At(1.5); !vecClose(got, NewVec3(1, 1, -2), tolerance) {
		t.Errorf("Expected (1,1,-2), got %v", got)
	}
	// direction keeps its length
	if ray.Direction.Length() != 2 {
		t.Errorf("Ray direction should not be normalized, got length %f", ray.Direction.Length())
	}
}

func TestVec3_GammaCorrect(t *testing.T) {
	got := NewVec3(0.25, 1, 0).GammaCorrect(2.0)
	if !vecClose(got, NewVec3(0.5, 1, 0), tolerance) {
		t.Errorf("Expected (0.5,1,0), got %v", got)
	}
	if neg := NewVec3(-1, 0, 0).GammaCorrect(2.0); !neg.IsFinite() {
		t.Errorf("Negative channel should clamp before gamma, got %v", neg)
	}
}
