package core

import "errors"

var (
	// ErrDegenerateGeometry marks zero-length vectors, non-finite positions
	// and non-positive radii.
	ErrDegenerateGeometry = errors.New("degenerate geometry")

	// ErrInvalidMaterial marks material parameters outside their domain.
	ErrInvalidMaterial = errors.New("invalid material")

	// ErrInvalidConfig marks render settings that cannot produce an image.
	ErrInvalidConfig = errors.New("invalid render configuration")
)
