package plakat

import (
	"fmt"
	"math"
)

// Spec describes the poster the user wants. Lengths are in inches.
type Spec struct {
	Width      float64
	Height     float64
	Page       PageSize
	KeepAspect bool
}

// Desired returns the poster size as a vector.
func (s Spec) Desired() Vec {
	return Vec{s.Width, s.Height}
}

// Validate rejects non-positive or non-finite dimensions and unknown pages.
func (s Spec) Validate() error {
	if err := checkSize("desired", s.Desired()); err != nil {
		return err
	}
	if !s.Page.Valid() {
		return fmt.Errorf("%w: page %v", ErrInvalidSpec, s.Page)
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func checkSize(what string, v Vec) error {
	if !positive(v.X) || !positive(v.Y) {
		return fmt.Errorf("%w: %s size %vx%v", ErrInvalidSpec, what, v.X, v.Y)
	}
	return nil
}
