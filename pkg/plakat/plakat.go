// Package plakat splits an image into a poster printed across several pages.
package plakat

import (
	"fmt"
	"image"
)

// Config holds configuration for plakat.
type Config struct {
	InPath string
	OutDir string
	Title  string

	// Width and Height are in Unit. Leaving one at zero derives it from
	// the image's aspect ratio; negative values are rejected.
	Width      float64
	Height     float64
	Unit       Unit
	Page       PageSize
	KeepAspect bool

	Preview     bool
	PreviewSize image.Point
	KeepSource  bool
}

// DefaultPreviewSize is used when Config.PreviewSize is unset.
var DefaultPreviewSize = image.Point{X: 1200, Y: 900}

// Configure applies the poster parameters of c to s. Call it after the
// image is loaded so that derived dimensions use the image's aspect ratio.
func Configure(s *Session, c *Config) error {
	for what, v := range map[string]float64{"width": c.Width, "height": c.Height} {
		if v != 0 && !positive(v) {
			return fmt.Errorf("%w: %s %v", ErrInvalidSpec, what, v)
		}
	}
	if c.Width == 0 && c.Height == 0 {
		return fmt.Errorf("%w: need a width or a height", ErrInvalidSpec)
	}
	keep := c.KeepAspect || c.Width <= 0 || c.Height <= 0

	if err := s.SetUnit(c.Unit); err != nil {
		return err
	}
	if err := s.SetPage(c.Page); err != nil {
		return err
	}
	if err := s.SetAspectLock(keep); err != nil {
		return err
	}
	if c.Width > 0 {
		if err := s.ApplyWidth(Dimension{Value: c.Width, Unit: c.Unit}); err != nil {
			return err
		}
	}
	if c.Height > 0 && (!keep || c.Width <= 0) {
		if err := s.ApplyHeight(Dimension{Value: c.Height, Unit: c.Unit}); err != nil {
			return err
		}
	}
	return nil
}
