package plakat

import (
	"fmt"

	"k8s.io/klog/v2"
)

// PointsPerInch is the output device resolution.
const PointsPerInch = 72.0

// Placement is where the full poster image lands on one output page.
// All values are in points, origin at the top-left page corner.
type Placement struct {
	Tile
	PageSize  Vec
	Offset    Vec
	ImageSize Vec
}

// Placements computes one placement per page, in the same order as Layout.Tiles.
// Drawing the whole image at Offset with ImageSize on every page and clipping
// to the page reproduces the poster.
func Placements(desired Vec, p PageSize) ([]Placement, error) {
	l, err := NewLayout(desired, p)
	if err != nil {
		return nil, err
	}
	return l.Placements(), nil
}

// Placements converts the layout into output geometry.
func (l Layout) Placements() []Placement {
	pageOut := l.Page.Scale(PointsPerInch)
	imageOut := l.Desired.Div(l.Page).Mul(pageOut)
	centering := l.Offset().Div(l.Page).Mul(pageOut)

	ps := make([]Placement, 0, l.Grid.Count())
	for _, t := range l.Tiles() {
		idx := Vec{float64(t.Col), float64(t.Row)}
		ps = append(ps, Placement{
			Tile:      t,
			PageSize:  pageOut,
			Offset:    centering.Sub(idx.Mul(pageOut)),
			ImageSize: imageOut,
		})
	}
	return ps
}

// PageWriter emits pages of an output document. Implementations clip
// drawing to the page bounds.
type PageWriter interface {
	// AddPage starts a new page of the given size in points.
	AddPage(size Vec) error
	// DrawImage draws the encoded image raw with its top-left corner at at,
	// scaled to size.
	DrawImage(raw []byte, at, size Vec) error
}

// Emit writes one page per tile to w. Nothing is written if the spec is
// invalid or raw is not an image.
func Emit(w PageWriter, desired Vec, p PageSize, raw []byte) error {
	ps, err := Placements(desired, p)
	if err != nil {
		return err
	}
	// a header alone does not prove the pixel data is intact
	if _, err := Decode("poster", raw); err != nil {
		return err
	}

	klog.V(1).Infof("emitting %d pages for %.2fx%.2fin on %s", len(ps), desired.X, desired.Y, p)
	for _, pl := range ps {
		if err := w.AddPage(pl.PageSize); err != nil {
			return fmt.Errorf("add page %d,%d: %w", pl.Col, pl.Row, err)
		}
		klog.V(2).Infof("page %d,%d: image at %.2f,%.2f size %.2fx%.2f", pl.Col, pl.Row, pl.Offset.X, pl.Offset.Y, pl.ImageSize.X, pl.ImageSize.Y)
		if err := w.DrawImage(raw, pl.Offset, pl.ImageSize); err != nil {
			return fmt.Errorf("draw page %d,%d: %w", pl.Col, pl.Row, err)
		}
	}
	return nil
}
