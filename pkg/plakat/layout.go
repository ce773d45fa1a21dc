package plakat

import (
	"fmt"
	"math"
)

// DefaultMargin is the gap between preview pages as a fraction of the page size.
const DefaultMargin = 0.05

// ceilTolerance is the relative distance from an integer below which a
// quotient is treated as that integer.
const ceilTolerance = 1e-9

// Vec is a 2D vector. Units depend on context: inches, points or pixels.
type Vec struct {
	X, Y float64
}

func (v Vec) Add(o Vec) Vec       { return Vec{v.X + o.X, v.Y + o.Y} }
func (v Vec) Sub(o Vec) Vec       { return Vec{v.X - o.X, v.Y - o.Y} }
func (v Vec) Mul(o Vec) Vec       { return Vec{v.X * o.X, v.Y * o.Y} }
func (v Vec) Div(o Vec) Vec       { return Vec{v.X / o.X, v.Y / o.Y} }
func (v Vec) Scale(f float64) Vec { return Vec{v.X * f, v.Y * f} }

// Clamp limits each component to [lo, hi].
func (v Vec) Clamp(lo, hi float64) Vec {
	return Vec{math.Min(math.Max(v.X, lo), hi), math.Min(math.Max(v.Y, lo), hi)}
}

// Rect is an axis-aligned rectangle given by two corners.
type Rect struct {
	Min, Max Vec
}

// Size returns the extent of r.
func (r Rect) Size() Vec {
	return r.Max.Sub(r.Min)
}

// Grid is the number of pages across and down.
type Grid struct {
	Columns int
	Rows    int
}

// Count is the total number of pages.
func (g Grid) Count() int {
	return g.Columns * g.Rows
}

// Vec returns the grid as a vector for component-wise math.
func (g Grid) Vec() Vec {
	return Vec{float64(g.Columns), float64(g.Rows)}
}

// MaxPages caps the pages a poster may span, per axis and in total.
const MaxPages = 10000

// pageCount is ceil(desired/page), treating near-integer quotients as exact.
func pageCount(desired, page float64) (int, error) {
	q := desired / page
	if q > MaxPages {
		return 0, fmt.Errorf("%w: %v / %v needs more than %d pages", ErrInvalidSpec, desired, page, MaxPages)
	}
	r := math.Round(q)
	if math.Abs(q-r) <= ceilTolerance*math.Max(1, math.Abs(q)) {
		q = r
	}
	return max(int(math.Ceil(q)), 1), nil
}

// TileGrid computes how many pages of size page cover desired.
func TileGrid(desired, page Vec) (Grid, error) {
	if err := checkSize("desired", desired); err != nil {
		return Grid{}, err
	}
	if err := checkSize("page", page); err != nil {
		return Grid{}, err
	}
	cols, err := pageCount(desired.X, page.X)
	if err != nil {
		return Grid{}, err
	}
	rows, err := pageCount(desired.Y, page.Y)
	if err != nil {
		return Grid{}, err
	}
	g := Grid{Columns: cols, Rows: rows}
	if g.Count() > MaxPages {
		return Grid{}, fmt.Errorf("%w: %dx%d grid exceeds %d pages", ErrInvalidSpec, cols, rows, MaxPages)
	}
	return g, nil
}

// Layout is the tiling of one poster. It is a value; recompute it whenever
// the spec changes.
type Layout struct {
	Grid    Grid
	Page    Vec
	Desired Vec
}

// NewLayout tiles a poster of size desired (inches) onto pages of size p.
func NewLayout(desired Vec, p PageSize) (Layout, error) {
	if !p.Valid() {
		return Layout{}, fmt.Errorf("%w: page %v", ErrInvalidSpec, p)
	}
	g, err := TileGrid(desired, p.Size())
	if err != nil {
		return Layout{}, err
	}
	return Layout{Grid: g, Page: p.Size(), Desired: desired}, nil
}

// SpecLayout is NewLayout for a Spec.
func SpecLayout(s Spec) (Layout, error) {
	if err := s.Validate(); err != nil {
		return Layout{}, err
	}
	return NewLayout(s.Desired(), s.Page)
}

// Canvas is the physical size of the whole page grid.
func (l Layout) Canvas() Vec {
	return l.Grid.Vec().Mul(l.Page)
}

// Offset is the margin between the canvas edge and the poster on each side.
// The poster is centered, so the surplus from rounding up is split evenly.
func (l Layout) Offset() Vec {
	return l.Canvas().Sub(l.Desired).Scale(0.5)
}

func (l Layout) contains(col, row int) bool {
	return col >= 0 && col < l.Grid.Columns && row >= 0 && row < l.Grid.Rows
}

// uvAt maps a grid corner to normalized image coordinates.
func (l Layout) uvAt(corner Vec) Vec {
	return l.Page.Mul(corner).Sub(l.Offset()).Div(l.Desired).Clamp(0, 1)
}

// UV returns the normalized image rectangle shown on page (col, row).
func (l Layout) UV(col, row int) (Rect, error) {
	if !l.contains(col, row) {
		return Rect{}, fmt.Errorf("%w: tile %d,%d outside %dx%d grid", ErrInvalidSpec, col, row, l.Grid.Columns, l.Grid.Rows)
	}
	return Rect{
		Min: l.uvAt(Vec{float64(col), float64(row)}),
		Max: l.uvAt(Vec{float64(col + 1), float64(row + 1)}),
	}, nil
}

// Tile identifies one page of the grid.
type Tile struct {
	Col int
	Row int
}

// Tiles enumerates the grid row by row.
func (l Layout) Tiles() []Tile {
	ts := make([]Tile, 0, l.Grid.Count())
	for y := 0; y < l.Grid.Rows; y++ {
		for x := 0; x < l.Grid.Columns; x++ {
			ts = append(ts, Tile{Col: x, Row: y})
		}
	}
	return ts
}

// DisplayTile is the on-screen geometry of one page.
type DisplayTile struct {
	Tile
	// Page is the full sheet, drawn opaque.
	Page Rect
	// Image is the part of the sheet covered by the poster.
	Image Rect
	// UV is the image region drawn into Image.
	UV Rect
}

// PageDisplaySize fits the grid into area, keeping the page aspect ratio.
func (l Layout) PageDisplaySize(area Vec, margin float64) (Vec, error) {
	if err := checkSize("display area", area); err != nil {
		return Vec{}, err
	}
	if margin < 0 || math.IsNaN(margin) || math.IsInf(margin, 0) {
		return Vec{}, fmt.Errorf("%w: margin %v", ErrInvalidSpec, margin)
	}
	g := l.Grid.Vec()
	h := area.Y / (g.Y*(1+margin) - margin)
	w := area.X / (g.X*(1+margin) - margin)
	aspect := l.Page.X / l.Page.Y
	if w >= h*aspect {
		w = h * aspect
	} else {
		h = w / aspect
	}
	return Vec{w, h}, nil
}

// Display lays out every page inside area with a gap of margin*page between pages.
func (l Layout) Display(area Vec, margin float64) ([]DisplayTile, error) {
	size, err := l.PageDisplaySize(area, margin)
	if err != nil {
		return nil, err
	}
	inset := l.Offset().Div(l.Page).Mul(size)
	step := size.Scale(1 + margin)

	out := make([]DisplayTile, 0, l.Grid.Count())
	for _, t := range l.Tiles() {
		origin := Vec{float64(t.Col) * step.X, float64(t.Row) * step.Y}
		page := Rect{Min: origin, Max: origin.Add(size)}
		img := page
		if t.Row == 0 {
			img.Min.Y += inset.Y
		}
		if t.Col == 0 {
			img.Min.X += inset.X
		}
		if t.Row == l.Grid.Rows-1 {
			img.Max.Y -= inset.Y
		}
		if t.Col == l.Grid.Columns-1 {
			img.Max.X -= inset.X
		}
		uv, err := l.UV(t.Col, t.Row)
		if err != nil {
			return nil, err
		}
		out = append(out, DisplayTile{Tile: t, Page: page, Image: img, UV: uv})
	}
	return out, nil
}
