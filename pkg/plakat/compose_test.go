package plakat

import (
	"bytes"
	"errors"
	"image/color"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// recorder is a PageWriter that remembers what it was asked to do.
type recorder struct {
	pages []Vec
	draws []Placement
	raw   [][]byte
}

func (r *recorder) AddPage(size Vec) error {
	r.pages = append(r.pages, size)
	return nil
}

func (r *recorder) DrawImage(raw []byte, at, size Vec) error {
	r.draws = append(r.draws, Placement{Offset: at, ImageSize: size})
	r.raw = append(r.raw, raw)
	return nil
}

func TestPlacements(t *testing.T) {
	got, err := Placements(Vec{20, 10}, Letter)
	if err != nil {
		t.Fatalf("Placements: %v", err)
	}

	page := Vec{612, 792}
	img := Vec{1440, 720}
	want := []Placement{
		{Tile: Tile{0, 0}, PageSize: page, Offset: Vec{198, 36}, ImageSize: img},
		{Tile: Tile{1, 0}, PageSize: page, Offset: Vec{-414, 36}, ImageSize: img},
		{Tile: Tile{2, 0}, PageSize: page, Offset: Vec{-1026, 36}, ImageSize: img},
	}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("Placements mismatch (-want +got):\n%s", diff)
	}
}

func TestPlacementsFormula(t *testing.T) {
	for _, p := range PageSizes() {
		for _, d := range []Vec{{20, 10}, {17, 22}, {33.3, 47.1}, {5, 7}} {
			ps, err := Placements(d, p)
			if err != nil {
				t.Fatalf("Placements: %v", err)
			}
			g, err := TileGrid(d, p.Size())
			if err != nil {
				t.Fatalf("TileGrid: %v", err)
			}
			if len(ps) != g.Count() {
				t.Fatalf("%s %v: %d placements, want %d", p, d, len(ps), g.Count())
			}

			pageOut := p.Size().Scale(PointsPerInch)
			imageOut := d.Div(p.Size()).Mul(pageOut)
			extent := g.Vec().Mul(pageOut)
			for _, pl := range ps {
				want := Vec{
					(extent.X-imageOut.X)/2 - float64(pl.Col)*pageOut.X,
					(extent.Y-imageOut.Y)/2 - float64(pl.Row)*pageOut.Y,
				}
				if math.Abs(pl.Offset.X-want.X) > 1e-6 || math.Abs(pl.Offset.Y-want.Y) > 1e-6 {
					t.Errorf("%s %v tile %+v: offset %v, want %v", p, d, pl.Tile, pl.Offset, want)
				}
			}
		}
	}
}

func TestEmit(t *testing.T) {
	raw := pngBytes(t, 40, 20, color.NRGBA{R: 200, A: 255})
	r := &recorder{}
	if err := Emit(r, Vec{20, 10}, Letter, raw); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	if len(r.pages) != 3 {
		t.Fatalf("Emit produced %d pages, want 3", len(r.pages))
	}
	if len(r.draws) != 3 {
		t.Fatalf("Emit produced %d draws, want 3", len(r.draws))
	}
	for i, b := range r.raw {
		if !bytes.Equal(b, raw) {
			t.Errorf("draw %d used different image bytes", i)
		}
		if r.pages[i] != (Vec{612, 792}) {
			t.Errorf("page %d size = %v, want 612x792", i, r.pages[i])
		}
	}
}

// truncatedJPEG keeps the header of a valid JPEG but cuts its scan data.
func truncatedJPEG(t *testing.T) []byte {
	t.Helper()
	full := jpegBytes(t, 400, 200, color.NRGBA{R: 90, G: 160, B: 30, A: 255})
	cut := full[:len(full)/3]
	if _, _, err := checkDecodable(cut); err != nil {
		t.Fatalf("header of the cut JPEG is unreadable: %v", err)
	}
	return cut
}

func TestEmitFailsBeforeAnyPage(t *testing.T) {
	good := pngBytes(t, 4, 4, color.NRGBA{A: 255})
	truncated := truncatedJPEG(t)
	tests := []struct {
		name    string
		desired Vec
		page    PageSize
		raw     []byte
		want    error
	}{
		{"zero width", Vec{0, 10}, Letter, good, ErrInvalidSpec},
		{"NaN width", Vec{math.NaN(), 10}, Letter, good, ErrInvalidSpec},
		{"negative height", Vec{10, -3}, A4, good, ErrInvalidSpec},
		{"unknown page", Vec{10, 10}, PageSize(9), good, ErrInvalidSpec},
		{"not an image", Vec{10, 10}, Letter, []byte("hello"), ErrDecode},
		{"truncated", Vec{10, 10}, Letter, good[:8], ErrDecode},
		{"empty", Vec{10, 10}, Letter, nil, ErrDecode},
		{"truncated jpeg", Vec{20, 10}, Letter, truncated, ErrDecode},
		{"too many pages", Vec{1e9, 1e9}, Letter, good, ErrInvalidSpec},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{}
			err := Emit(r, tt.desired, tt.page, tt.raw)
			if !errors.Is(err, tt.want) {
				t.Errorf("Emit error = %v, want %v", err, tt.want)
			}
			if len(r.pages) != 0 || len(r.draws) != 0 {
				t.Errorf("Emit wrote %d pages before failing", len(r.pages))
			}
		})
	}
}

func TestWritePDF(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	tests := []struct {
		name string
		raw  []byte
	}{
		{"png", pngBytes(t, 64, 32, red)},
		{"jpeg", jpegBytes(t, 64, 32, red)},
		{"gif", gifBytes(t, 64, 32, red)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WritePDF(&buf, Vec{20, 10}, Letter, tt.raw, DocInfo{Title: "test"}); err != nil {
				t.Fatalf("WritePDF: %v", err)
			}
			if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
				t.Errorf("output does not start with a PDF header: %q", buf.Bytes()[:min(16, buf.Len())])
			}
		})
	}
}

func TestWritePDFInvalid(t *testing.T) {
	tests := []struct {
		name    string
		desired Vec
		raw     []byte
		want    error
	}{
		{"zero width", Vec{0, 10}, pngBytes(t, 4, 4, color.NRGBA{A: 255}), ErrInvalidSpec},
		{"truncated jpeg", Vec{20, 10}, truncatedJPEG(t), ErrDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := WritePDF(&buf, tt.desired, Letter, tt.raw, DocInfo{})
			if !errors.Is(err, tt.want) {
				t.Errorf("WritePDF error = %v, want %v", err, tt.want)
			}
			if buf.Len() != 0 {
				t.Errorf("WritePDF wrote %d bytes on failure", buf.Len())
			}
		})
	}
}

func TestPlacementsTooLarge(t *testing.T) {
	if _, err := Placements(Vec{1e9, 1e9}, Letter); !errors.Is(err, ErrInvalidSpec) {
		t.Errorf("Placements error = %v, want ErrInvalidSpec", err)
	}
}
