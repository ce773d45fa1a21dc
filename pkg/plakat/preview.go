package plakat

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"path/filepath"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	"k8s.io/klog/v2"
)

var (
	// CanvasColor is the background behind the pages.
	CanvasColor = color.RGBA{R: 27, G: 27, B: 27, A: 255}
	// PageColor is the color of a sheet of paper.
	PageColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// RenderPreview draws the tiled poster into an image of the given size.
// Every page is drawn as a white sheet; the part of src each page shows is
// drawn on top. src may be nil, in which case only the sheets are drawn.
func RenderPreview(src *Source, l Layout, size image.Point, margin float64) (*image.RGBA, error) {
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("%w: preview size %v", ErrInvalidSpec, size)
	}
	tiles, err := l.Display(Vec{float64(size.X), float64(size.Y)}, margin)
	if err != nil {
		return nil, err
	}

	canvas := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{CanvasColor}, image.Point{}, draw.Src)

	for _, t := range tiles {
		draw.Draw(canvas, pixelRect(t.Page), &image.Uniform{PageColor}, image.Point{}, draw.Src)
		if src == nil {
			continue
		}

		dst := pixelRect(t.Image)
		crop := uvRect(src, t.UV)
		if dst.Empty() || crop.Empty() {
			klog.V(2).Infof("tile %d,%d has no visible image", t.Col, t.Row)
			continue
		}

		part := transform.Resize(transform.Crop(src.Image, crop), dst.Dx(), dst.Dy(), transform.Linear)
		draw.Draw(canvas, dst, part, image.Point{}, draw.Over)
	}
	return canvas, nil
}

// pixelRect rounds r to whole pixels.
func pixelRect(r Rect) image.Rectangle {
	return image.Rect(
		int(math.Round(r.Min.X)), int(math.Round(r.Min.Y)),
		int(math.Round(r.Max.X)), int(math.Round(r.Max.Y)),
	)
}

// uvRect maps a normalized rectangle onto the pixels of src.
func uvRect(src *Source, uv Rect) image.Rectangle {
	b := src.Image.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	return image.Rect(
		b.Min.X+int(math.Round(uv.Min.X*w)), b.Min.Y+int(math.Round(uv.Min.Y*h)),
		b.Min.X+int(math.Round(uv.Max.X*w)), b.Min.Y+int(math.Round(uv.Max.Y*h)),
	)
}

// SavePreview writes img as a PNG file.
func SavePreview(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: mkdir: %v", ErrIO, err)
	}
	if err := imgio.Save(path, img, imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("%w: save preview: %v", ErrIO, err)
	}
	return nil
}
