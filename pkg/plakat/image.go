package plakat

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"k8s.io/klog/v2"
)

// Source is a loaded image. Raw keeps the encoded bytes, which is what gets
// embedded into the PDF.
type Source struct {
	Name   string
	Format string
	Width  int
	Height int
	Raw    []byte
	Image  image.Image
}

// Aspect is height divided by width.
func (s *Source) Aspect() float64 {
	return float64(s.Height) / float64(s.Width)
}

// Decode decodes raw, detecting the format from its contents.
func Decode(name string, raw []byte) (*Source, error) {
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, name, err)
	}

	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: %s: empty image %+v", ErrDecode, name, b)
	}

	klog.V(1).Infof("decoded %s: %s %dx%d (%d bytes)", name, format, b.Dx(), b.Dy(), len(raw))
	return &Source{
		Name:   name,
		Format: format,
		Width:  b.Dx(),
		Height: b.Dy(),
		Raw:    raw,
		Image:  img,
	}, nil
}

// ReadSource reads and decodes the image at path.
func ReadSource(path string) (*Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", ErrIO, err)
	}
	return Decode(filepath.Base(path), raw)
}

// checkDecodable verifies that raw is an image without decoding the pixels.
func checkDecodable(raw []byte) (image.Config, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return cfg, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return cfg, "", fmt.Errorf("%w: empty %s image", ErrDecode, format)
	}
	return cfg, format, nil
}
