package plakat

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/signintech/gopdf"
	"k8s.io/klog/v2"
)

// DocInfo is the PDF document information.
type DocInfo struct {
	Title   string
	Author  string
	Subject string
}

// pdfWriter is a PageWriter backed by gopdf.
type pdfWriter struct {
	pdf     gopdf.GoPdf
	info    DocInfo
	started bool
	pages   int

	// embedded holds the bytes handed to gopdf for key. gopdf embeds
	// identical bytes only once.
	key      []byte
	embedded []byte
}

func (w *pdfWriter) AddPage(size Vec) error {
	if !w.started {
		w.pdf.Start(gopdf.Config{
			PageSize: gopdf.Rect{W: size.X, H: size.Y},
		})
		w.pdf.SetInfo(gopdf.PdfInfo{
			Title:        w.info.Title,
			Author:       w.info.Author,
			Subject:      w.info.Subject,
			Creator:      "plakat",
			Producer:     "plakat",
			CreationDate: time.Now(),
		})
		w.started = true
	}
	// AddPageWithOption cannot fail.
	w.pdf.AddPageWithOption(gopdf.PageOption{PageSize: &gopdf.Rect{W: size.X, H: size.Y}})
	w.pages++
	return nil
}

func (w *pdfWriter) DrawImage(raw []byte, at, size Vec) error {
	if !w.started {
		return fmt.Errorf("draw before first page")
	}

	data, err := w.embeddable(raw)
	if err != nil {
		return err
	}

	h, err := gopdf.ImageHolderByBytes(data)
	if err != nil {
		return fmt.Errorf("image holder: %w", err)
	}
	err = w.pdf.ImageByHolder(h, at.X, at.Y, &gopdf.Rect{W: size.X, H: size.Y})
	if err == nil || !bytes.Equal(data, raw) {
		return err
	}

	// gopdf rejects some JPEG/PNG variants (16-bit, interlaced); retry from pixels.
	klog.Warningf("unable to embed image as-is, re-encoding: %v", err)
	data, err = reencode(raw)
	if err != nil {
		return err
	}
	w.embedded = data
	if h, err = gopdf.ImageHolderByBytes(data); err != nil {
		return fmt.Errorf("image holder: %w", err)
	}
	return w.pdf.ImageByHolder(h, at.X, at.Y, &gopdf.Rect{W: size.X, H: size.Y})
}

// embeddable returns raw for JPEG and PNG, and a PNG re-encoding otherwise.
func (w *pdfWriter) embeddable(raw []byte) ([]byte, error) {
	if w.embedded != nil && bytes.Equal(w.key, raw) {
		return w.embedded, nil
	}

	_, format, err := checkDecodable(raw)
	if err != nil {
		return nil, err
	}

	data := raw
	if format != "jpeg" && format != "png" {
		klog.V(1).Infof("re-encoding %s image as png", format)
		if data, err = reencode(raw); err != nil {
			return nil, err
		}
	}

	w.key = raw
	w.embedded = data
	return data, nil
}

func reencode(raw []byte) ([]byte, error) {
	src, err := Decode("embedded", raw)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imgio.PNGEncoder()(&buf, src.Image); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// WritePDF writes the poster for desired (inches) on pages of size p to out.
func WritePDF(out io.Writer, desired Vec, p PageSize, raw []byte, info DocInfo) error {
	w := &pdfWriter{info: info}
	if err := Emit(w, desired, p, raw); err != nil {
		return err
	}

	n, err := w.pdf.WriteTo(out)
	if err != nil {
		return fmt.Errorf("%w: write pdf: %v", ErrIO, err)
	}
	klog.Infof("wrote %d page poster (%d bytes)", w.pages, n)
	return nil
}
