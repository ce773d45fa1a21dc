package manage

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"net/http"

	"k8s.io/klog/v2"

	"github.com/tstromberg/plakat/pkg/plakat"
)

//go:embed assets/index.tmpl
var indexTmpl string

var tmpl = template.Must(template.New("index").Parse(indexTmpl))

type pageOption struct {
	Name     string
	Label    string
	Selected bool
}

func renderIndex(title string, snap plakat.Snapshot) ([]byte, error) {
	l, err := snap.Layout()
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}

	pages := []pageOption{}
	for _, p := range plakat.PageSizes() {
		pages = append(pages, pageOption{Name: p.String(), Label: p.Label(snap.Unit), Selected: p == snap.Spec.Page})
	}

	data := struct {
		Title      string
		Source     *plakat.Source
		KeepAspect bool
		Width      float64
		Height     float64
		Unit       string
		Units      []string
		Pages      []pageOption
		Columns    int
		Rows       int
		Generation uint64
	}{
		Title:      title,
		Source:     snap.Source,
		KeepAspect: snap.Spec.KeepAspect,
		Width:      plakat.InUnit(snap.Spec.Width, snap.Unit).Value,
		Height:     plakat.InUnit(snap.Spec.Height, snap.Unit).Value,
		Unit:       snap.Unit.String(),
		Units:      []string{plakat.Inches.String(), plakat.Centimeters.String()},
		Pages:      pages,
		Columns:    l.Grid.Columns,
		Rows:       l.Grid.Rows,
		Generation: snap.Generation,
	}

	var tpl bytes.Buffer
	if err := tmpl.Execute(&tpl, data); err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	return tpl.Bytes(), nil
}

// IndexHandler renders the editing page.
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		title := s.info.Title
		if title == "" {
			title = "plakat"
		}
		bs, err := renderIndex(title, s.s.Snapshot())
		if err != nil {
			klog.Errorf("render index: %v", err)
			respondError(w, statusFor(err), err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, err := w.Write(bs); err != nil {
			klog.Errorf("write index: %v", err)
		}
	}
}
