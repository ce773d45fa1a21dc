// Package manage provides HTTP handlers for editing a poster session.
package manage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"k8s.io/klog/v2"

	"github.com/tstromberg/plakat/pkg/plakat"
)

// maxUpload caps image uploads.
const maxUpload = 64 << 20

// Server serves one poster session.
type Server struct {
	s      *plakat.Session
	info   plakat.DocInfo
	router chi.Router
}

// New creates a new server.
func New(s *plakat.Session, info plakat.DocInfo) *Server {
	server := &Server{
		s:    s,
		info: info,
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))

	r.Get("/", server.IndexHandler())
	r.Get("/healthz", server.HealthHandler())
	r.Get("/preview.png", server.PreviewHandler())
	r.Get("/poster.pdf", server.SaveHandler())
	r.Route("/api", func(r chi.Router) {
		r.Get("/layout", server.LayoutHandler())
		r.Post("/params", server.ParamsHandler())
		r.Post("/image", server.UploadHandler())
	})
	server.router = r
	return server
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			klog.Errorf("encode response: %v", err)
		}
	}
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps session errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, plakat.ErrInvalidSpec), errors.Is(err, plakat.ErrDecode):
		return http.StatusBadRequest
	case errors.Is(err, plakat.ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// previewSize reads w and h query parameters.
func previewSize(r *http.Request) (image.Point, error) {
	size := plakat.DefaultPreviewSize
	for name, dst := range map[string]*int{"w": &size.X, "h": &size.Y} {
		v := r.URL.Query().Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 8192 {
			return size, fmt.Errorf("%w: %s=%q", plakat.ErrInvalidSpec, name, v)
		}
		*dst = n
	}
	return size, nil
}

// HealthHandler reports liveness.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// PreviewHandler renders the tiled poster as PNG.
func (s *Server) PreviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		size, err := previewSize(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
		img, err := s.s.Preview(size)
		if err != nil {
			respondError(w, statusFor(err), err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		if err := imgio.PNGEncoder()(w, img); err != nil {
			klog.Errorf("encode preview: %v", err)
		}
	}
}

// SaveHandler returns the poster PDF.
func (s *Server) SaveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		// compose fully before sending so errors still get a status
		var buf bytes.Buffer
		if err := s.s.Save(&buf, s.info); err != nil {
			klog.Warningf("save: %v", err)
			respondError(w, statusFor(err), err)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="poster.pdf"`)
		if _, err := buf.WriteTo(w); err != nil {
			klog.Errorf("write pdf: %v", err)
		}
	}
}

// tileJSON is the wire form of one tile.
type tileJSON struct {
	Col   int         `json:"col"`
	Row   int         `json:"row"`
	Page  plakat.Rect `json:"page"`
	Image plakat.Rect `json:"image"`
	UV    plakat.Rect `json:"uv"`
}

type layoutJSON struct {
	Generation uint64     `json:"generation"`
	State      string     `json:"state"`
	Unit       string     `json:"unit"`
	Page       string     `json:"page"`
	Width      float64    `json:"width"`
	Height     float64    `json:"height"`
	KeepAspect bool       `json:"keepAspect"`
	Image      *imageJSON `json:"image,omitempty"`
	Columns    int        `json:"columns"`
	Rows       int        `json:"rows"`
	Tiles      []tileJSON `json:"tiles"`
}

type imageJSON struct {
	Name   string `json:"name"`
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// LayoutHandler describes the current grid and tile geometry.
func (s *Server) LayoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		size, err := previewSize(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
		snap := s.s.Snapshot()
		l, err := snap.Layout()
		if err != nil {
			respondError(w, statusFor(err), err)
			return
		}
		tiles, err := l.Display(plakat.Vec{X: float64(size.X), Y: float64(size.Y)}, plakat.DefaultMargin)
		if err != nil {
			respondError(w, statusFor(err), err)
			return
		}

		out := layoutJSON{
			Generation: snap.Generation,
			State:      snap.State.String(),
			Unit:       snap.Unit.String(),
			Page:       snap.Spec.Page.String(),
			Width:      plakat.InUnit(snap.Spec.Width, snap.Unit).Value,
			Height:     plakat.InUnit(snap.Spec.Height, snap.Unit).Value,
			KeepAspect: snap.Spec.KeepAspect,
			Columns:    l.Grid.Columns,
			Rows:       l.Grid.Rows,
		}
		if src := snap.Source; src != nil {
			out.Image = &imageJSON{Name: src.Name, Format: src.Format, Width: src.Width, Height: src.Height}
		}
		for _, t := range tiles {
			out.Tiles = append(out.Tiles, tileJSON{Col: t.Col, Row: t.Row, Page: t.Page, Image: t.Image, UV: t.UV})
		}
		respondJSON(w, http.StatusOK, out)
	}
}

// ParamsHandler applies form values: unit, page, keepAspect, width, height.
// Unit is applied first so width and height are read in the new unit.
func (s *Server) ParamsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
		if err := s.applyParams(r); err != nil {
			klog.V(1).Infof("params rejected: %v", err)
			respondError(w, statusFor(err), err)
			return
		}
		if r.Header.Get("Accept") == "application/json" {
			s.LayoutHandler()(w, r)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func (s *Server) applyParams(r *http.Request) error {
	if v := r.Form.Get("unit"); v != "" {
		u, err := plakat.ParseUnit(v)
		if err != nil {
			return fmt.Errorf("%w: %v", plakat.ErrInvalidSpec, err)
		}
		if err := s.s.SetUnit(u); err != nil {
			return err
		}
	}
	if v := r.Form.Get("page"); v != "" {
		p, err := plakat.ParsePageSize(v)
		if err != nil {
			return fmt.Errorf("%w: %v", plakat.ErrInvalidSpec, err)
		}
		if err := s.s.SetPage(p); err != nil {
			return err
		}
	}
	// The form always posts both lengths. One that still matches the
	// displayed value is skipped, or it would undo the aspect lock.
	shown := []plakat.Dimension{s.s.Width(), s.s.Height()}

	if r.Form.Has("keepAspect") {
		on, err := strconv.ParseBool(r.Form.Get("keepAspect"))
		if err != nil {
			return fmt.Errorf("%w: keepAspect: %v", plakat.ErrInvalidSpec, err)
		}
		if err := s.s.SetAspectLock(on); err != nil {
			return err
		}
	}

	for i, f := range []struct {
		name  string
		apply func(plakat.Dimension) error
	}{
		{"width", s.s.ApplyWidth},
		{"height", s.s.ApplyHeight},
	} {
		v := r.Form.Get(f.name)
		if v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", plakat.ErrInvalidSpec, f.name, err)
		}
		cur := shown[i]
		if unchanged(n, cur.Value) {
			continue
		}
		if err := f.apply(plakat.Dimension{Value: n, Unit: cur.Unit}); err != nil {
			return err
		}
	}
	return nil
}

// unchanged reports whether v is cur as the index page displays it.
func unchanged(v, cur float64) bool {
	return math.Abs(v-cur) < 0.005
}

// UploadHandler replaces the session image with the multipart field "image".
func (s *Server) UploadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
		f, hdr, err := r.FormFile("image")
		if err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
		defer f.Close()

		raw, err := io.ReadAll(f)
		if err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
		src, err := plakat.Decode(hdr.Filename, raw)
		if err != nil {
			klog.Warningf("upload %s: %v", hdr.Filename, err)
			respondError(w, statusFor(err), err)
			return
		}
		if err := s.s.Load(src); err != nil {
			respondError(w, statusFor(err), err)
			return
		}
		klog.Infof("uploaded %s: %dx%d", src.Name, src.Width, src.Height)

		if r.Header.Get("Accept") == "application/json" {
			s.LayoutHandler()(w, r)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}
