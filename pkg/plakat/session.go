package plakat

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sync"

	"k8s.io/klog/v2"
)

// State is the lifecycle stage of a Session.
type State int

const (
	NoImage State = iota
	ImageLoaded
	Editing
)

func (s State) String() string {
	switch s {
	case NoImage:
		return "NoImage"
	case ImageLoaded:
		return "ImageLoaded"
	case Editing:
		return "Editing"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Snapshot is a consistent, read-only view of a Session.
type Snapshot struct {
	Spec       Spec
	Unit       Unit
	Source     *Source
	State      State
	Generation uint64
}

// Layout tiles the snapshot's spec.
func (s Snapshot) Layout() (Layout, error) {
	return SpecLayout(s.Spec)
}

// Session holds the poster being edited. It is the only writer of its spec;
// every mutation leaves the spec consistent with the aspect lock.
type Session struct {
	mu       sync.Mutex
	spec     Spec
	unit     Unit
	src      *Source
	state    State
	gen      uint64
	box      *mailbox
	onChange []func(Snapshot)
}

// NewSession returns a session with the default poster settings.
func NewSession() *Session {
	return &Session{
		spec: Spec{
			Width:  8.26,
			Height: 15.0,
			Page:   Letter,
		},
		unit: Inches,
		box:  newMailbox(),
	}
}

// OnChange registers fn to be called after every change, outside the lock.
func (s *Session) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{Spec: s.spec, Unit: s.unit, Source: s.src, State: s.state, Generation: s.gen}
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Generation increases with every change to the session.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// update applies fn atomically and notifies listeners if it succeeds. A
// change that fails, or that leaves a spec which cannot be tiled (such as
// a derived side overflowing), is rolled back.
func (s *Session) update(fn func() error) error {
	s.mu.Lock()
	spec, unit, src, state := s.spec, s.unit, s.src, s.state
	err := fn()
	if err == nil {
		_, err = SpecLayout(s.spec)
	}
	if err != nil {
		s.spec, s.unit, s.src, s.state = spec, unit, src, state
		s.mu.Unlock()
		return err
	}
	s.gen++
	snap := s.snapshotLocked()
	hooks := append([]func(Snapshot){}, s.onChange...)
	s.mu.Unlock()

	for _, h := range hooks {
		h(snap)
	}
	return nil
}

// edited moves a session with an image into Editing.
func (s *Session) edited() {
	if s.src != nil {
		s.state = Editing
	}
}

// relock recomputes the height from the width when the aspect lock applies.
func (s *Session) relock() {
	if s.spec.KeepAspect && s.src != nil {
		s.spec.Height = s.spec.Width * s.src.Aspect()
	}
}

// ApplyWidth sets the poster width. With the aspect lock on and an image
// loaded, the height follows.
func (s *Session) ApplyWidth(d Dimension) error {
	return s.update(func() error {
		v := d.Inches()
		if !positive(v) {
			return fmt.Errorf("%w: width %v", ErrInvalidSpec, d)
		}
		s.spec.Width = v
		s.relock()
		s.edited()
		return nil
	})
}

// ApplyHeight sets the poster height. With the aspect lock on and an image
// loaded, the width follows.
func (s *Session) ApplyHeight(d Dimension) error {
	return s.update(func() error {
		v := d.Inches()
		if !positive(v) {
			return fmt.Errorf("%w: height %v", ErrInvalidSpec, d)
		}
		s.spec.Height = v
		if s.spec.KeepAspect && s.src != nil {
			s.spec.Width = v / s.src.Aspect()
		}
		s.edited()
		return nil
	})
}

// SetAspectLock turns the aspect lock on or off.
func (s *Session) SetAspectLock(on bool) error {
	return s.update(func() error {
		s.spec.KeepAspect = on
		s.relock()
		s.edited()
		return nil
	})
}

// SetUnit changes the unit lengths are reported and entered in.
func (s *Session) SetUnit(u Unit) error {
	return s.update(func() error {
		if u != Inches && u != Centimeters {
			return fmt.Errorf("%w: unit %v", ErrInvalidSpec, u)
		}
		s.unit = u
		s.edited()
		return nil
	})
}

// SetPage changes the page size.
func (s *Session) SetPage(p PageSize) error {
	return s.update(func() error {
		if !p.Valid() {
			return fmt.Errorf("%w: page %v", ErrInvalidSpec, p)
		}
		s.spec.Page = p
		s.edited()
		return nil
	})
}

// Width is the poster width in the session unit.
func (s *Session) Width() Dimension {
	snap := s.Snapshot()
	return InUnit(snap.Spec.Width, snap.Unit)
}

// Height is the poster height in the session unit.
func (s *Session) Height() Dimension {
	snap := s.Snapshot()
	return InUnit(snap.Spec.Height, snap.Unit)
}

// Load replaces the image.
func (s *Session) Load(src *Source) error {
	if src == nil || src.Width <= 0 || src.Height <= 0 {
		return fmt.Errorf("%w: empty source", ErrDecode)
	}
	return s.update(func() error {
		s.src = src
		s.state = ImageLoaded
		s.relock()
		return nil
	})
}

// LoadFile reads and decodes path in the background. The result is picked
// up by Drain or Await. If several loads finish before either runs, only
// the newest is kept.
func (s *Session) LoadFile(path string) {
	klog.V(1).Infof("loading %s", path)
	go func() {
		src, err := ReadSource(path)
		s.box.post(loadResult{path: path, src: src, err: err})
	}()
}

// Drain applies a finished load, if any, without blocking.
func (s *Session) Drain() (bool, error) {
	r, ok := s.box.tryReceive()
	if !ok {
		return false, nil
	}
	return true, s.apply(r)
}

// Await blocks until a load finishes and applies it.
func (s *Session) Await(ctx context.Context) error {
	r, err := s.box.receive(ctx)
	if err != nil {
		return err
	}
	return s.apply(r)
}

// apply commits a successful load. A failed load leaves the session as it was.
func (s *Session) apply(r loadResult) error {
	if r.err != nil {
		klog.Warningf("load %s failed: %v", r.path, r.err)
		return r.err
	}
	klog.Infof("loaded %s: %dx%d %s", r.path, r.src.Width, r.src.Height, r.src.Format)
	return s.Load(r.src)
}

// Layout tiles the current spec.
func (s *Session) Layout() (Layout, error) {
	return s.Snapshot().Layout()
}

// Preview renders the current session into an image of the given size.
func (s *Session) Preview(size image.Point) (*image.RGBA, error) {
	snap := s.Snapshot()
	l, err := snap.Layout()
	if err != nil {
		return nil, err
	}
	return RenderPreview(snap.Source, l, size, DefaultMargin)
}

// Save writes the poster PDF to w. The session is read once up front, so
// loads finishing during the save do not affect it.
func (s *Session) Save(w io.Writer, info DocInfo) error {
	snap := s.Snapshot()
	if snap.Source == nil {
		return ErrInvalidState
	}
	if info.Title == "" {
		info.Title = snap.Source.Name
	}
	return WritePDF(w, snap.Spec.Desired(), snap.Spec.Page, snap.Source.Raw, info)
}

// SaveFile writes the poster PDF to path. Nothing is written unless the
// whole document was produced.
func (s *Session) SaveFile(path string, info DocInfo) error {
	var buf bytes.Buffer
	if err := s.Save(&buf, info); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: mkdir: %v", ErrIO, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("%w: write: %v", ErrIO, err)
	}
	klog.Infof("wrote %s", path)
	return nil
}
