package plakat

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/otiai10/copy"
	"k8s.io/klog/v2"
)

// Output lists the files written for one input image.
type Output struct {
	In      string
	PDF     string
	Preview string
	Source  string
	Pages   int
}

// Build turns every image under c.InPath into a poster in c.OutDir.
func Build(ctx context.Context, c *Config) ([]Output, error) {
	klog.Infof("build: %s -> %s", c.InPath, c.OutDir)

	ins, err := Find(c.InPath)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	if len(ins) == 0 {
		return nil, fmt.Errorf("%w: no images in %s", ErrIO, c.InPath)
	}

	outs := []Output{}
	for _, in := range ins {
		o, err := BuildOne(ctx, c, in)
		if err != nil {
			return outs, fmt.Errorf("%s: %w", in, err)
		}
		outs = append(outs, o)
	}
	return outs, nil
}

// BuildOne turns the image at in into a poster in c.OutDir.
func BuildOne(ctx context.Context, c *Config, in string) (Output, error) {
	o := Output{In: in}

	s := NewSession()
	s.LoadFile(in)
	if err := s.Await(ctx); err != nil {
		return o, fmt.Errorf("load: %w", err)
	}
	if err := Configure(s, c); err != nil {
		return o, fmt.Errorf("configure: %w", err)
	}

	l, err := s.Layout()
	if err != nil {
		return o, err
	}
	o.Pages = l.Grid.Count()
	w, h := s.Width(), s.Height()
	klog.Infof("%s: %s x %s on %s needs %dx%d pages", in, w, h, c.Page, l.Grid.Columns, l.Grid.Rows)

	info := ReadInfo(in)
	if c.Title != "" {
		info.Title = c.Title
	}

	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	o.PDF = filepath.Join(c.OutDir, base+".pdf")
	if err := s.SaveFile(o.PDF, info); err != nil {
		return o, fmt.Errorf("save: %w", err)
	}

	if c.Preview {
		size := c.PreviewSize
		if size.X <= 0 || size.Y <= 0 {
			size = DefaultPreviewSize
		}
		img, err := s.Preview(size)
		if err != nil {
			return o, fmt.Errorf("preview: %w", err)
		}
		o.Preview = filepath.Join(c.OutDir, base+"-preview.png")
		if err := SavePreview(o.Preview, img); err != nil {
			return o, err
		}
		klog.Infof("wrote %s", o.Preview)
	}

	if c.KeepSource {
		o.Source = filepath.Join(c.OutDir, filepath.Base(in))
		if filepath.Clean(o.Source) != filepath.Clean(in) {
			if err := copy.Copy(in, o.Source); err != nil {
				return o, fmt.Errorf("%w: copy: %v", ErrIO, err)
			}
		}
	}

	return o, nil
}
