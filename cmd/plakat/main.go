package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"k8s.io/klog/v2"

	"github.com/tstromberg/plakat/pkg/manage"
	"github.com/tstromberg/plakat/pkg/plakat"
)

var (
	inPath      = flag.String("in", "", "Image, or directory of images, to turn into posters")
	outDir      = flag.String("out", "", "Location of output directory")
	width       = flag.Float64("width", 0, "desired poster width (0 derives it from the image)")
	height      = flag.Float64("height", 0, "desired poster height (0 derives it from the image)")
	unitFlag    = flag.String("unit", "in", "unit for --width and --height: in or cm")
	pageFlag    = flag.String("page", "Letter", "page size: Letter, A4, Legal or Tabloid")
	keepAspect  = flag.Bool("keep-aspect", false, "keep the image aspect ratio; --width wins over --height")
	preview     = flag.Bool("preview", false, "also write a preview PNG of the page layout")
	previewSize = flag.String("preview-size", "1200x900", "preview size in pixels, WIDTHxHEIGHT")
	keepSource  = flag.Bool("keep-source", false, "copy the source image next to the poster")
	title       = flag.String("title", "", "PDF title (defaults to image metadata or file name)")
	listen      = flag.Bool("listen", false, "serve an editing UI via HTTP")
	addr        = flag.String("addr", "localhost:12800", "host:port to bind to in listen mode")
	watchFlag   = flag.Bool("watch", false, "watch --in for changes and rebuild")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if *inPath == "" {
		klog.Exitf("--in is a required flag")
	}

	c, err := config()
	if err != nil {
		klog.Exitf("%v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if *listen {
		if err := serve(ctx, c, *addr); err != nil {
			klog.Exitf("listen failed: %v", err)
		}
		return
	}

	if *outDir == "" {
		klog.Exitf("--out is a required flag")
	}

	build(ctx, c)

	if *watchFlag {
		if err := watch(ctx, c.InPath, func(string) { build(ctx, c) }); err != nil {
			klog.Exitf("watch failed: %v", err)
		}
	}
}

func config() (*plakat.Config, error) {
	u, err := plakat.ParseUnit(*unitFlag)
	if err != nil {
		return nil, err
	}
	p, err := plakat.ParsePageSize(*pageFlag)
	if err != nil {
		return nil, err
	}
	var size image.Point
	if _, err := fmt.Sscanf(*previewSize, "%dx%d", &size.X, &size.Y); err != nil {
		return nil, fmt.Errorf("--preview-size %q: %w", *previewSize, err)
	}
	if *width == 0 && *height == 0 {
		return nil, fmt.Errorf("--width or --height is required")
	}

	return &plakat.Config{
		InPath:      *inPath,
		OutDir:      *outDir,
		Title:       *title,
		Width:       *width,
		Height:      *height,
		Unit:        u,
		Page:        p,
		KeepAspect:  *keepAspect,
		Preview:     *preview,
		PreviewSize: size,
		KeepSource:  *keepSource,
	}, nil
}

func build(ctx context.Context, c *plakat.Config) {
	outs, err := plakat.Build(ctx, c)
	for _, o := range outs {
		klog.Infof("%s -> %s (%d pages)", o.In, o.PDF, o.Pages)
	}
	if err != nil {
		klog.Errorf("build failed: %v", err)
	}
}

// serve runs the editing UI for a single image until ctx is cancelled.
func serve(ctx context.Context, c *plakat.Config, addr string) error {
	st, err := os.Stat(c.InPath)
	if err != nil {
		return err
	}
	if st.IsDir() {
		return fmt.Errorf("--listen needs a single image, %s is a directory", c.InPath)
	}

	s := plakat.NewSession()
	s.OnChange(func(snap plakat.Snapshot) {
		klog.V(1).Infof("session %d: %s %.2fx%.2fin on %s", snap.Generation, snap.State, snap.Spec.Width, snap.Spec.Height, snap.Spec.Page)
	})
	s.LoadFile(c.InPath)
	if err := s.Await(ctx); err != nil {
		return fmt.Errorf("load: %w", err)
	}
	if err := plakat.Configure(s, c); err != nil {
		return fmt.Errorf("configure: %w", err)
	}

	info := plakat.ReadInfo(c.InPath)
	if c.Title != "" {
		info.Title = c.Title
	}

	hs := &http.Server{
		Addr:              addr,
		Handler:           manage.New(s, info),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	if *watchFlag {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := watch(ctx, c.InPath, func(path string) {
				s.LoadFile(path)
				if err := s.Await(ctx); err != nil {
					klog.Errorf("reload failed, keeping previous image: %v", err)
				}
			})
			if err != nil {
				klog.Errorf("watch failed: %v", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			klog.Errorf("shutdown: %v", err)
		}
	}()

	klog.Infof("Listening on %s...", addr)
	err = hs.ListenAndServe()
	wg.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// watch calls rebuild whenever an image at or under path changes.
func watch(ctx context.Context, path string, rebuild func(string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()

	// Watch the parent of a file: editors often replace files by renaming.
	dir := path
	if st, err := os.Stat(path); err == nil && !st.IsDir() {
		dir = filepath.Dir(path)
	}
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("add %s: %w", dir, err)
	}
	klog.Infof("watching %s ...", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			klog.V(1).Infof("event: %v", event)
			if !plakat.IsImagePath(event.Name) {
				continue
			}
			if dir != path && filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				target := event.Name
				if dir != path {
					target = path
				}
				rebuild(target)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			klog.Errorf("watch error: %v", err)
		}
	}
}
