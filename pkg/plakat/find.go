package plakat

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"
	"k8s.io/klog/v2"
)

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// IsImagePath reports whether path has a supported image extension.
func IsImagePath(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

// Find returns root if it is a file, or the images beneath it if it is a
// directory. Hidden files and directories are skipped.
func Find(root string) ([]string, error) {
	st, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: stat: %v", ErrIO, err)
	}
	if !st.IsDir() {
		return []string{root}, nil
	}

	found := []string{}
	err = godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if path != root && strings.HasPrefix(filepath.Base(path), ".") {
				return godirwalk.SkipThis
			}
			if de.IsDir() || !IsImagePath(path) {
				return nil
			}
			klog.V(1).Infof("found %s", path)
			found = append(found, path)
			return nil
		},
		Unsorted: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walk: %v", ErrIO, err)
	}

	sort.Strings(found)
	return found, nil
}
