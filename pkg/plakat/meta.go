package plakat

import (
	"path/filepath"
	"strings"

	"github.com/barasher/go-exiftool"
	"k8s.io/klog/v2"
)

// ReadInfo derives PDF document information from the image's embedded
// metadata. Without exiftool installed, only the file name is used.
func ReadInfo(path string) DocInfo {
	base := filepath.Base(path)
	info := DocInfo{Title: strings.TrimSuffix(base, filepath.Ext(base))}

	et, err := exiftool.NewExiftool()
	if err != nil {
		klog.Warningf("exiftool unavailable, skipping metadata: %v", err)
		return info
	}
	defer et.Close()

	fis := et.ExtractMetadata(path)
	if len(fis) == 0 || fis[0].Err != nil {
		klog.V(1).Infof("no metadata for %s", path)
		return info
	}
	fi := fis[0]

	for k, v := range fi.Fields {
		klog.V(2).Infof("%q=%v", k, v)
	}

	if s := firstString(fi, "Title", "Headline", "ObjectName"); s != "" {
		info.Title = s
	}
	info.Author = firstString(fi, "Artist", "Creator", "By-line")
	info.Subject = firstString(fi, "ImageDescription", "Description", "Caption-Abstract")
	return info
}

func firstString(fi exiftool.FileMetadata, keys ...string) string {
	for _, k := range keys {
		s, err := fi.GetString(k)
		if err == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
