package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gridexport/internal/exporter"
	"gridexport/pkg/contracts/domain"
)

// FileInfo describes a stored artifact
type FileInfo struct {
	Path    string        `json:"path"`
	Name    string        `json:"name"`
	Format  domain.Format `json:"format"`
	Size    int64         `json:"size"`
	ModTime time.Time     `json:"mod_time"`
}

// Discovery lists artifacts in an output directory
type Discovery struct {
	dir    string
	prefix string
}

// NewDiscovery creates a discovery for export files named with prefix.
// An empty prefix means the default one.
func NewDiscovery(dir, prefix string) *Discovery {
	return &Discovery{dir: dir, prefix: prefix}
}

// List returns every file named like an export artifact, oldest first.
// A missing directory yields no files.
func (d *Discovery) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory %s: %w", d.dir, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		format, ok := exporter.ParseFileName(d.prefix, entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(d.dir, entry.Name()),
			Name:    entry.Name(),
			Format:  format,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].ModTime.Before(files[j].ModTime)
	})
	return files, nil
}

// ListFormat returns the artifacts of one format, oldest first
func (d *Discovery) ListFormat(format domain.Format) ([]FileInfo, error) {
	all, err := d.List()
	if err != nil {
		return nil, err
	}
	var out []FileInfo
	for _, f := range all {
		if f.Format == format {
			out = append(out, f)
		}
	}
	return out, nil
}

// Latest returns the most recently modified artifact
func (d *Discovery) Latest() (*FileInfo, error) {
	files, err := d.List()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no artifacts in %s", d.dir)
	}
	return &files[len(files)-1], nil
}

// FormatOf returns the export format of a file name by its extension
func FormatOf(name string) (domain.Format, bool) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	for _, f := range domain.Formats {
		if f.Extension() == ext {
			return f, true
		}
	}
	return "", false
}
