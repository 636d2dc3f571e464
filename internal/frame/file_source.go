package frame

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// FileSource feeds frames from still images on disk, in place of a camera
// driver on development hosts. It yields each image once, in lexical order,
// then reports ErrNoFrame.
type FileSource struct {
	paths []string
	next  int
}

// NewFileSource creates a source over the given image files.
func NewFileSource(paths ...string) (*FileSource, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no input files")
	}
	return &FileSource{paths: paths}, nil
}

// NewDirSource creates a source over all supported images in a directory.
func NewDirSource(dir string) (*FileSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no images in %s", dir)
	}
	sort.Strings(paths)
	return &FileSource{paths: paths}, nil
}

// Acquire decodes the next image into a grayscale frame.
func (s *FileSource) Acquire() (*Frame, error) {
	if s.next >= len(s.paths) {
		return nil, ErrNoFrame
	}
	path := s.paths[s.next]
	s.next++
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return FromImage(img, time.Now()), nil
}

// Release is a no-op: file-backed frames are not pooled.
func (s *FileSource) Release(*Frame) {}
