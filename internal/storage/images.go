// Package storage keeps uploaded images on the local filesystem.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Namespaces group stored images by resource kind.
const (
	NamespaceAds   = "ads"
	NamespaceUsers = "users"
)

var (
	// ErrImageNotFound is returned by Load when the reference is empty or the file is gone.
	ErrImageNotFound = errors.New("image not found")
	// ErrInvalidName is returned for namespaces or filenames that would escape the root.
	ErrInvalidName = errors.New("invalid image name")
)

// ImageStore saves, loads and deletes images under root/<namespace>/<filename>.
type ImageStore struct {
	root string
}

// NewImageStore creates an ImageStore rooted at dir.
func NewImageStore(dir string) *ImageStore {
	return &ImageStore{root: dir}
}

// Root returns the base directory of the store.
func (s *ImageStore) Root() string {
	return s.root
}

// Init creates the root directory if it does not exist.
func (s *ImageStore) Init() error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("creating image root %s: %w", s.root, err)
	}
	return nil
}

// Save writes data under a freshly generated filename in namespace and
// returns only the filename. The extension of originalName is preserved.
func (s *ImageStore) Save(ctx context.Context, data []byte, namespace, originalName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir, err := s.dir(namespace)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating image directory: %w", err)
	}

	filename := uuid.NewString() + extension(originalName)
	path := filepath.Join(dir, filename)

	// O_EXCL guards against overwriting a file that is still referenced.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating image file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path) // Clean up partial file
		return "", fmt.Errorf("writing image file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("closing image file: %w", err)
	}

	log.Debug().Str("namespace", namespace).Str("filename", filename).Int("bytes", len(data)).Msg("Image saved")
	return filename, nil
}

// Load reads an image. It fails with ErrImageNotFound if filename is empty
// or no such file exists.
func (s *ImageStore) Load(namespace, filename string) ([]byte, error) {
	if filename == "" {
		return nil, fmt.Errorf("empty filename: %w", ErrImageNotFound)
	}
	path, err := s.path(namespace, filename)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s/%s: %w", namespace, filename, ErrImageNotFound)
		}
		return nil, fmt.Errorf("reading image file: %w", err)
	}
	return data, nil
}

// Delete removes an image. An empty filename or a missing file is a no-op.
func (s *ImageStore) Delete(namespace, filename string) error {
	if filename == "" {
		return nil
	}
	path, err := s.path(namespace, filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting image file: %w", err)
	}
	log.Debug().Str("namespace", namespace).Str("filename", filename).Msg("Image deleted")
	return nil
}

// StoredImage describes a file present in a namespace.
type StoredImage struct {
	Filename string
	ModTime  time.Time
	Size     int64
}

// List returns the files stored in namespace. A namespace that was never
// written to is empty.
func (s *ImageStore) List(namespace string) ([]StoredImage, error) {
	dir, err := s.dir(namespace)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []StoredImage{}, nil
		}
		return nil, fmt.Errorf("listing %s: %w", namespace, err)
	}

	images := make([]StoredImage, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		images = append(images, StoredImage{Filename: e.Name(), ModTime: info.ModTime(), Size: info.Size()})
	}
	return images, nil
}

func (s *ImageStore) dir(namespace string) (string, error) {
	if !safeName(namespace) {
		return "", fmt.Errorf("namespace %q: %w", namespace, ErrInvalidName)
	}
	return filepath.Join(s.root, namespace), nil
}

func (s *ImageStore) path(namespace, filename string) (string, error) {
	dir, err := s.dir(namespace)
	if err != nil {
		return "", err
	}
	if !safeName(filename) {
		return "", fmt.Errorf("filename %q: %w", filename, ErrInvalidName)
	}
	return filepath.Join(dir, filename), nil
}

// safeName rejects anything that is not a single plain path element.
func safeName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}

func extension(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return ""
	}
	ext := name[i:]
	if !safeName("x" + ext) {
		return ""
	}
	return ext
}
