package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"unikrew/internal/domain"
	"unikrew/internal/ocr"
	"unikrew/internal/pipeline"
	"unikrew/internal/port"
)

const s3Scheme = "s3://"

// ImageSource resolves an image path into bytes. Paths of the form
// s3://bucket/key are read from object storage; anything else is a local
// file, confined under root when root is set.
type ImageSource struct {
	storage port.ObjectStorage
	root    string
}

// NewImageSource creates an ImageSource. storage may be nil, in which case
// s3:// paths are rejected.
func NewImageSource(storage port.ObjectStorage, root string) *ImageSource {
	return &ImageSource{storage: storage, root: root}
}

// Load reads the image at path and checks that it is a supported format.
func (s *ImageSource) Load(ctx context.Context, path string) (*pipeline.Image, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: empty image path", domain.ErrImageNotFound)
	}

	var data []byte
	var err error
	if strings.HasPrefix(path, s3Scheme) {
		data, err = s.loadObject(ctx, path)
	} else {
		data, err = s.loadFile(path)
	}
	if err != nil {
		return nil, err
	}

	contentType := ocr.DetectContentType(data)
	if _, ok := domain.AllowedContentTypes[contentType]; !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, contentType)
	}
	return &pipeline.Image{Bytes: data, ContentType: contentType}, nil
}

func (s *ImageSource) loadObject(ctx context.Context, path string) ([]byte, error) {
	if s.storage == nil {
		return nil, fmt.Errorf("imageSource.Load: object storage not configured for %s", path)
	}
	bucket, key, ok := strings.Cut(strings.TrimPrefix(path, s3Scheme), "/")
	if !ok || bucket == "" || key == "" {
		return nil, fmt.Errorf("%w: malformed object path %q", domain.ErrImageNotFound, path)
	}
	data, err := s.storage.Download(ctx, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("imageSource.Load: %w", err)
	}
	return data, nil
}

func (s *ImageSource) loadFile(path string) ([]byte, error) {
	if s.root == "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, s.fileError(path, err)
		}
		return data, nil
	}

	rootDir, rel, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	// os.Root refuses any component, symlinks included, that leaves rootDir.
	root, err := os.OpenRoot(rootDir)
	if err != nil {
		return nil, fmt.Errorf("imageSource.Load: opening image root: %w", err)
	}
	defer func() { _ = root.Close() }()

	f, err := root.Open(rel)
	if err != nil {
		return nil, s.fileError(path, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("imageSource.Load: %w", err)
	}
	return data, nil
}

func (s *ImageSource) fileError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", domain.ErrImageNotFound, path)
	}
	if s.root != "" && !errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %s", domain.ErrForbiddenPath, path)
	}
	return fmt.Errorf("imageSource.Load: %w", err)
}

// resolve splits path into the absolute root and a root-relative name.
// Relative paths are taken relative to root; the lexical result must stay
// inside root before symlinks are considered.
func (s *ImageSource) resolve(path string) (string, string, error) {
	root, err := filepath.Abs(s.root)
	if err != nil {
		return "", "", fmt.Errorf("imageSource.resolve: %w", err)
	}
	candidate := path
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(root, candidate)
	}
	candidate = filepath.Clean(candidate)

	rel, err := filepath.Rel(root, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", fmt.Errorf("%w: %s", domain.ErrForbiddenPath, path)
	}
	return root, rel, nil
}
