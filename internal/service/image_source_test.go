package service_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unikrew/internal/domain"
	"unikrew/internal/service"
	"unikrew/mocks"
)

func TestImageSource_LoadFromS3(t *testing.T) {
	storage := mocks.NewMockObjectStorage(t)
	data := pngBytes(t)
	storage.On("Download", context.Background(), "receipts", "2018/X51005200938.png").Return(data, nil)

	img, err := service.NewImageSource(storage, "").Load(context.Background(), "s3://receipts/2018/X51005200938.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, data, img.Bytes)
}

func TestImageSource_S3Errors(t *testing.T) {
	storage := mocks.NewMockObjectStorage(t)
	storage.On("Download", context.Background(), "receipts", "gone.png").Return(nil, domain.ErrImageNotFound)

	_, err := service.NewImageSource(storage, "").Load(context.Background(), "s3://receipts/gone.png")
	assert.ErrorIs(t, err, domain.ErrImageNotFound)

	_, err = service.NewImageSource(storage, "").Load(context.Background(), "s3://receipts")
	assert.ErrorIs(t, err, domain.ErrImageNotFound)

	_, err = service.NewImageSource(nil, "").Load(context.Background(), "s3://receipts/a.png")
	assert.Error(t, err)
}

func TestImageSource_LocalFile(t *testing.T) {
	root := t.TempDir()
	data := pngBytes(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "batch"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "batch", "r.png"), data, 0o600))

	src := service.NewImageSource(nil, root)

	img, err := src.Load(context.Background(), "batch/r.png")
	require.NoError(t, err)
	assert.Equal(t, data, img.Bytes)

	img, err = src.Load(context.Background(), filepath.Join(root, "batch", "r.png"))
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
}

func TestImageSource_ConfinedToRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "images")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(parent, "secret.png"), pngBytes(t), 0o600))

	src := service.NewImageSource(nil, root)

	for _, p := range []string{"../secret.png", filepath.Join(parent, "secret.png"), "a/../../secret.png"} {
		_, err := src.Load(context.Background(), p)
		assert.ErrorIs(t, err, domain.ErrForbiddenPath, p)
	}
}

func TestImageSource_SymlinkOutsideRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "images")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(parent, "secret.png"), pngBytes(t), 0o600))
	if err := os.Symlink(filepath.Join(parent, "secret.png"), filepath.Join(root, "link.png")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	require.NoError(t, os.Symlink(parent, filepath.Join(root, "up")))

	src := service.NewImageSource(nil, root)

	for _, p := range []string{"link.png", "up/secret.png", filepath.Join(root, "link.png")} {
		_, err := src.Load(context.Background(), p)
		assert.ErrorIs(t, err, domain.ErrForbiddenPath, p)
	}
}

func TestImageSource_SymlinkInsideRoot(t *testing.T) {
	root := t.TempDir()
	data := pngBytes(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "batch"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "batch", "r.png"), data, 0o600))
	if err := os.Symlink(filepath.Join("batch", "r.png"), filepath.Join(root, "latest.png")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	img, err := service.NewImageSource(nil, root).Load(context.Background(), "latest.png")
	require.NoError(t, err)
	assert.Equal(t, data, img.Bytes)
}

func TestImageSource_Unconfined(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "r.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t), 0o600))

	_, err := service.NewImageSource(nil, "").Load(context.Background(), path)
	assert.NoError(t, err)
}

func TestImageSource_Errors(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.png"), []byte("just text"), 0o600))
	src := service.NewImageSource(nil, root)

	_, err := src.Load(context.Background(), "missing.png")
	assert.ErrorIs(t, err, domain.ErrImageNotFound)

	_, err = src.Load(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrImageNotFound)

	_, err = src.Load(context.Background(), "notes.png")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
}
