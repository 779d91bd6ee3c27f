package s3_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unikrew/internal/config"
	"unikrew/internal/domain"
	"unikrew/internal/port"
	s3storage "unikrew/internal/storage/s3"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) *s3storage.ImageStore {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store, err := s3storage.NewImageStore(context.Background(), &config.S3Config{
		Region:    "us-east-1",
		Endpoint:  server.URL,
		AccessKey: "test",
		SecretKey: "test",
	})
	require.NoError(t, err)
	return store
}

func TestImageStore_Download(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/receipts/a/b.png", r.URL.Path)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	})

	data, err := store.Download(context.Background(), "receipts", "a/b.png")

	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestImageStore_Download_NoSuchKey(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`))
	})

	_, err := store.Download(context.Background(), "receipts", "missing.png")

	assert.ErrorIs(t, err, domain.ErrImageNotFound)
}

func TestImageStore_Upload(t *testing.T) {
	var gotBody string
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/receipts/abc/r.jpg", r.URL.Path)
		assert.Equal(t, "image/jpeg", r.Header.Get("Content-Type"))
		assert.Equal(t, "abc123", r.Header.Get("X-Amz-Meta-Content-Hash"))
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("ETag", `"etag-1"`)
	})

	out, err := store.Upload(context.Background(), port.ObjectInput{
		Bucket:      "receipts",
		Key:         "abc/r.jpg",
		Body:        strings.NewReader("jpeg-bytes"),
		ContentType: "image/jpeg",
		Size:        10,
		Metadata:    map[string]string{"content-hash": "abc123"},
	})

	require.NoError(t, err)
	assert.Equal(t, `"etag-1"`, out.ETag)
	assert.Contains(t, gotBody, "jpeg-bytes")
}

func TestImageStore_GetPresignedURL(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("presigning must not call the server")
	})

	url, err := store.GetPresignedURL(context.Background(), "receipts", "abc/r.jpg", 600)

	require.NoError(t, err)
	assert.Contains(t, url, "/receipts/abc/r.jpg")
	assert.Contains(t, url, "X-Amz-Expires=600")
}
