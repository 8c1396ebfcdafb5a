package storage

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/recycle/pkg/dataset"
	"github.com/stretchr/testify/require"
)

func TestStorageFS(t *testing.T) {
	store, err := NewStorageFS(logs.NewTestingLog(t), t.TempDir())
	require.NoError(t, err)

	require.NoError(t, WriteFile(store, "a/b/c.txt", bytes.NewReader([]byte("hello"))))
	b, err := ReadFile(store, "a/b/c.txt")
	require.NoError(t, err)
	require.Equal(t, "hello", string(b))

	f, err := store.ReadFile("a/b/c.txt")
	require.NoError(t, err)
	require.Equal(t, int64(5), f.Size)
	f.Reader.Close()

	_, err = store.WriteFile("../escape.txt")
	require.ErrorIs(t, err, ErrInvalidName)

	_, err = store.URL("a/b/c.txt")
	require.ErrorIs(t, err, ErrNoPublicUrl)

	require.NoError(t, store.DeleteFile("a/b/c.txt"))
	_, err = store.ReadFile("a/b/c.txt")
	require.True(t, errors.Is(err, os.ErrNotExist))

	// Deleting twice is fine, as it is on GCS and S3
	require.NoError(t, store.DeleteFile("a/b/c.txt"))
}

// orderStore records the order in which files are written
type orderStore struct {
	*StorageFS
	order []string
}

type recordingWriter struct {
	io.WriteCloser
	close func()
}

func (w *recordingWriter) Close() error {
	err := w.WriteCloser.Close()
	w.close()
	return err
}

func (s *orderStore) WriteFile(name string) (io.WriteCloser, error) {
	w, err := s.StorageFS.WriteFile(name)
	if err != nil {
		return nil, err
	}
	return &recordingWriter{w, func() { s.order = append(s.order, name) }}, nil
}

func TestPublish(t *testing.T) {
	base := t.TempDir()
	split := t.TempDir()
	root := filepath.Join(base, "glass")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "images"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "labels"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "classes.txt"), []byte("glass\n"), 0644))
	for _, n := range []string{"a", "b", "c", "d"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, "images", n+".jpg"), []byte(n), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(root, "labels", n+".txt"), []byte("0 0.5 0.5 0.1 0.1"), 0644))
	}
	_, err := dataset.Run(logs.NewTestingLog(t), base, split, dataset.DefaultConfig())
	require.NoError(t, err)

	fs, err := NewStorageFS(logs.NewTestingLog(t), t.TempDir())
	require.NoError(t, err)
	store := &orderStore{StorageFS: fs}
	report, err := Publish(logs.NewTestingLog(t), store, split, "/datasets/v1/")
	require.NoError(t, err)
	require.Equal(t, 9, report.Files)
	require.Equal(t, "datasets/v1/data.yaml", report.ManifestKey)
	require.Equal(t, "", report.ManifestURL)
	require.Equal(t, "datasets/v1/data.yaml", store.order[len(store.order)-1])

	b, err := ReadFile(store, "datasets/v1/train/images/"+firstFile(t, filepath.Join(split, "train", "images")))
	require.NoError(t, err)
	require.Len(t, b, 1)

	// No manifest, no publish
	_, err = Publish(logs.NewTestingLog(t), store, t.TempDir(), "x")
	require.Error(t, err)
}

func firstFile(t *testing.T, dir string) string {
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	return entries[0].Name()
}

func TestContentType(t *testing.T) {
	require.Equal(t, "image/jpeg", ContentType("datasets/v1/train/images/a.jpg"))
	require.Equal(t, "image/png", ContentType("b.png"))
	require.Equal(t, "text/plain; charset=utf-8", ContentType("train/labels/a.txt"))
	require.Equal(t, "application/yaml", ContentType("datasets/v1/data.yaml"))
	require.Equal(t, "application/octet-stream", ContentType("weights"))

	require.Equal(t, "no-cache", CacheControl("datasets/v1/data.yaml"))
	require.Equal(t, "public, max-age=86400", CacheControl("datasets/v1/train/images/a.jpg"))
}
