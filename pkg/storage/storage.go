// Package storage is a minimal blob store abstraction, used to publish split datasets
package storage

import (
	"errors"
	"io"
	"mime"
	"path"
	"time"
)

var (
	ErrNoPublicUrl = errors.New("Blob store has no public URL")
	ErrInvalidName = errors.New("Invalid file name")
)

// Storage is an abstraction of a blob store (eg S3)
type Storage interface {
	// When finished, you must close the WriteCloser
	WriteFile(name string) (io.WriteCloser, error)

	// When finished, you must close File.Reader
	ReadFile(name string) (*File, error)

	// Deleting a file that does not exist is not an error
	DeleteFile(name string) error

	// Returns ErrNoPublicUrl if the file can't be reached by URL
	URL(name string) (string, error)
}

// File is an element in blob storage.
type File struct {
	Reader     io.ReadCloser
	ModifiedAt time.Time
	Size       int64
}

func WriteFile(s Storage, name string, content io.Reader) error {
	f, err := s.WriteFile(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(f, content)
	errClose := f.Close()
	if err != nil {
		return err
	}
	return errClose
}

func ReadFile(s Storage, name string) ([]byte, error) {
	f, err := s.ReadFile(name)
	if err != nil {
		return nil, err
	}
	defer f.Reader.Close()
	return io.ReadAll(f.Reader)
}

// ContentType guesses the MIME type of a dataset file from its extension
func ContentType(name string) string {
	switch path.Ext(name) {
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".yaml", ".yml":
		return "application/yaml"
	}
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// CacheControl returns the Cache-Control header for a published file.
// Images and labels never change once published under a prefix, but the manifest
// is rewritten by every publish.
func CacheControl(name string) string {
	if path.Base(name) == "data.yaml" {
		return "no-cache"
	}
	return "public, max-age=86400"
}
