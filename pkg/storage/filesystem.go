package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyclopcam/logs"
)

// StorageFS is a filesystem-based blob store
type StorageFS struct {
	Root string
	log  logs.Log
}

func NewStorageFS(log logs.Log, root string) (*StorageFS, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(absRoot, 0755); err != nil {
		return nil, fmt.Errorf("Failed to create root directory %v (relative path %v): %w", absRoot, root, err)
	}
	return &StorageFS{
		Root: absRoot,
		log:  log,
	}, nil
}

func validName(name string) error {
	if name == "" || strings.Contains(name, "..") {
		return fmt.Errorf("%w '%v'", ErrInvalidName, name)
	}
	return nil
}

func (fs *StorageFS) WriteFile(name string) (io.WriteCloser, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	fs.log.Debugf("Writing file %v", name)
	fullPath := filepath.Join(fs.Root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(fullPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
}

func (fs *StorageFS) ReadFile(name string) (*File, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Join(fs.Root, filepath.FromSlash(name)))
	if err != nil {
		return nil, err
	}
	st, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	return &File{
		Reader:     file,
		ModifiedAt: st.ModTime(),
		Size:       st.Size(),
	}, nil
}

func (fs *StorageFS) DeleteFile(name string) error {
	if err := validName(name); err != nil {
		return err
	}
	fs.log.Infof("Deleting file %v", name)
	err := os.Remove(filepath.Join(fs.Root, filepath.FromSlash(name)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (fs *StorageFS) URL(name string) (string, error) {
	return "", ErrNoPublicUrl
}
