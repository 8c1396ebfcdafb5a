package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	gcs "cloud.google.com/go/storage"
	"github.com/cyclopcam/logs"
)

// StorageGCS publishes to a Google Cloud Storage bucket.
// Credentials come from the environment (GOOGLE_APPLICATION_CREDENTIALS or the metadata server).
type StorageGCS struct {
	log        logs.Log
	client     *gcs.Client
	bucket     *gcs.BucketHandle
	bucketName string
	public     bool
}

func NewStorageGCS(log logs.Log, bucketName string, public bool) (*StorageGCS, error) {
	if bucketName == "" {
		return nil, fmt.Errorf("GCS bucket must be specified")
	}
	client, err := gcs.NewClient(context.Background())
	if err != nil {
		return nil, fmt.Errorf("Failed to create GCS client: %w", err)
	}
	log.Infof("Using GCS bucket %v", bucketName)
	return &StorageGCS{
		log:        log,
		client:     client,
		bucket:     client.Bucket(bucketName),
		bucketName: bucketName,
		public:     public,
	}, nil
}

func (s *StorageGCS) Close() error {
	return s.client.Close()
}

func (s *StorageGCS) WriteFile(name string) (io.WriteCloser, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	w := s.bucket.Object(name).NewWriter(context.Background())
	w.ContentType = ContentType(name)
	w.CacheControl = CacheControl(name)
	return w, nil
}

func (s *StorageGCS) ReadFile(name string) (*File, error) {
	r, err := s.bucket.Object(name).NewReader(context.Background())
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, fmt.Errorf("%v: %w", name, fs.ErrNotExist)
	} else if err != nil {
		return nil, err
	}
	return &File{
		Reader:     r,
		ModifiedAt: r.Attrs.LastModified,
		Size:       r.Attrs.Size,
	}, nil
}

func (s *StorageGCS) DeleteFile(name string) error {
	err := s.bucket.Object(name).Delete(context.Background())
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (s *StorageGCS) URL(name string) (string, error) {
	if !s.public {
		return "", ErrNoPublicUrl
	}
	return fmt.Sprintf("https://storage.googleapis.com/%v/%v", s.bucketName, name), nil
}
