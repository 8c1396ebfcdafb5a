package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cyclopcam/logs"
)

// S3Config selects an S3 (or S3-compatible, such as MinIO) bucket
type S3Config struct {
	Bucket          string `json:"bucket"`
	Region          string `json:"region"`   // Default us-east-1
	Endpoint        string `json:"endpoint"` // Empty for AWS. Setting this enables path-style addressing.
	AccessKeyID     string `json:"accessKeyID"`
	SecretAccessKey string `json:"secretAccessKey"`
	Public          bool   `json:"public"`
}

// StorageS3 is an S3-based blob store
type StorageS3 struct {
	cfg    S3Config
	client *s3.Client
	log    logs.Log
}

// NewStorageS3 creates an S3 store.
// If the access key is empty, the default AWS credential chain is used.
func NewStorageS3(log logs.Log, cfg S3Config) (*StorageS3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket must be specified")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("Failed to load AWS config: %w", err)
	}
	endpoint := cfg.Endpoint
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	cfg.Endpoint = endpoint
	return &StorageS3{
		cfg:    cfg,
		client: client,
		log:    log,
	}, nil
}

// s3Writer buffers the object, and uploads it on Close
type s3Writer struct {
	s   *StorageS3
	key string
	buf bytes.Buffer
}

func (w *s3Writer) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *s3Writer) Close() error {
	_, err := w.s.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket:        aws.String(w.s.cfg.Bucket),
		Key:           aws.String(w.key),
		Body:          bytes.NewReader(w.buf.Bytes()),
		ContentLength: aws.Int64(int64(w.buf.Len())),
		ContentType:   aws.String(ContentType(w.key)),
		CacheControl:  aws.String(CacheControl(w.key)),
	})
	return err
}

func (s *StorageS3) WriteFile(name string) (io.WriteCloser, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	return &s3Writer{s: s, key: name}, nil
}

func (s *StorageS3) ReadFile(name string) (*File, error) {
	out, err := s.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(name),
	})
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return nil, fmt.Errorf("%v: %w", name, fs.ErrNotExist)
	} else if err != nil {
		return nil, err
	}
	f := &File{
		Reader: out.Body,
		Size:   aws.ToInt64(out.ContentLength),
	}
	if out.LastModified != nil {
		f.ModifiedAt = *out.LastModified
	}
	return f, nil
}

func (s *StorageS3) DeleteFile(name string) error {
	_, err := s.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(name),
	})
	return err
}

func (s *StorageS3) URL(name string) (string, error) {
	if !s.cfg.Public {
		return "", ErrNoPublicUrl
	}
	if s.cfg.Endpoint != "" {
		return strings.TrimSuffix(s.cfg.Endpoint, "/") + "/" + s.cfg.Bucket + "/" + name, nil
	}
	return fmt.Sprintf("https://%v.s3.%v.amazonaws.com/%v", s.cfg.Bucket, s.cfg.Region, name), nil
}
