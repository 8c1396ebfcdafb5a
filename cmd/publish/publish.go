package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/recycle/pkg/storage"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	logger, err := logs.NewLog()
	check(err)

	parser := argparse.NewParser("publish", "Upload a split dataset to a blob store")
	splitDir := parser.String("d", "dataset", &argparse.Options{Help: "Split dataset directory (containing data.yaml)", Required: true})
	fsRoot := parser.String("", "fs", &argparse.Options{Help: "Publish to this local directory", Default: ""})
	gcsBucket := parser.String("", "gcs", &argparse.Options{Help: "Publish to this Google Cloud Storage bucket", Default: ""})
	s3Bucket := parser.String("", "s3", &argparse.Options{Help: "Publish to this S3 bucket", Default: ""})
	s3Region := parser.String("", "s3-region", &argparse.Options{Help: "S3 region", Default: "us-east-1"})
	s3Endpoint := parser.String("", "s3-endpoint", &argparse.Options{Help: "S3-compatible endpoint (eg a MinIO server)", Default: ""})
	public := parser.Flag("", "public", &argparse.Options{Help: "Bucket objects are publicly readable", Default: false})
	prefix := parser.String("p", "prefix", &argparse.Options{Help: "Key prefix, eg datasets/v3", Default: ""})
	err = parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	nTargets := 0
	for _, t := range []string{*fsRoot, *gcsBucket, *s3Bucket} {
		if t != "" {
			nTargets++
		}
	}
	if nTargets != 1 {
		logger.Errorf("Specify exactly one of --fs, --gcs, --s3")
		os.Exit(1)
	}

	var store storage.Storage
	switch {
	case *fsRoot != "":
		store, err = storage.NewStorageFS(logger, *fsRoot)
	case *gcsBucket != "":
		store, err = storage.NewStorageGCS(logger, *gcsBucket, *public)
	case *s3Bucket != "":
		// Credentials come from the standard AWS environment variables and config files
		store, err = storage.NewStorageS3(logger, storage.S3Config{
			Bucket:   *s3Bucket,
			Region:   *s3Region,
			Endpoint: *s3Endpoint,
			Public:   *public,
		})
	}
	if err != nil {
		logger.Errorf("Failed to open storage: %v", err)
		os.Exit(1)
	}

	report, err := storage.Publish(logger, store, *splitDir, *prefix)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	fmt.Printf("Uploaded %v files (%.1f MB)\n", report.Files, float64(report.Bytes)/(1024*1024))
	if report.ManifestURL != "" {
		fmt.Printf("Manifest: %v\n", report.ManifestURL)
	} else {
		fmt.Printf("Manifest: %v\n", report.ManifestKey)
	}
}
