package storage

import (
	"context"
	"fmt"
	"strings"
)

type Object struct {
	Name string
	Size int64
}

type ObjectIterator func(yield func(obj Object, err error) bool)

// Provider is a read-only view of a document corpus, either a local
// directory or an S3 bucket.
type Provider interface {
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)

	ListObjects(ctx context.Context, bucket, prefix string) ([]Object, error)

	IterObjects(ctx context.Context, bucket, prefix string) ObjectIterator
}

const S3Prefix = "s3://"

// Location is where a corpus lives. Bucket is empty for local directories.
type Location struct {
	Bucket string
	Prefix string
}

// ParseLocation accepts either s3://bucket/prefix or a local directory path.
func ParseLocation(uri string) (Location, error) {
	if !strings.HasPrefix(uri, S3Prefix) {
		if uri == "" {
			return Location{}, fmt.Errorf("location is required")
		}
		return Location{Prefix: uri}, nil
	}

	bucket, prefix, _ := strings.Cut(strings.TrimPrefix(uri, S3Prefix), "/")
	if bucket == "" {
		return Location{}, fmt.Errorf("invalid s3 location '%s': bucket is required", uri)
	}
	return Location{Bucket: bucket, Prefix: prefix}, nil
}

func (l Location) IsS3() bool {
	return l.Bucket != ""
}
