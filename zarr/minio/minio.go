// Package minio reads zarr hierarchies from MinIO and other S3-compatible
// object stores.
package minio

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/robert-malhotra/go-anndata/zarr"
)

// Client is the subset of *minio.Client used by Store.
type Client interface {
	GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (*minio.Object, error)
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// Store is a read-only zarr store over the objects below a bucket prefix.
type Store struct {
	client Client
	bucket string
	prefix string
}

// NewStore creates a store. prefix is prepended to every key.
func NewStore(client Client, bucket, prefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

// Get downloads the object at key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapError(key, err)
	}
	defer obj.Close()

	// GetObject is lazy; a missing key surfaces on the first read.
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.mapError(key, err)
	}
	return data, nil
}

func (s *Store) mapError(key string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%w: minio://%s/%s", zarr.ErrKeyNotFound, s.bucket, s.key(key))
	}
	return err
}

// ListDir returns the names directly below prefix.
func (s *Store) ListDir(ctx context.Context, prefix string) ([]string, error) {
	full := s.key(prefix)
	if full == "." {
		full = ""
	}
	if full != "" {
		full += "/"
	}

	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    full,
		Recursive: false,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if name := strings.Trim(strings.TrimPrefix(obj.Key, full), "/"); name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}
