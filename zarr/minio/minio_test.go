package minio

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-anndata/zarr"
)

type listClient struct {
	Client
	objects []minio.ObjectInfo
	opts    minio.ListObjectsOptions
}

func (c *listClient) ListObjects(_ context.Context, _ string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	c.opts = opts
	ch := make(chan minio.ObjectInfo, len(c.objects))
	for _, o := range c.objects {
		ch <- o
	}
	close(ch)
	return ch
}

func TestStore_ListDir(t *testing.T) {
	client := &listClient{objects: []minio.ObjectInfo{
		{Key: "ds/obs/.zattrs"},
		{Key: "ds/obs/_index/"},
		{Key: "ds/obs/categorical/"},
	}}
	store := NewStore(client, "bucket", "ds/")

	names, err := store.ListDir(context.Background(), "obs")
	require.NoError(t, err)
	assert.Equal(t, []string{".zattrs", "_index", "categorical"}, names)
	assert.Equal(t, "ds/obs/", client.opts.Prefix)
	assert.False(t, client.opts.Recursive)
}

func TestStore_ListDirError(t *testing.T) {
	boom := errors.New("boom")
	client := &listClient{objects: []minio.ObjectInfo{{Err: boom}}}
	store := NewStore(client, "bucket", "")

	_, err := store.ListDir(context.Background(), "")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "", client.opts.Prefix)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}))
	assert.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}))

	store := NewStore(nil, "bucket", "p")
	err := store.mapError("X/.zarray", minio.ErrorResponse{Code: "NoSuchKey"})
	assert.ErrorIs(t, err, zarr.ErrKeyNotFound)
	assert.Contains(t, err.Error(), "minio://bucket/p/X/.zarray")
}

// TestStore_Integration requires a running MinIO instance.
func TestStore_Integration(t *testing.T) {
	client, err := minio.New("localhost:9000", &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}
	ctx := context.Background()
	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	store := NewStore(client, "anndata-test", "missing")
	_, err = store.Get(ctx, ".zgroup")
	assert.Error(t, err)
}
