package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/prometheus/common/expfmt"

	"github.com/robert-malhotra/go-anndata/anndata"
	"github.com/robert-malhotra/go-anndata/internal/metrics"
	"github.com/robert-malhotra/go-anndata/zarr"
	zminio "github.com/robert-malhotra/go-anndata/zarr/minio"
	zs3 "github.com/robert-malhotra/go-anndata/zarr/s3"
)

var errNoStore = errors.New("no store given: use --store or ANNDATA_STORE")

// baseStore opens the store named by the URL.
func (m *metadata) baseStore(ctx context.Context) (zarr.Store, error) {
	if m.store == "" {
		return nil, errNoStore
	}
	u, err := url.Parse(m.store)
	if err != nil || u.Scheme == "" {
		return zarr.NewDirectoryStore(m.store)
	}

	switch u.Scheme {
	case "file":
		return zarr.NewDirectoryStore(u.Path)
	case "s3":
		return m.s3Store(ctx, u.Host, u.Path)
	case "minio":
		bucket, prefix, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
		if bucket == "" {
			return nil, fmt.Errorf("store %q: minio URLs need a bucket", m.store)
		}
		return m.minioStore(u.Host, bucket, prefix)
	}
	return nil, fmt.Errorf("store %q: unknown scheme %q", m.store, u.Scheme)
}

func (m *metadata) s3Store(ctx context.Context, bucket, prefix string) (zarr.Store, error) {
	var opts []func(*config.LoadOptions) error
	if m.region != "" {
		opts = append(opts, config.WithRegion(m.region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	client := awss3.NewFromConfig(cfg, func(o *awss3.Options) {
		if m.s3Endpoint != "" {
			o.BaseEndpoint = aws.String(m.s3Endpoint)
			o.UsePathStyle = true
		}
	})
	return zs3.NewStore(client, bucket, prefix), nil
}

func (m *metadata) minioStore(endpoint, bucket, prefix string) (zarr.Store, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(m.minioKey, m.minioSecret, ""),
		Secure: m.minioSecure,
	})
	if err != nil {
		return nil, fmt.Errorf("creating MinIO client: %w", err)
	}
	return zminio.NewStore(client, bucket, prefix), nil
}

// openStore wraps the base store with the configured rate limit, cache and
// instrumentation, innermost first.
func (m *metadata) openStore(ctx context.Context) (zarr.Store, error) {
	s, err := m.baseStore(ctx)
	if err != nil {
		return nil, err
	}
	if m.rps > 0 {
		s = zarr.NewLimitedStore(s, m.rps, max(1, int(m.rps)))
	}
	if m.cacheBytes > 0 {
		s = zarr.NewCachingStore(s, m.cacheBytes)
	}
	return zarr.NewInstrumentedStore("adinspect", s), nil
}

func (m *metadata) open(ctx context.Context) (*anndata.AnnData, error) {
	s, err := m.openStore(ctx)
	if err != nil {
		return nil, err
	}
	opts := []anndata.Option{anndata.WithLogger(m.log)}
	if m.consolidated {
		opts = append(opts, anndata.WithConsolidated())
	}
	return anndata.Read(ctx, s, opts...)
}

func writeMetrics(w io.Writer) error {
	families, err := metrics.Registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
