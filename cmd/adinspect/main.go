// Command adinspect prints the structure and contents of an AnnData
// dataset stored as a zarr v2 hierarchy on disk, S3 or MinIO.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli"
)

type metadata struct {
	store        string
	consolidated bool
	cacheBytes   int64
	rps          float64
	verbose      bool
	metrics      bool
	region       string
	s3Endpoint   string
	minioKey     string
	minioSecret  string
	minioSecure  bool

	log *slog.Logger
	w   io.Writer
	e   io.Writer
}

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "dev"

func main() {
	app := newApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "adinspect: %s\n", err)
		os.Exit(1)
	}
}

func newApp(w, e io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "adinspect"
	app.Usage = "inspect AnnData zarr stores"
	app.Version = version
	app.Writer = w
	app.ErrWriter = e

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "store, s",
			EnvVar: "ANNDATA_STORE",
			Usage:  "dataset `URL`: a path, file://, s3://bucket/prefix or minio://host/bucket/prefix",
		},
		cli.BoolFlag{
			Name:  "consolidated, c",
			Usage: "read metadata from .zmetadata when present",
		},
		cli.Int64Flag{
			Name:  "cache-bytes",
			Value: 64 << 20,
			Usage: "cache up to `BYTES` of store reads, 0 disables the cache",
		},
		cli.Float64Flag{
			Name:  "rps",
			Usage: "limit store reads to `N` per second, 0 means unlimited",
		},
		cli.BoolFlag{
			Name:  "verbose, v",
			Usage: "log debug events to stderr",
		},
		cli.BoolFlag{
			Name:  "metrics",
			Usage: "print store and reader metrics to stderr on exit",
		},
		cli.StringFlag{
			Name:   "region",
			EnvVar: "AWS_REGION",
			Usage:  "S3 `REGION`",
		},
		cli.StringFlag{
			Name:   "s3-endpoint",
			EnvVar: "AWS_ENDPOINT_URL_S3",
			Usage:  "S3 endpoint `URL` override, uses path-style addressing",
		},
		cli.StringFlag{
			Name:   "minio-access-key",
			EnvVar: "MINIO_ACCESS_KEY",
			Usage:  "MinIO access `KEY`",
		},
		cli.StringFlag{
			Name:   "minio-secret-key",
			EnvVar: "MINIO_SECRET_KEY",
			Usage:  "MinIO secret `KEY`",
		},
		cli.BoolFlag{
			Name:   "minio-secure",
			EnvVar: "MINIO_SECURE",
			Usage:  "connect to MinIO over TLS",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:   "tree",
			Usage:  "list every slot and key with its kind, shape and dtype",
			Action: runTree,
		},
		{
			Name:           "get",
			Usage:          "print a selection of an element",
			ArgsUsage:      "SLOT[/KEY...] [SELECTION]\n\n   SELECTION is comma separated, e.g. 0:10,3 or :,-1",
			SkipArgReorder: true,
			Action:         runGet,
		},
		{
			Name:  "names",
			Usage: "print observation or variable names",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "axis, a",
					Value: "obs",
					Usage: "`AXIS` to print: obs or var",
				},
				cli.IntFlag{
					Name:  "limit, n",
					Value: 20,
					Usage: "print at most `N` names, 0 prints all",
				},
			},
			Action: runNames,
		},
	}

	app.Before = func(c *cli.Context) error {
		m := &metadata{
			store:        c.GlobalString("store"),
			consolidated: c.GlobalBool("consolidated"),
			cacheBytes:   c.GlobalInt64("cache-bytes"),
			rps:          c.GlobalFloat64("rps"),
			verbose:      c.GlobalBool("verbose"),
			metrics:      c.GlobalBool("metrics"),
			region:       c.GlobalString("region"),
			s3Endpoint:   c.GlobalString("s3-endpoint"),
			minioKey:     c.GlobalString("minio-access-key"),
			minioSecret:  c.GlobalString("minio-secret-key"),
			minioSecure:  c.GlobalBool("minio-secure"),
			w:            c.App.Writer,
			e:            c.App.ErrWriter,
		}
		level := slog.LevelInfo
		if m.verbose {
			level = slog.LevelDebug
		}
		m.log = slog.New(slog.NewTextHandler(m.e, &slog.HandlerOptions{Level: level}))
		c.App.Metadata = map[string]interface{}{"config": m}
		return nil
	}

	app.After = func(c *cli.Context) error {
		m, ok := c.App.Metadata["config"].(*metadata)
		if !ok || !m.metrics {
			return nil
		}
		return writeMetrics(m.e)
	}
	return app
}
