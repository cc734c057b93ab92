package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/cobra"

	openke "github.com/lzw429/OpenKE-Embedding-Service"
	"github.com/lzw429/OpenKE-Embedding-Service/blobstore"
	miniostore "github.com/lzw429/OpenKE-Embedding-Service/blobstore/minio"
	s3store "github.com/lzw429/OpenKE-Embedding-Service/blobstore/s3"
	"github.com/lzw429/OpenKE-Embedding-Service/metric"
)

var errNoSource = errors.New("no dataset source: set --root, --s3-bucket or --minio-endpoint")

func addDatasetFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("root", "", "dataset root directory")
	f.Int("dimension", openke.DefaultDimension, "embedding dimension")
	f.String("cache-dir", "", "download directory for remote vector files")
	f.String("access-pattern", "random", "mmap access hint (default, sequential, random, willneed)")
	f.String("norm", "l2", "TransE score norm (l1, l2)")
	f.Int64("read-limit", 0, "remote table read limit in bytes per second (0 = unlimited)")
	f.StringSlice("namespace-prefixes", nil, "key prefixes stripped before lookup")

	f.String("s3-bucket", "", "read the dataset from this S3 bucket")
	f.String("s3-prefix", "", "key prefix of the dataset in the S3 bucket")
	f.String("s3-region", "", "S3 region (defaults to the AWS config)")

	f.String("minio-endpoint", "", "read the dataset from this MinIO endpoint")
	f.String("minio-bucket", "", "MinIO bucket")
	f.String("minio-prefix", "", "key prefix of the dataset in the MinIO bucket")
	f.String("minio-access-key", "", "MinIO access key")
	f.String("minio-secret-key", "", "MinIO secret key")
	f.Bool("minio-secure", false, "use TLS for MinIO")
}

// source selects the dataset source. A root directory wins over S3, S3 over
// MinIO.
func (c *Config) source(ctx context.Context) (openke.Source, error) {
	switch {
	case c.Root != "":
		return openke.Local(c.Root), nil
	case c.S3Bucket != "":
		store, err := c.s3Store(ctx)
		if err != nil {
			return openke.Source{}, err
		}
		return openke.Remote(store, c.CacheDir), nil
	case c.MinioEndpoint != "":
		store, err := c.minioStore()
		if err != nil {
			return openke.Source{}, err
		}
		return openke.Remote(store, c.CacheDir), nil
	default:
		return openke.Source{}, errNoSource
	}
}

func (c *Config) s3Store(ctx context.Context) (blobstore.BlobStore, error) {
	var optFns []func(*config.LoadOptions) error
	if c.S3Region != "" {
		optFns = append(optFns, config.WithRegion(c.S3Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3store.NewStore(s3.NewFromConfig(awsCfg), c.S3Bucket, c.S3Prefix), nil
}

func (c *Config) minioStore() (blobstore.BlobStore, error) {
	if c.MinioBucket == "" {
		return nil, errors.New("--minio-bucket is required with --minio-endpoint")
	}
	client, err := minio.New(c.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.MinioAccessKey, c.MinioSecretKey, ""),
		Secure: c.MinioSecure,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return miniostore.NewStore(client, c.MinioBucket, c.MinioPrefix), nil
}

// serviceOptions translates the dataset settings into openke options.
func (c *Config) serviceOptions(logger *openke.Logger, mc openke.MetricsCollector) ([]openke.Option, error) {
	access, err := openke.ParseAccessPattern(c.AccessPattern)
	if err != nil {
		return nil, err
	}
	norm, err := metric.ParseNorm(c.Norm)
	if err != nil {
		return nil, err
	}
	opts := []openke.Option{
		openke.WithAccessPattern(access),
		openke.WithScoreNorm(norm),
		openke.WithReadLimit(c.ReadLimit),
		openke.WithLogger(logger),
		openke.WithMetricsCollector(mc),
	}
	if c.Dimension > 0 {
		opts = append(opts, openke.WithDimension(c.Dimension))
	}
	if len(c.Prefixes) > 0 {
		opts = append(opts, openke.WithNamespacePrefixes(c.Prefixes...))
	}
	return opts, nil
}

func (a *app) openService(ctx context.Context, mc openke.MetricsCollector) (*openke.Service, error) {
	src, err := a.cfg.source(ctx)
	if err != nil {
		return nil, err
	}
	opts, err := a.cfg.serviceOptions(a.logger, mc)
	if err != nil {
		return nil, err
	}
	return openke.Open(ctx, src, opts...)
}
