package cli

import (
	"fmt"
	"time"

	"github.com/lzw429/OpenKE-Embedding-Service/codec"
)

// Config is the merged view of flags, config file and OPENKE_* variables.
type Config struct {
	LogLevel  string `mapstructure:"log-level"`
	LogFormat string `mapstructure:"log-format"`
	Codec     string `mapstructure:"codec"`

	// Dataset.
	Root          string   `mapstructure:"root"`
	Dimension     int      `mapstructure:"dimension"`
	CacheDir      string   `mapstructure:"cache-dir"`
	AccessPattern string   `mapstructure:"access-pattern"`
	Norm          string   `mapstructure:"norm"`
	ReadLimit     int64    `mapstructure:"read-limit"`
	Prefixes      []string `mapstructure:"namespace-prefixes"`

	S3Bucket string `mapstructure:"s3-bucket"`
	S3Prefix string `mapstructure:"s3-prefix"`
	S3Region string `mapstructure:"s3-region"`

	MinioEndpoint  string `mapstructure:"minio-endpoint"`
	MinioBucket    string `mapstructure:"minio-bucket"`
	MinioPrefix    string `mapstructure:"minio-prefix"`
	MinioAccessKey string `mapstructure:"minio-access-key"`
	MinioSecretKey string `mapstructure:"minio-secret-key"`
	MinioSecure    bool   `mapstructure:"minio-secure"`

	// Server.
	Addr           string        `mapstructure:"addr"`
	MaxInFlight    int64         `mapstructure:"max-inflight"`
	RPS            float64       `mapstructure:"rps"`
	Burst          int           `mapstructure:"burst"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
	Metrics        bool          `mapstructure:"metrics"`

	// Client.
	Server  string        `mapstructure:"server"`
	Strict  bool          `mapstructure:"strict"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func (c *Config) codec() (codec.Codec, error) {
	cd, ok := codec.ByName(c.Codec)
	if !ok {
		return nil, fmt.Errorf("unknown codec %q", c.Codec)
	}
	return cd, nil
}
