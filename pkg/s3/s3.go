package s3

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Config describes an S3 compatible endpoint.
type Config struct {
	Endpoint       string
	AccessKey      string
	SecretKey      string
	Region         string
	DisableTLS     bool
	ForcePathStyle bool
}

// ConfigFromEnv reads the S3 endpoint from the environment.
//
// Required environment variables:
//   - S3_ENDPOINT: host:port or full URL of the S3 endpoint.
//   - S3_ACCESS_KEY / S3_SECRET_KEY: static credentials.
//
// Optional environment variables:
//   - S3_REGION (default "us-east-1").
//   - S3_DISABLE_TLS (bool; default false) to toggle TLS usage.
//   - S3_FORCE_PATH_STYLE (bool; default true).
func ConfigFromEnv() Config {
	cfg := Config{
		Endpoint:       strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
		AccessKey:      os.Getenv("S3_ACCESS_KEY"),
		SecretKey:      os.Getenv("S3_SECRET_KEY"),
		Region:         os.Getenv("S3_REGION"),
		ForcePathStyle: true,
	}
	cfg.DisableTLS, _ = strconv.ParseBool(os.Getenv("S3_DISABLE_TLS"))
	if v := strings.TrimSpace(os.Getenv("S3_FORCE_PATH_STYLE")); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			cfg.ForcePathStyle = parsed
		}
	}
	return cfg
}

// Client is a thin wrapper around the AWS SDK v2 S3 client.
type Client struct {
	api     *s3.Client
	presign *s3.PresignClient
}

// NewClientFromEnv initialises a Client from ConfigFromEnv.
func NewClientFromEnv(ctx context.Context) (*Client, error) {
	return New(ctx, ConfigFromEnv())
}

// New initialises a Client for cfg.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("S3_ENDPOINT is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("S3_ACCESS_KEY and S3_SECRET_KEY are required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	endpoint := endpointURL(cfg.Endpoint, cfg.DisableTLS)

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.ForcePathStyle
		o.BaseEndpoint = aws.String(endpoint)
	})

	return &Client{
		api:     client,
		presign: s3.NewPresignClient(client),
	}, nil
}

func endpointURL(endpoint string, disableTLS bool) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	scheme := "https"
	if disableTLS {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s", scheme, endpoint)
}

// PutObject uploads data to the given bucket/key with checksum metadata.
func (c *Client) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, sha256 string) error {
	if c == nil {
		return errors.New("nil client")
	}
	checksum, err := encodeSHA256(sha256)
	if err != nil {
		return err
	}

	_, err = c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:            &bucket,
		Key:               &key,
		Body:              r,
		ContentLength:     &size,
		ChecksumAlgorithm: s3types.ChecksumAlgorithmSha256,
		ChecksumSHA256:    &checksum,
		Metadata: map[string]string{
			"sha256": sha256,
		},
	})
	return err
}

// PresignGet generates a presigned GET URL for the provided key and TTL.
func (c *Client) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	if c == nil {
		return "", errors.New("nil client")
	}

	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, func(opts *s3.PresignOptions) {
		opts.Expires = ttl
	})
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

func encodeSHA256(hexDigest string) (string, error) {
	if hexDigest == "" {
		return "", errors.New("sha256 digest required")
	}
	raw, err := hex.DecodeString(hexDigest)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
