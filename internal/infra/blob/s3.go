package blob

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/vocespace/spacekeeper/internal/config"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
)

var ErrNotConfigured = errors.New("blob storage is not configured")

// S3Deps signs download links for recordings written by the egress worker.
type S3Deps struct {
	Client    *s3.Client
	Presigner *s3.PresignClient
	Bucket    string
}

func NewS3(ctx context.Context, cfg *config.Config) (*S3Deps, error) {
	if cfg.S3.Bucket == "" {
		return nil, ErrNotConfigured
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3.Region),
	}
	if cfg.S3.AccessKey != "" && cfg.S3.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3.AccessKey, cfg.S3.SecretKey, ""),
		))
	}

	acfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	otelaws.AppendMiddlewares(&acfg.APIOptions)

	client := s3.NewFromConfig(acfg, func(o *s3.Options) {
		if cfg.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
		}
		o.UsePathStyle = cfg.S3.UsePathStyle
	})

	return &S3Deps{
		Client:    client,
		Presigner: s3.NewPresignClient(client),
		Bucket:    cfg.S3.Bucket,
	}, nil
}

var (
	ErrEmptyKey   = errors.New("empty object key")
	ErrInvalidKey = errors.New("object key contains traversal or null bytes")
)

func validKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.Contains(key, "\x00") {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || (len(part) > 1 && strings.Trim(part, ".") == "") {
			return ErrInvalidKey
		}
	}
	return nil
}

// PresignGet signs a download link that saves the recording under its own
// file name.
func (u *S3Deps) PresignGet(ctx context.Context, key string, expire time.Duration) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	req, err := u.Presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(u.Bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", path.Base(key))),
	}, s3.WithPresignExpires(expire))
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", key, err)
	}
	return req.URL, nil
}
