// Package s3 stores objects in AWS S3 or an S3-compatible service such as
// MinIO.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/fx"

	"github.com/proarc/proarc/pkg/proarc/adapter/storage"
	"github.com/proarc/proarc/pkg/proarc/core/config"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
)

// ProviderType identifies the S3 backend in configuration.
const ProviderType = "s3"

const defaultRegion = "us-east-1"

type s3Adapter struct {
	client *awss3.Client
	cfg    storage.StorageConfig
	name   string
}

var _ storage.StorageConnection = (*s3Adapter)(nil)

// NewS3Adapter builds a client from cfg. Static keys are used when both are
// configured, otherwise the default AWS credential chain applies.
func NewS3Adapter(ctx context.Context, cfg storage.StorageConfig, name string) (storage.StorageConnection, error) {
	return newS3Adapter(ctx, cfg, name, nil)
}

func newS3Adapter(ctx context.Context, cfg storage.StorageConfig, name string, httpClient *http.Client) (*s3Adapter, error) {
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("s3 storage adapter '%s': bucket_name must be specified", name)
	}
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3 storage adapter '%s': %w", name, err)
	}
	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if httpClient != nil {
			o.HTTPClient = httpClient
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
	return &s3Adapter{client: client, cfg: cfg, name: name}, nil
}

func (a *s3Adapter) Close() error                  { return nil }
func (a *s3Adapter) Type() string                  { return ProviderType }
func (a *s3Adapter) Name() string                  { return a.name }
func (a *s3Adapter) Config() storage.StorageConfig { return a.cfg }

func (a *s3Adapter) bucket(name string) *string {
	if name == "" {
		name = a.cfg.BucketName
	}
	return aws.String(name)
}

func (a *s3Adapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	// PutObject needs a seekable body to sign the payload.
	body, ok := data.(io.ReadSeeker)
	if !ok {
		buf, err := io.ReadAll(data)
		if err != nil {
			return fmt.Errorf("failed to read upload of '%s': %w", objectName, err)
		}
		body = bytes.NewReader(buf)
	}
	input := &awss3.PutObjectInput{Bucket: a.bucket(bucket), Key: aws.String(objectName), Body: body}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := a.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload '%s' to s3: %w", objectName, err)
	}
	logger.Debugf("Uploaded '%s' (s3 adapter '%s').", objectName, a.name)
	return nil
}

func (a *s3Adapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	out, err := a.client.GetObject(ctx, &awss3.GetObjectInput{Bucket: a.bucket(bucket), Key: aws.String(objectName)})
	if err != nil {
		return nil, fmt.Errorf("failed to open '%s' in s3: %w", objectName, err)
	}
	return out.Body, nil
}

func (a *s3Adapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	p := awss3.NewListObjectsV2Paginator(a.client, &awss3.ListObjectsV2Input{Bucket: a.bucket(bucket), Prefix: aws.String(prefix)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list s3 objects with prefix '%s': %w", prefix, err)
		}
		for _, obj := range page.Contents {
			if err := fn(aws.ToString(obj.Key)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *s3Adapter) DeleteObject(ctx context.Context, bucket, objectName string) error {
	_, err := a.client.DeleteObject(ctx, &awss3.DeleteObjectInput{Bucket: a.bucket(bucket), Key: aws.String(objectName)})
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete '%s' from s3: %w", objectName, err)
	}
	return nil
}

// NewS3Provider creates the provider for "s3" connections.
func NewS3Provider(cfg *config.Config) *storage.BaseProvider {
	return storage.NewBaseProvider(cfg, ProviderType, NewS3Adapter)
}

// Module contributes the S3 provider to the storage_providers group.
var Module = fx.Provide(fx.Annotate(
	NewS3Provider,
	fx.As(new(storage.StorageProvider)),
	fx.ResultTags(`group:"storage_providers"`),
))
