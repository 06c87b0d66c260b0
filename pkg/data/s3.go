package data

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/quiverml/quiver/pkg/plugin"
)

// s3API is the slice of the S3 client the element uses.
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Element fetches its content from an S3 object. The client is built
// lazily from the ambient AWS credential chain; endpoint overrides support
// S3-compatible stores.
type S3Element struct {
	bucket      string
	key         string
	region      string
	endpoint    string
	contentType string

	client s3API
}

func (e *S3Element) DefaultConfig() plugin.Config {
	return plugin.Config{
		"bucket":       "",
		"key":          "",
		"region":       "us-east-1",
		"endpoint":     "",
		"content_type": "application/octet-stream",
	}
}

func (e *S3Element) Configure(reg *plugin.Registry, cfg plugin.Config) error {
	e.bucket = cfg.StringOr("bucket", "")
	e.key = cfg.StringOr("key", "")
	if e.bucket == "" || e.key == "" {
		return fmt.Errorf("s3 element requires bucket and key")
	}
	e.region = cfg.StringOr("region", "us-east-1")
	e.endpoint = cfg.StringOr("endpoint", "")
	e.contentType = cfg.StringOr("content_type", "application/octet-stream")
	return nil
}

func (e *S3Element) Config() plugin.Config {
	return plugin.Config{
		"bucket":       e.bucket,
		"key":          e.key,
		"region":       e.region,
		"endpoint":     e.endpoint,
		"content_type": e.contentType,
	}
}

func (e *S3Element) UUID() string {
	return checksumID([]byte("s3://" + e.bucket + "/" + e.key))
}

func (e *S3Element) ContentType() string {
	return e.contentType
}

func (e *S3Element) Bytes(ctx context.Context) ([]byte, error) {
	client, err := e.api(ctx)
	if err != nil {
		return nil, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(e.bucket),
		Key:    aws.String(e.key),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching s3://%s/%s: %w", e.bucket, e.key, err)
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

func (e *S3Element) api(ctx context.Context) (s3API, error) {
	if e.client != nil {
		return e.client, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(e.region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	e.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if e.endpoint != "" {
			o.BaseEndpoint = aws.String(e.endpoint)
			o.UsePathStyle = true
		}
	})
	return e.client, nil
}
