// Package s3store reads and publishes report tables stored in S3.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"tokens-report/internal/domain"
)

// s3API is the minimal S3 interface required by Client.
// *s3.Client from aws-sdk-go-v2 satisfies this interface.
type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Client wraps an S3 bucket for table storage.
type Client struct {
	api    s3API
	bucket string
}

// New creates a Client over one bucket.
func New(api s3API, bucket string) (*Client, error) {
	if api == nil {
		return nil, errors.New("s3store: api must not be nil")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("s3store: bucket must not be empty")
	}
	return &Client{api: api, bucket: bucket}, nil
}

// Read fetches an object's full contents. A missing key returns
// domain.ErrNotFound so callers can treat absence as non-fatal.
func (c *Client) Read(ctx context.Context, key string) ([]byte, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &c.bucket,
		Key:    &key,
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("s3store: read %q: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("s3store: read %q: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3store: read %q body: %w", key, err)
	}
	return data, nil
}

// Write uploads an object, replacing any previous version.
func (c *Client) Write(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &c.bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("s3store: write %q: %w", key, err)
	}
	return nil
}

// URL returns the s3:// location of a key, for run summaries.
func (c *Client) URL(key string) string {
	return fmt.Sprintf("s3://%s/%s", c.bucket, key)
}
