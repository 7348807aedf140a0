package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrNoBucket is returned by NewPublisher when bucket is empty.
var ErrNoBucket = errors.New("render: publisher bucket is empty")

// ObjectPutter is the subset of the S3 client used for publishing.
// *s3.Client satisfies it.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Publisher renders documents and stores them as S3 objects.
type Publisher struct {
	client       ObjectPutter
	bucket       string
	prefix       string
	cacheControl string
	renderer     *Renderer
	logger       *slog.Logger
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithPrefix sets the key prefix, e.g. "snapshots/".
func WithPrefix(prefix string) PublisherOption {
	return func(p *Publisher) { p.prefix = prefix }
}

// WithCacheControl sets the Cache-Control header on every object.
func WithCacheControl(v string) PublisherOption {
	return func(p *Publisher) { p.cacheControl = v }
}

// WithRenderer replaces the default renderer.
func WithRenderer(r *Renderer) PublisherOption {
	return func(p *Publisher) { p.renderer = r }
}

// WithPublishLogger sets the logger used for upload reports.
func WithPublishLogger(l *slog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = l }
}

// NewPublisher creates a publisher writing to bucket.
func NewPublisher(client ObjectPutter, bucket string, opts ...PublisherOption) (*Publisher, error) {
	if bucket == "" {
		return nil, ErrNoBucket
	}
	p := &Publisher{
		client:   client,
		bucket:   bucket,
		renderer: NewRenderer(RendererConfig{}),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Key returns the object key used for name.
func (p *Publisher) Key(name string) string {
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		name = "index"
	}
	return p.prefix + name + ".html"
}

// Publish renders page and uploads it under Key(name).
func (p *Publisher) Publish(ctx context.Context, name string, page PageData) (string, error) {
	var buf bytes.Buffer
	if err := p.renderer.RenderPage(&buf, page); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}

	key := p.Key(name)
	in := &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentType:   aws.String("text/html; charset=utf-8"),
		ContentLength: aws.Int64(int64(buf.Len())),
	}
	if p.cacheControl != "" {
		in.CacheControl = aws.String(p.cacheControl)
	}

	if _, err := p.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", p.bucket, key, err)
	}
	p.logger.Info("snapshot published", "bucket", p.bucket, "key", key, "bytes", buf.Len())
	return key, nil
}
