package main

import (
	"context"
	stderrors "errors"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/vango-dev/retain/internal/config"
	"github.com/vango-dev/retain/internal/demo"
	"github.com/vango-dev/retain/internal/errors"
	"github.com/vango-dev/retain/pkg/render"
)

type publishOptions struct {
	bucket   string
	prefix   string
	region   string
	endpoint string
	name     string
	items    []string
	timeout  time.Duration
}

// newObjectPutter builds the object store client. Tests replace it.
var newObjectPutter = func(p config.PublishConfig) render.ObjectPutter {
	return newS3Client(p)
}

func publishCmd(g *globalFlags) *cobra.Command {
	var o publishOptions

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish an HTML snapshot to S3",
		Long: `Render the todo program as a static page and upload it to an
S3 bucket (or any S3-compatible store with --endpoint).

Credentials are read from AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and
AWS_SESSION_TOKEN.

Examples:
  retain publish --bucket snapshots --prefix todo/
  retain publish --name demo --item "buy milk"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd, g, o)
		},
	}

	cmd.Flags().StringVar(&o.bucket, "bucket", "", "Destination bucket (default from "+config.ConfigFileName+")")
	cmd.Flags().StringVar(&o.prefix, "prefix", "", "Key prefix")
	cmd.Flags().StringVar(&o.region, "region", "", "Bucket region (default: $AWS_REGION)")
	cmd.Flags().StringVar(&o.endpoint, "endpoint", "", "Custom S3 endpoint URL")
	cmd.Flags().StringVar(&o.name, "name", "index", "Snapshot name; the object key is <prefix><name>.html")
	cmd.Flags().StringArrayVar(&o.items, "item", nil, "Seed the list with an item (repeatable)")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 30*time.Second, "Upload timeout")

	return cmd
}

func runPublish(cmd *cobra.Command, g *globalFlags, o publishOptions) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	pc := cfg.Publish
	if o.bucket != "" {
		pc.Bucket = o.bucket
	}
	if o.prefix != "" {
		pc.Prefix = o.prefix
	}
	if o.region != "" {
		pc.Region = o.region
	}
	if o.endpoint != "" {
		pc.Endpoint = o.endpoint
	}
	if o.timeout <= 0 {
		return errors.New("E700").WithDetail("--timeout must be positive")
	}

	logger := cfg.Logger(cmd.ErrOrStderr())
	pub, err := render.NewPublisher(newObjectPutter(pc), pc.Bucket,
		render.WithPrefix(pc.Prefix),
		render.WithCacheControl(pc.CacheControl),
		render.WithPublishLogger(logger),
	)
	if stderrors.Is(err, render.ErrNoBucket) {
		return errors.New("E600").WithSuggestion("Pass --bucket or set publish.bucket")
	}
	if err != nil {
		return errors.New("E601").Wrap(err)
	}

	m, _ := demo.Init(demo.Flags{Items: o.items})
	ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
	defer cancel()

	key, err := pub.Publish(ctx, o.name, render.PageData{
		Body:        demo.View(m),
		Title:       cfg.Server.Title,
		StyleSheets: cfg.Server.StyleSheets,
	})
	if err != nil {
		return errors.New("E601").Wrap(err)
	}
	success(cmd, "Published s3://%s/%s", pc.Bucket, key)
	return nil
}

// newS3Client creates an S3 client with credentials from the environment.
func newS3Client(p config.PublishConfig) *s3.Client {
	region := p.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}

	opts := s3.Options{
		Region:      region,
		Credentials: aws.NewCredentialsCache(envCredentials{}),
	}
	if p.Endpoint != "" {
		opts.BaseEndpoint = aws.String(p.Endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

var errNoCredentials = stderrors.New("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")

// envCredentials reads static credentials from the standard AWS variables.
type envCredentials struct{}

func (envCredentials) Retrieve(context.Context) (aws.Credentials, error) {
	id, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.Credentials{}, errNoCredentials
	}
	return aws.Credentials{
		AccessKeyID:     id,
		SecretAccessKey: secret,
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "EnvCredentials",
	}, nil
}
