package render

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/retain/pkg/vdom"
)

type fakePutter struct {
	inputs []*s3.PutObjectInput
	bodies []string
	err    error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, string(body))
	return &s3.PutObjectOutput{}, nil
}

func TestPublish(t *testing.T) {
	putter := &fakePutter{}
	pub, err := NewPublisher(putter, "snapshots", WithPrefix("site/"), WithCacheControl("max-age=60"))
	if err != nil {
		t.Fatal(err)
	}

	key, err := pub.Publish(context.Background(), "/todos", PageData{Title: "Todos", Body: vdom.P(vdom.Text("x"))})
	if err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if key != "site/todos.html" {
		t.Errorf("Expected key site/todos.html, got %s", key)
	}
	if len(putter.inputs) != 1 {
		t.Fatalf("Expected 1 upload, got %d", len(putter.inputs))
	}

	in := putter.inputs[0]
	if aws.ToString(in.Bucket) != "snapshots" {
		t.Errorf("Expected bucket snapshots, got %s", aws.ToString(in.Bucket))
	}
	if aws.ToString(in.ContentType) != "text/html; charset=utf-8" {
		t.Errorf("Unexpected content type %s", aws.ToString(in.ContentType))
	}
	if aws.ToString(in.CacheControl) != "max-age=60" {
		t.Errorf("Unexpected cache control %s", aws.ToString(in.CacheControl))
	}
	if aws.ToInt64(in.ContentLength) != int64(len(putter.bodies[0])) {
		t.Errorf("Expected content length %d, got %d", len(putter.bodies[0]), aws.ToInt64(in.ContentLength))
	}
	if !strings.Contains(putter.bodies[0], "<p>x</p>") {
		t.Errorf("Expected rendered body, got %s", putter.bodies[0])
	}
}

func TestPublishKeyDefaults(t *testing.T) {
	pub, err := NewPublisher(&fakePutter{}, "b")
	if err != nil {
		t.Fatal(err)
	}
	if got := pub.Key(""); got != "index.html" {
		t.Errorf("Expected index.html, got %s", got)
	}
}

func TestPublishErrors(t *testing.T) {
	if _, err := NewPublisher(&fakePutter{}, ""); !errors.Is(err, ErrNoBucket) {
		t.Errorf("Expected ErrNoBucket, got %v", err)
	}

	failure := errors.New("access denied")
	pub, _ := NewPublisher(&fakePutter{err: failure}, "b")
	if _, err := pub.Publish(context.Background(), "x", PageData{}); !errors.Is(err, failure) {
		t.Errorf("Expected wrapped put error, got %v", err)
	}
}
