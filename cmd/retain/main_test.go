package main

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/retain/internal/config"
	"github.com/vango-dev/retain/internal/demo"
	"github.com/vango-dev/retain/internal/errors"
	"github.com/vango-dev/retain/pkg/protocol"
	"github.com/vango-dev/retain/pkg/render"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.ConfigFileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func errorCode(err error) string {
	var re *errors.RetainError
	if stderrors.As(err, &re) {
		return re.Code
	}
	return ""
}

func TestVersionShort(t *testing.T) {
	out, err := execute(t, "version", "--short")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if out != "dev\n" {
		t.Errorf("Expected %q, got %q", "dev\n", out)
	}
}

func TestRenderFragment(t *testing.T) {
	cfgPath := writeConfig(t, `{}`)
	out, err := execute(t, "--config", cfgPath, "render", "--item", "alpha", "--markers")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{`<section class="todoapp">`, "alpha", `data-on-click="true"`, "1 item left"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "<html") {
		t.Error("fragment output should not be a document")
	}
}

func TestRenderPageToFile(t *testing.T) {
	cfgPath := writeConfig(t, `{"server": {"title": "Snapshot"}}`)
	outPath := filepath.Join(t.TempDir(), "index.html")

	if _, err := execute(t, "--config", cfgPath, "render", "--page", "--pretty", "--item", "beta", "-o", outPath); err != nil {
		t.Fatalf("render: %v", err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	html := string(data)
	if !strings.HasPrefix(html, "<!DOCTYPE html>") {
		t.Errorf("Expected a document, got:\n%s", html)
	}
	if !strings.Contains(html, "<title>Snapshot</title>") || !strings.Contains(html, "beta") {
		t.Errorf("Expected title and item in page, got:\n%s", html)
	}
	if strings.Contains(html, "<script") {
		t.Error("static snapshot should not load the host script")
	}
}

func TestRenderBadConfig(t *testing.T) {
	cfgPath := writeConfig(t, `{"server": {"port": -1}}`)
	_, err := execute(t, "--config", cfgPath, "render")
	if code := errorCode(err); code != "E102" {
		t.Errorf("Expected E102, got %v", err)
	}
}

type fakePutter struct {
	inputs []*s3.PutObjectInput
	bodies []string
	err    error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, string(body))
	return &s3.PutObjectOutput{}, nil
}

func stubPutter(t *testing.T, p *fakePutter) *config.PublishConfig {
	t.Helper()
	var seen config.PublishConfig
	prev := newObjectPutter
	newObjectPutter = func(pc config.PublishConfig) render.ObjectPutter {
		seen = pc
		return p
	}
	t.Cleanup(func() { newObjectPutter = prev })
	return &seen
}

func TestPublish(t *testing.T) {
	fake := &fakePutter{}
	seen := stubPutter(t, fake)
	cfgPath := writeConfig(t, `{"publish": {"bucket": "from-config", "region": "eu-west-1"}}`)

	out, err := execute(t, "--config", cfgPath, "publish", "--bucket", "snapshots", "--prefix", "todo/", "--name", "demo", "--item", "gamma")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(fake.inputs) != 1 {
		t.Fatalf("Expected 1 upload, got %d", len(fake.inputs))
	}
	in := fake.inputs[0]
	if aws.ToString(in.Bucket) != "snapshots" || aws.ToString(in.Key) != "todo/demo.html" {
		t.Errorf("Unexpected destination %s/%s", aws.ToString(in.Bucket), aws.ToString(in.Key))
	}
	if aws.ToString(in.CacheControl) != config.DefaultCacheControl {
		t.Errorf("Expected default cache control, got %q", aws.ToString(in.CacheControl))
	}
	if !strings.Contains(fake.bodies[0], "gamma") {
		t.Errorf("Expected snapshot to contain the seeded item")
	}
	if seen.Region != "eu-west-1" {
		t.Errorf("Expected region from config, got %q", seen.Region)
	}
	if !strings.Contains(out, "s3://snapshots/todo/demo.html") {
		t.Errorf("Unexpected output %q", out)
	}
}

func TestPublishErrors(t *testing.T) {
	cfgPath := writeConfig(t, `{}`)

	stubPutter(t, &fakePutter{})
	_, err := execute(t, "--config", cfgPath, "publish")
	if code := errorCode(err); code != "E600" {
		t.Errorf("Expected E600 without a bucket, got %v", err)
	}

	cause := stderrors.New("access denied")
	stubPutter(t, &fakePutter{err: cause})
	_, err = execute(t, "--config", cfgPath, "publish", "--bucket", "b")
	if code := errorCode(err); code != "E601" || !stderrors.Is(err, cause) {
		t.Errorf("Expected E601 wrapping the upload error, got %v", err)
	}
}

func TestEnvCredentials(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	if _, err := (envCredentials{}).Retrieve(context.Background()); err == nil {
		t.Error("Expected an error without credentials")
	}

	t.Setenv("AWS_ACCESS_KEY_ID", "AKID")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	creds, err := (envCredentials{}).Retrieve(context.Background())
	if err != nil || creds.AccessKeyID != "AKID" || creds.SecretAccessKey != "secret" {
		t.Errorf("Unexpected credentials %+v %v", creds, err)
	}
}

func TestServe(t *testing.T) {
	cfg := config.New()
	cfg.Metrics.Enabled = true
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv := newServer(cfg, logger, demo.Flags{Items: []string{"seeded"}})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	page := get(t, ts.URL+"/")
	if !strings.Contains(page, "seeded") || !strings.Contains(page, `data-endpoint="/ws"`) {
		t.Errorf("Unexpected page:\n%s", page)
	}

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + cfg.Server.WebSocketPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.NewFrame(protocol.FrameHandshake, protocol.EncodeClientHello(&protocol.ClientHello{
		Version: protocol.CurrentVersion,
	}))
	if err := conn.WriteMessage(websocket.BinaryMessage, hello.Encode()); err != nil {
		t.Fatal(err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var mounted bool
	for !mounted {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		f, err := protocol.DecodeFrame(msg)
		if err != nil {
			t.Fatal(err)
		}
		if f.Type != protocol.FrameOps {
			continue
		}
		batch, err := protocol.DecodeOps(f.Payload)
		if err != nil {
			t.Fatal(err)
		}
		for _, op := range batch.Ops {
			if op.Code == protocol.OpCreateText && op.Value == "seeded" {
				mounted = true
			}
		}
		if !mounted {
			t.Fatal("Expected the seed flags to reach a host without flags")
		}
	}

	metrics := get(t, ts.URL+cfg.Metrics.Path)
	for _, want := range []string{
		"retain_server_sessions_active 1",
		"retain_program_runtimes_active 1",
		`retain_session_frames_sent_total{type="Handshake"} 1`,
		`retain_http_requests_total{method="GET",route="/",status="200"}`,
	} {
		if !strings.Contains(metrics, want) {
			t.Errorf("Expected metrics to contain %q", want)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestBenchInProcess(t *testing.T) {
	cfgPath := writeConfig(t, `{}`)
	outPath := filepath.Join(t.TempDir(), "report.json")

	out, err := execute(t, "--config", cfgPath, "bench", "--profile", "fast",
		"--clients", "2", "--duration", "400ms", "--rps", "20", "--list", "3", "--json", outPath)
	if err != nil {
		t.Fatalf("bench: %v", err)
	}
	if !strings.Contains(out, "with 2 hosts") || !strings.Contains(out, "Wrote "+outPath) {
		t.Errorf("Unexpected output:\n%s", out)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	var report struct {
		Workload struct {
			Profile  string `json:"profile"`
			Clients  int    `json:"clients"`
			ListSize int    `json:"list_size"`
		} `json:"workload"`
		Throughput struct {
			EventsTotal uint64 `json:"events_total"`
		} `json:"throughput"`
		Errors struct {
			TotalErrors uint64 `json:"total_errors"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Workload.Profile != "fast" || report.Workload.Clients != 2 || report.Workload.ListSize != 3 {
		t.Errorf("Unexpected workload %+v", report.Workload)
	}
	if report.Throughput.EventsTotal == 0 || report.Errors.TotalErrors != 0 {
		t.Errorf("Expected events without errors, got %d events %d errors",
			report.Throughput.EventsTotal, report.Errors.TotalErrors)
	}
}

func TestBenchInvalidFlags(t *testing.T) {
	tests := [][]string{
		{"bench", "--profile", "huge"},
		{"bench", "--clients", "-1"},
		{"bench", "--list", "-2"},
	}
	for _, args := range tests {
		_, err := execute(t, args...)
		if code := errorCode(err); code != "E700" {
			t.Errorf("%v: expected E700, got %v", args, err)
		}
	}
}

func get(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	return string(body)
}
