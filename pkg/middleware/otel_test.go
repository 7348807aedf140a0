package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type recordedSpan struct {
	noop.Span
	name   string
	attrs  map[attribute.Key]attribute.Value
	status codes.Code
	ended  bool
}

func (s *recordedSpan) SetName(name string) { s.name = name }

func (s *recordedSpan) SetAttributes(kv ...attribute.KeyValue) {
	for _, a := range kv {
		s.attrs[a.Key] = a.Value
	}
}

func (s *recordedSpan) SetStatus(code codes.Code, _ string) { s.status = code }

func (s *recordedSpan) End(...trace.SpanEndOption) { s.ended = true }

type recordingTracer struct {
	noop.Tracer
	mu    sync.Mutex
	spans []*recordedSpan
}

func (t *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	s := &recordedSpan{name: name, attrs: map[attribute.Key]attribute.Value{}}
	cfg := trace.NewSpanStartConfig(opts...)
	s.SetAttributes(cfg.Attributes()...)
	t.mu.Lock()
	t.spans = append(t.spans, s)
	t.mu.Unlock()
	return trace.ContextWithSpan(ctx, s), s
}

func TestOpenTelemetrySpanPerRequest(t *testing.T) {
	tracer := &recordingTracer{}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(OpenTelemetry(
		WithTracer(tracer),
		WithAttributeExtractor(func(*http.Request) []attribute.KeyValue {
			return []attribute.KeyValue{attribute.String("test.attr", "ok")}
		}),
	))
	var inHandler trace.Span
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		inHandler = trace.SpanFromContext(r.Context())
	})
	r.Get("/fail", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/7", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	if len(tracer.spans) != 2 {
		t.Fatalf("Expected 2 spans, got %d", len(tracer.spans))
	}
	ok, failed := tracer.spans[0], tracer.spans[1]

	if inHandler != trace.Span(ok) {
		t.Error("Expected the span to be carried in the request context")
	}
	if ok.name != "GET /items/{id}" || !ok.ended || ok.status != codes.Ok {
		t.Errorf("Unexpected span %q ended=%v status=%v", ok.name, ok.ended, ok.status)
	}
	checks := map[attribute.Key]string{
		"http.method": "GET",
		"http.target": "/items/7",
		"http.route":  "/items/{id}",
		"test.attr":   "ok",
	}
	for k, want := range checks {
		if got := ok.attrs[k].AsString(); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
	if ok.attrs["http.request_id"].AsString() == "" {
		t.Error("Expected the request ID attribute")
	}
	if got := ok.attrs["http.status_code"].AsInt64(); got != http.StatusOK {
		t.Errorf("status_code = %d", got)
	}

	if failed.status != codes.Error || failed.attrs["http.status_code"].AsInt64() != http.StatusBadGateway {
		t.Errorf("Expected an error span with 502, got status=%v code=%d",
			failed.status, failed.attrs["http.status_code"].AsInt64())
	}
}

func TestOpenTelemetryFilter(t *testing.T) {
	tracer := &recordingTracer{}
	mw := OpenTelemetry(
		WithTracer(tracer),
		WithFilter(func(r *http.Request) bool { return r.URL.Path != "/healthz" }),
	)

	called := false
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if trace.SpanFromContext(r.Context()).SpanContext().IsValid() {
			t.Error("Expected no span for a filtered request")
		}
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if !called {
		t.Fatal("Expected the handler to run")
	}
	if len(tracer.spans) != 0 {
		t.Errorf("Expected no spans, got %d", len(tracer.spans))
	}
}

func TestOpenTelemetryGlobalTracer(t *testing.T) {
	h := OpenTelemetry()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("Expected the wrapped handler's status, got %d", rec.Code)
	}
}
