package middleware

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vango-dev/retain/pkg/protocol"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewMetrics(WithRegistry(reg), WithNamespace("test")), reg
}

func TestMetricsHandlerLabelsByRoute(t *testing.T) {
	m, _ := newTestMetrics(t)

	r := chi.NewRouter()
	r.Use(m.Handler)
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, chi.URLParam(r, "id"))
	})
	r.Get("/fail", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	for _, path := range []string{"/items/1", "/items/2", "/fail", "/missing"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	tests := []struct {
		route, status string
		want          float64
	}{
		{"/items/{id}", "200", 2},
		{"/fail", "500", 1},
		{"unmatched", "404", 1},
	}
	for _, tt := range tests {
		got := testutil.ToFloat64(m.requests.WithLabelValues(tt.route, http.MethodGet, tt.status))
		if got != tt.want {
			t.Errorf("requests{route=%q,status=%s} = %v, want %v", tt.route, tt.status, got, tt.want)
		}
	}
	if got := testutil.ToFloat64(m.inFlight); got != 0 {
		t.Errorf("Expected no requests in flight, got %v", got)
	}
	if n := testutil.CollectAndCount(m.duration); n != 3 {
		t.Errorf("Expected 3 duration series, got %d", n)
	}
}

func TestMetricsHandlerDefaultsStatus(t *testing.T) {
	m, _ := newTestMetrics(t)

	r := chi.NewRouter()
	r.Use(m.Handler)
	r.Get("/quiet", func(w http.ResponseWriter, r *http.Request) {})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/quiet", nil))

	if got := testutil.ToFloat64(m.requests.WithLabelValues("/quiet", http.MethodGet, "200")); got != 1 {
		t.Errorf("Expected a handler that writes nothing to count as 200, got %v", got)
	}
}

func TestMetricsSessionCounters(t *testing.T) {
	m, reg := newTestMetrics(t)

	m.FrameSent(protocol.FrameOps)
	m.FrameSent(protocol.FrameOps)
	m.FrameSent(protocol.FrameError)
	m.EventReceived(true)
	m.EventReceived(false)
	m.HandshakeRejected(protocol.HandshakeServerBusy)
	m.WebSocketError(io.ErrUnexpectedEOF)
	m.WebSocketError(nil)

	if got := testutil.ToFloat64(m.framesSent.WithLabelValues(protocol.FrameOps.String())); got != 2 {
		t.Errorf("frames_sent{ops} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.events.WithLabelValues("dropped")); got != 1 {
		t.Errorf("events{dropped} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.handshakeReject.WithLabelValues(protocol.HandshakeServerBusy.String())); got != 1 {
		t.Errorf("handshake_rejections = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.wsErrors.WithLabelValues("decode")); got != 1 {
		t.Errorf("websocket_errors{decode} = %v, want 1", got)
	}

	want := `
# HELP test_session_events_total Host events received by delivery result
# TYPE test_session_events_total counter
test_session_events_total{result="delivered"} 1
test_session_events_total{result="dropped"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "test_session_events_total"); err != nil {
		t.Error(err)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	m.Handler(h).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	m.FrameSent(protocol.FrameOps)
	m.EventReceived(true)
	m.HandshakeRejected(protocol.HandshakeServerBusy)
	m.WebSocketError(errors.New("x"))
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{timeoutError{}, "timeout"},
		{&websocket.CloseError{Code: websocket.CloseProtocolError}, "unexpected_close"},
		{protocol.ErrInvalidFrameType, "decode"},
		{io.ErrUnexpectedEOF, "decode"},
		{net.ErrClosed, "closed"},
		{websocket.ErrCloseSent, "closed"},
		{context.Canceled, "internal"},
	}
	for _, tt := range tests {
		if got := categorizeError(tt.err); got != tt.want {
			t.Errorf("categorizeError(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
