package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/retain/pkg/live"
	"github.com/vango-dev/retain/pkg/program"
	"github.com/vango-dev/retain/pkg/protocol"
	"github.com/vango-dev/retain/pkg/render"
	"github.com/vango-dev/retain/pkg/vdom"
)

// Runner is a program runtime as the server drives it.
type Runner interface {
	ID() string
	Run(ctx context.Context) error
}

// Factory creates the runtime for one connection. flags comes from the
// host's ClientHello and may be nil.
type Factory func(b live.Binding, flags json.RawMessage) Runner

// FromProgram returns a Factory running p with opts. The ClientHello flags
// are passed to Init.
func FromProgram[M, Msg any](p program.Program[M, Msg], opts ...program.Option) Factory {
	return func(b live.Binding, flags json.RawMessage) Runner {
		o := append(opts[:len(opts):len(opts)], program.WithFlags(flags))
		return program.New(p, b, o...)
	}
}

// Server serves programs to remote hosts.
type Server struct {
	factory  Factory
	config   *Config
	upgrader websocket.Upgrader
	logger   *slog.Logger
	renderer *render.Renderer

	initialView func(*http.Request) *vdom.Node
	routes      []route
	middleware  []func(http.Handler) http.Handler
	observer    Observer

	active atomic.Int64
	wg     sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

type route struct {
	pattern string
	handler http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithInitialView renders fn's result into the served page for first
// paint. The live tree replaces it once the host connects.
func WithInitialView(fn func(*http.Request) *vdom.Node) Option {
	return func(s *Server) {
		s.initialView = fn
	}
}

// WithHandler mounts h at pattern on the server's router, e.g. a metrics
// endpoint or the host script.
func WithHandler(pattern string, h http.Handler) Option {
	return func(s *Server) {
		s.routes = append(s.routes, route{pattern: pattern, handler: h})
	}
}

// WithMiddleware adds router middleware run after the built-in request ID,
// logging and recovery middleware.
func WithMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(s *Server) {
		s.middleware = append(s.middleware, mw...)
	}
}

// WithObserver reports session traffic to o.
func WithObserver(o Observer) Option {
	return func(s *Server) {
		if o != nil {
			s.observer = o
		}
	}
}

// New creates a server running factory for each connection.
func New(factory Factory, config *Config, opts ...Option) *Server {
	config = config.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		factory:  factory,
		config:   config,
		logger:   slog.Default(),
		observer: nopObserver{},
		renderer: render.NewRenderer(render.RendererConfig{}),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "server")
	s.upgrader = websocket.Upgrader{
		HandshakeTimeout: config.HandshakeTimeout,
		CheckOrigin:      config.CheckOrigin,
	}
	return s
}

// Active returns the number of connected sessions.
func (s *Server) Active() int {
	return int(s.active.Load())
}

// Handler returns the HTTP handler serving the page, the WebSocket
// endpoint, /healthz and every route added with WithHandler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)
	r.Use(s.middleware...)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Get(s.config.WebSocketPath, s.HandleWebSocket)
	r.Get("/", s.servePage)
	for _, rt := range s.routes {
		r.Handle(rt.pattern, rt.handler)
	}
	return r
}

func (s *Server) servePage(w http.ResponseWriter, r *http.Request) {
	var body *vdom.Node
	if s.initialView != nil {
		body = s.initialView(r)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := s.renderer.RenderPage(w, render.PageData{
		Title:        s.config.Title,
		Body:         body,
		StyleSheets:  s.config.StyleSheets,
		ClientScript: s.config.ClientScript,
		Endpoint:     s.config.WebSocketPath,
	})
	if err != nil {
		s.logger.Error("page render failed", "error", err)
	}
}

// HandleWebSocket upgrades the request and serves one runtime until either
// side stops.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		s.observer.WebSocketError(err)
		return
	}
	conn.SetReadLimit(s.config.MaxMessageSize)

	hello, status := s.readHello(conn)
	if status == protocol.HandshakeOK && s.config.MaxSessions > 0 && s.Active() >= s.config.MaxSessions {
		status = protocol.HandshakeServerBusy
	}
	if status != protocol.HandshakeOK {
		s.logger.Warn("handshake rejected", "status", status, "remote", r.RemoteAddr)
		s.observer.HandshakeRejected(status)
		s.reject(conn, status)
		return
	}

	s.active.Add(1)
	s.wg.Add(1)
	defer func() {
		s.active.Add(-1)
		s.wg.Done()
	}()

	sess := newSession(conn, s.config, s.logger, s.observer)
	sess.binding = NewRemoteBinding(sess.sendOps)
	runner := s.factory(sess.binding, hello.Flags)
	sess.logger = s.logger.With("session_id", runner.ID(), "request_id", middleware.GetReqID(r.Context()))

	if err := sess.write(protocol.FrameHandshake, 0, protocol.EncodeServerHello(&protocol.ServerHello{
		Status:    protocol.HandshakeOK,
		ProgramID: runner.ID(),
	})); err != nil {
		sess.logger.Error("handshake write failed", "error", err)
		sess.close(protocol.CloseError, "handshake failed")
		return
	}
	conn.SetReadDeadline(time.Time{})
	sess.logger.Info("session started")

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- runner.Run(ctx) }()
	go sess.heartbeat(ctx)

	readDone := make(chan struct{})
	go func() {
		sess.readLoop()
		close(readDone)
	}()

	select {
	case err := <-runDone:
		reason, msg := protocol.CloseNormal, ""
		switch {
		case err != nil:
			reason, msg = protocol.CloseError, err.Error()
			sess.logger.Error("runtime failed", "error", err)
		case s.ctx.Err() != nil:
			reason = protocol.CloseServerShutdown
		}
		sess.close(reason, msg)
		<-readDone

	case <-readDone:
		// Close first so the runtime's teardown batches are dropped
		sess.close(protocol.CloseGoingAway, "")
		cancel()
		if err := <-runDone; err != nil {
			sess.logger.Error("runtime failed", "error", err)
		}
	}
}

// readHello waits for the ClientHello.
func (s *Server) readHello(conn *websocket.Conn) (*protocol.ClientHello, protocol.HandshakeStatus) {
	conn.SetReadDeadline(time.Now().Add(s.config.HandshakeTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		s.logger.Warn("handshake read failed", "error", err)
		return nil, protocol.HandshakeInvalidFormat
	}
	frame, err := protocol.DecodeFrame(msg)
	if err != nil || frame.Type != protocol.FrameHandshake {
		return nil, protocol.HandshakeInvalidFormat
	}
	hello, err := protocol.DecodeClientHello(frame.Payload)
	if err != nil {
		return nil, protocol.HandshakeInvalidFormat
	}
	if !hello.Version.Compatible() {
		return nil, protocol.HandshakeVersionMismatch
	}
	return hello, protocol.HandshakeOK
}

func (s *Server) reject(conn *websocket.Conn, status protocol.HandshakeStatus) {
	frame := protocol.NewFrame(protocol.FrameHandshake, protocol.EncodeServerHello(&protocol.ServerHello{Status: status}))
	conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	conn.WriteMessage(websocket.BinaryMessage, frame.Encode())
	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, status.String()),
		time.Now().Add(time.Second),
	)
	conn.Close()
}

// Shutdown stops every runtime and waits for their sessions to close or ctx
// to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
