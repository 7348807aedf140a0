package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vango-dev/retain/internal/config"
	"github.com/vango-dev/retain/internal/demo"
	"github.com/vango-dev/retain/internal/errors"
	"github.com/vango-dev/retain/pkg/live"
	"github.com/vango-dev/retain/pkg/middleware"
	"github.com/vango-dev/retain/pkg/program"
	"github.com/vango-dev/retain/pkg/server"
	"github.com/vango-dev/retain/pkg/vdom"
)

type serveOptions struct {
	host    string
	port    int
	items   []string
	clock   bool
	metrics bool
}

func serveCmd(g *globalFlags) *cobra.Command {
	var o serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the todo program over WebSocket",
		Long: `Serve the todo program to remote hosts.

Every WebSocket connection runs its own program instance. The page at /
holds a server-rendered snapshot and loads the host script that opens
the live connection.

Examples:
  retain serve
  retain serve --port=9000 --item "buy milk" --item "walk dog"
  retain serve --metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, g, o)
		},
	}

	cmd.Flags().StringVarP(&o.host, "host", "H", "", "Host to bind to (default from "+config.ConfigFileName+")")
	cmd.Flags().IntVarP(&o.port, "port", "p", 0, "Port to listen on (default from "+config.ConfigFileName+")")
	cmd.Flags().StringArrayVar(&o.items, "item", nil, "Seed the list with an item (repeatable)")
	cmd.Flags().BoolVar(&o.clock, "clock", false, "Start with the clock shown")
	cmd.Flags().BoolVar(&o.metrics, "metrics", false, "Expose Prometheus metrics")

	return cmd
}

func runServe(cmd *cobra.Command, g *globalFlags, o serveOptions) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	if o.host != "" {
		cfg.Server.Host = o.host
	}
	if o.port > 0 {
		cfg.Server.Port = o.port
	}
	if o.metrics {
		cfg.Metrics.Enabled = true
	}

	logger := cfg.Logger(cmd.ErrOrStderr())
	srv := newServer(cfg, logger, demo.Flags{Items: o.items, Clock: o.clock})

	ln, err := net.Listen("tcp", cfg.Address())
	if err != nil {
		return errors.New("E200").Wrap(err).
			WithSuggestion("Pick another port with --port or stop the process using " + cfg.Address())
	}

	httpSrv := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpSrv.Serve(ln)
	}()

	success(cmd, "Serving on http://%s", ln.Addr())
	info(cmd, "WebSocket endpoint: %s", cfg.Server.WebSocketPath)
	if cfg.Metrics.Enabled {
		info(cmd, "Metrics: %s", cfg.Metrics.Path)
	}

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !stderrors.Is(err, http.ErrServerClosed) {
			return errors.New("E200").Wrap(err)
		}
		return nil
	}

	info(cmd, "Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()

	// http.Server.Shutdown does not wait for hijacked connections.
	sessErr := srv.Shutdown(shutdownCtx)
	httpErr := httpSrv.Shutdown(shutdownCtx)
	if err := stderrors.Join(sessErr, httpErr); err != nil {
		return errors.New("E201").Wrap(err)
	}
	success(cmd, "Stopped")
	return nil
}

// newServer wires the todo program into a live server. Hosts that send no
// flags in their ClientHello get the seed flags.
func newServer(cfg *config.Config, logger *slog.Logger, seed demo.Flags) *server.Server {
	seedJSON, _ := json.Marshal(seed)

	opts := []program.Option{
		program.WithLogger(logger),
		program.WithCoalescing(cfg.Runtime.Coalesce),
	}
	srvOpts := []server.Option{
		server.WithLogger(logger),
		server.WithInitialView(func(*http.Request) *vdom.Node {
			m, _ := demo.Init(seed)
			return demo.View(m)
		}),
		server.WithMiddleware(middleware.OpenTelemetry(
			middleware.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != "/healthz" && r.URL.Path != cfg.Metrics.Path
			}),
		)),
	}

	var reg *prometheus.Registry
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, program.WithMetrics(program.NewMetrics(
			program.WithNamespace(cfg.Metrics.Namespace),
			program.WithRegistry(reg),
		)))
		m := middleware.NewMetrics(
			middleware.WithNamespace(cfg.Metrics.Namespace),
			middleware.WithRegistry(reg),
		)
		srvOpts = append(srvOpts,
			server.WithMiddleware(m.Handler),
			server.WithObserver(m),
			server.WithHandler(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})),
		)
	}

	base := server.FromProgram(demo.Program(), opts...)
	factory := func(b live.Binding, flags json.RawMessage) server.Runner {
		if len(flags) == 0 {
			flags = seedJSON
		}
		return base(b, flags)
	}

	srv := server.New(factory, cfg.ServerConfig(), srvOpts...)
	if reg != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: cfg.Metrics.Namespace,
			Subsystem: "server",
			Name:      "sessions_active",
			Help:      "Number of live WebSocket sessions",
		}, func() float64 { return float64(srv.Active()) }))
	}
	return srv
}
