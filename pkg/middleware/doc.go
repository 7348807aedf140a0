// Package middleware provides observability middleware for the retain
// server.
//
// Metrics records HTTP requests under their chi route pattern and, as a
// server.Observer, counts WebSocket frames, host events, rejected
// handshakes and connection errors:
//
//	reg := prometheus.NewRegistry()
//	m := middleware.NewMetrics(middleware.WithRegistry(reg))
//	srv := server.New(factory, cfg,
//	    server.WithMiddleware(m.Handler),
//	    server.WithObserver(m),
//	    server.WithHandler("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
//	)
//
// OpenTelemetry opens a server span per request using the global tracer
// provider unless WithTracer is given:
//
//	server.WithMiddleware(middleware.OpenTelemetry(
//	    middleware.WithFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/healthz"
//	    }),
//	))
package middleware
