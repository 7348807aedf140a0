package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/retain/internal/bench"
	"github.com/vango-dev/retain/internal/demo"
	"github.com/vango-dev/retain/internal/errors"
)

type benchOptions struct {
	profile      string
	clients      int
	duration     time.Duration
	rps          float64
	list         int
	payloadBytes int
	url          string
	json         string
}

func benchCmd(g *globalFlags) *cobra.Command {
	var o benchOptions

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Load-test the todo program over WebSocket",
		Long: `Run concurrent WebSocket hosts against the todo program and report
round-trip latency, throughput, wire volume and GC cost.

Without --url an in-process server is started on a loopback port.
Flags override the selected profile.

Examples:
  retain bench --profile fast
  retain bench --clients 50 --duration 15s --json report.json
  retain bench --url ws://localhost:8080/ws`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd, g, o)
		},
	}

	cmd.Flags().StringVar(&o.profile, "profile", "standard", "Workload profile: fast, standard, stress")
	cmd.Flags().IntVar(&o.clients, "clients", 0, "Concurrent hosts (default from profile)")
	cmd.Flags().DurationVar(&o.duration, "duration", 0, "Run length, e.g. 30s (default from profile)")
	cmd.Flags().Float64Var(&o.rps, "rps", 0, "Events per second per host (default from profile)")
	cmd.Flags().IntVar(&o.list, "list", -1, "Items seeded per session (default from profile)")
	cmd.Flags().IntVar(&o.payloadBytes, "payload-bytes", 0, "Bytes typed per event (default from profile)")
	cmd.Flags().StringVar(&o.url, "url", "", "WebSocket endpoint of a running server")
	cmd.Flags().StringVar(&o.json, "json", "-", "Write the JSON report to a file, '-' for stdout, '' to skip")

	return cmd
}

func (o benchOptions) config() (bench.Config, error) {
	cfg, err := bench.FromProfile(o.profile)
	if err != nil {
		return cfg, err
	}
	if o.clients != 0 {
		cfg.Clients = o.clients
	}
	if o.duration != 0 {
		cfg.Duration = o.duration
	}
	if o.rps != 0 {
		cfg.RPS = o.rps
	}
	if o.list != -1 {
		cfg.ListSize = o.list
	}
	if o.payloadBytes != 0 {
		cfg.PayloadBytes = o.payloadBytes
	}
	return cfg, cfg.Validate()
}

func runBench(cmd *cobra.Command, g *globalFlags, o benchOptions) (err error) {
	bcfg, err := o.config()
	if err != nil {
		return errors.New("E700").WithDetail(err.Error()).
			WithSuggestion("Run 'retain bench --help' for the accepted flags")
	}

	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	if g.logLevel == "" {
		cfg.Log.Level = "warn"
	}
	logger := cfg.Logger(cmd.ErrOrStderr())

	url := o.url
	if url == "" {
		srv := newServer(cfg, logger, demo.Flags{})
		ln, lerr := net.Listen("tcp", "127.0.0.1:0")
		if lerr != nil {
			return errors.New("E200").Wrap(lerr)
		}
		httpSrv := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}
		go httpSrv.Serve(ln)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
			defer cancel()
			if serr := stderrors.Join(srv.Shutdown(ctx), httpSrv.Shutdown(ctx)); serr != nil && err == nil {
				err = errors.New("E201").Wrap(serr)
			}
		}()
		url = fmt.Sprintf("ws://%s%s", ln.Addr(), cfg.Server.WebSocketPath)
	}

	info(cmd, "Benchmarking %s with %d hosts for %s", url, bcfg.Clients, bcfg.Duration)
	report, err := bench.Run(cmd.Context(), url, bcfg, logger)
	if err != nil {
		return errors.New("E700").WithDetail(err.Error())
	}

	bench.WriteSummary(cmd.ErrOrStderr(), report)

	switch o.json {
	case "":
		return nil
	case "-":
		return bench.WriteJSON(cmd.OutOrStdout(), report)
	}
	f, ferr := os.Create(o.json)
	if ferr != nil {
		return errors.New("E501").Wrap(ferr)
	}
	if werr := stderrors.Join(bench.WriteJSON(f, report), f.Close()); werr != nil {
		return errors.New("E501").Wrap(werr)
	}
	success(cmd, "Wrote %s", o.json)
	return nil
}
