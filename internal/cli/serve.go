package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	openke "github.com/lzw429/OpenKE-Embedding-Service"
	"github.com/lzw429/OpenKE-Embedding-Service/server"
)

func (a *app) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load a dataset and serve it over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	addDatasetFlags(cmd)

	f := cmd.Flags()
	f.String("addr", server.DefaultAddr, "listen address")
	f.Int64("max-inflight", 0, "maximum concurrent requests (0 = unlimited)")
	f.Float64("rps", 0, "request rate limit (0 = unlimited)")
	f.Int("burst", 0, "request rate burst")
	f.Duration("request-timeout", server.DefaultRequestTimeout, "per-request timeout")
	f.Bool("metrics", true, "expose Prometheus metrics on /metrics")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	var (
		mc      openke.MetricsCollector = openke.NoopMetricsCollector{}
		srvOpts []server.Option
	)
	if a.cfg.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		pc := server.NewPrometheusCollector(reg)
		mc = pc
		srvOpts = append(srvOpts, server.WithPrometheus(pc, reg))
	}

	cd, err := a.cfg.codec()
	if err != nil {
		return err
	}
	svc, err := a.openService(ctx, mc)
	if err != nil {
		return err
	}
	defer svc.Close()

	srvOpts = append(srvOpts,
		server.WithAddr(a.cfg.Addr),
		server.WithMaxInFlight(a.cfg.MaxInFlight),
		server.WithRateLimit(a.cfg.RPS, a.cfg.Burst),
		server.WithRequestTimeout(a.cfg.RequestTimeout),
		server.WithLogger(a.logger),
		server.WithCodec(cd),
	)
	return server.New(svc, srvOpts...).ListenAndServe(ctx)
}
