package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/signalsfoundry/propagation-tool/core"
	"github.com/signalsfoundry/propagation-tool/internal/config"
	"github.com/signalsfoundry/propagation-tool/internal/logging"
	"github.com/signalsfoundry/propagation-tool/internal/observability"
	"github.com/signalsfoundry/propagation-tool/internal/rpc"
	"github.com/signalsfoundry/propagation-tool/internal/store"
	"github.com/signalsfoundry/propagation-tool/kb"
)

func main() {
	configPath := flag.String("config", "", "Path to a JSON or YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.Server.GRPCAddr), logging.Err(err))
		os.Exit(1)
	}

	if err := run(ctx, cfg, log, lis); err != nil {
		log.Error(ctx, "propagation server exited", logging.Err(err))
		os.Exit(1)
	}
}

// run serves the propagation service on lis until ctx is cancelled.
func run(ctx context.Context, cfg config.Config, log logging.Logger, lis net.Listener) error {
	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	reg := prometheus.NewRegistry()
	rpcMetrics, err := observability.NewRPCCollector(reg)
	if err != nil {
		return fmt.Errorf("rpc metrics: %w", err)
	}
	sweepMetrics, err := observability.NewSweepCollector(reg)
	if err != nil {
		return fmt.Errorf("sweep metrics: %w", err)
	}

	grounds := kb.NewDefaultCatalog()
	grounds.Subscribe(func(kb.Event) { rpcMetrics.SetGroundTypes(len(grounds.List())) })
	loadGrounds(ctx, log, grounds, cfg.Grounds)
	rpcMetrics.SetGroundTypes(len(grounds.List()))

	opts := []rpc.Option{
		rpc.WithSweepOptions(core.SweepOptions{Workers: cfg.Sweep.Workers, Observer: sweepMetrics}),
		rpc.WithArchiveRecorder(rpcMetrics),
	}
	if cfg.Store.Enabled {
		runs, err := store.Open(cfg.Store.Path, log)
		if err != nil {
			return err
		}
		defer runs.Close()
		opts = append(opts, rpc.WithRunStore(runs))
	}

	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			rpc.RequestIDUnaryServerInterceptor(log),
			rpc.TracingUnaryServerInterceptor(),
			rpcMetrics.UnaryServerInterceptor(),
		),
	)
	rpc.RegisterPropagationServiceServer(server, rpc.NewService(grounds, log, opts...))

	metricsSrv := serveMetrics(cfg.Server.MetricsAddr, rpcMetrics, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(lis)
	}()
	log.Info(ctx, "starting propagation gRPC server",
		logging.String("addr", lis.Addr().String()),
		logging.Bool("archive", cfg.Store.Enabled),
		logging.Int("workers", cfg.Sweep.Workers),
	)

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info(context.Background(), "shutting down propagation server")
		server.GracefulStop()
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}

	if serveErr != nil && !errors.Is(serveErr, grpc.ErrServerStopped) {
		return fmt.Errorf("serve: %w", serveErr)
	}
	return nil
}

func serveMetrics(addr string, collector *observability.RPCCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}

func loadGrounds(ctx context.Context, log logging.Logger, catalog *kb.GroundCatalog, path string) {
	if path == "" {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		log.Warn(ctx, "skipping ground catalog load", logging.String("path", path), logging.Err(err))
		return
	}
	defer f.Close()

	n, err := catalog.Load(f)
	if err != nil {
		log.Warn(ctx, "failed to parse ground catalog", logging.String("path", path), logging.Err(err))
		return
	}
	log.Info(ctx, "loaded ground types",
		logging.String("path", path),
		logging.Int("count", n),
	)
}
