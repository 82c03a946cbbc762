package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/hugr-lab/airport-openapi"
	"github.com/hugr-lab/airport-openapi/internal/tracing"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the REST service as an Airport Flight endpoint",
	Long: `serve starts an Arrow Flight server that DuckDB's Airport extension can
attach to:

  ATTACH '' AS api (TYPE airport, LOCATION 'grpc://localhost:50051');
  SELECT * FROM api.s1.orders WHERE status = 'open';

With --metrics-addr set, Prometheus metrics are served on /metrics.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.String("listen", ":50051", "Flight gRPC listen address")
	f.String("address", "", "address advertised in endpoint locations (default: none)")
	f.String("metrics-addr", "", "HTTP address for /metrics (default: disabled)")
	f.String("flight-token", "", "bearer token Flight clients must present")
	f.String("tracing-exporter", "none", "OpenTelemetry exporter: none or stdout")

	mustBindPFlag("server.listen", f.Lookup("listen"))
	mustBindPFlag("server.address", f.Lookup("address"))
	mustBindPFlag("server.metrics_addr", f.Lookup("metrics-addr"))
	mustBindPFlag("server.flight_token", f.Lookup("flight-token"))
	mustBindPFlag("tracing.exporter", f.Lookup("tracing-exporter"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := slog.Default()

	tp, shutdownTracing, err := tracing.Setup(cmd.Context(), tracing.Config{
		Exporter:       cfg.Tracing.Exporter,
		SampleRatio:    cfg.Tracing.SampleRatio,
		ServiceVersion: Version,
	}, logger)
	if err != nil {
		return err
	}
	defer shutdownTracing()

	cfg.Remote.Logger = logger
	cfg.Remote.TracerProvider = tp
	cfg.Connector.Logger = logger

	cat, closeCatalog, err := airport.NewRemoteCatalog(cfg.Remote, cfg.Connector)
	if err != nil {
		return fmt.Errorf("connect catalog: %w", err)
	}
	defer closeCatalog()

	serverCfg := airport.ServerConfig{
		Catalog:        cat,
		Logger:         logger,
		Address:        cfg.Server.Address,
		MaxMessageSize: cfg.Server.MaxMessageSize,
	}
	if cfg.Server.FlightToken != "" {
		serverCfg.Auth = airport.StaticToken(cfg.Server.FlightToken, "flight-client")
	}

	grpcServer := grpc.NewServer(airport.ServerOptions(serverCfg)...)
	if err := airport.NewServer(grpcServer, serverCfg); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("flight listen: %w", err)
	}

	g, gCtx := errgroup.WithContext(cmd.Context())

	g.Go(func() error {
		logger.Info("Flight server started",
			"listen", ln.Addr().String(),
			"base_url", cfg.Remote.BaseURL,
			"auth", cfg.Server.FlightToken != "",
		)
		if err := grpcServer.Serve(ln); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("flight server: %w", err)
		}
		return nil
	})

	var httpServer *http.Server
	if cfg.Server.MetricsAddr != "" {
		r := chi.NewRouter()
		r.Use(chimiddleware.Recoverer)
		r.Handle("/metrics", promhttp.Handler())
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		httpServer = &http.Server{
			Addr:              cfg.Server.MetricsAddr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			mln, err := net.Listen("tcp", cfg.Server.MetricsAddr)
			if err != nil {
				return fmt.Errorf("metrics listen: %w", err)
			}
			logger.Info("Metrics server started", "addr", mln.Addr().String())
			if err := httpServer.Serve(mln); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down")

		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(shutdownTimeout):
			grpcServer.Stop()
		}

		if httpServer == nil {
			return nil
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
