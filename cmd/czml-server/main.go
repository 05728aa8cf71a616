package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/signalsfoundry/czml-forge/internal/api"
	"github.com/signalsfoundry/czml-forge/internal/catalog"
	"github.com/signalsfoundry/czml-forge/internal/logging"
	"github.com/signalsfoundry/czml-forge/internal/observability"
	"github.com/signalsfoundry/czml-forge/internal/scenario"
)

func main() {
	httpAddr := flag.String("http-addr", ":8080", "TCP address the document service listens on")
	metricsAddr := flag.String("metrics-addr", ":9090", "HTTP address for Prometheus /metrics")
	scenarioPath := flag.String("scenario", "", "Optional JSON scenario to preload into the catalog")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}

	collector, err := observability.NewCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		os.Exit(1)
	}
	metricsSrv := serveMetrics(*metricsAddr, collector, log)

	cat := catalog.New(catalog.WithSizeRecorder(collector))
	trackDir := ""
	if *scenarioPath != "" {
		trackDir = filepath.Dir(*scenarioPath)
		if err := preloadScenario(ctx, cat, *scenarioPath, log); err != nil {
			log.Error(ctx, "failed to preload scenario", logging.String("path", *scenarioPath), logging.String("error", err.Error()))
			os.Exit(1)
		}
	}

	server := api.New(cat, collector, log, api.WithTrackDir(trackDir))
	srv := &http.Server{
		Addr:    *httpAddr,
		Handler: server.Routes(),
	}

	log.Info(ctx, "starting document service", logging.String("addr", *httpAddr))
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "document service exited", logging.String("error", err.Error()))
		}
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	<-stopCtx.Done()

	log.Info(ctx, "shutting down document service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)
}

func preloadScenario(ctx context.Context, cat *catalog.Catalog, path string, log logging.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scn, err := scenario.Parse(f)
	if err != nil {
		return err
	}
	summary, err := scn.Load(cat, filepath.Dir(path))
	if err != nil {
		return err
	}
	log.Info(ctx, "scenario preloaded",
		logging.String("path", path),
		logging.Int("entities", len(summary.EntityIDs)),
		logging.Int("geometries", len(summary.GeometryIDs)),
	)
	return nil
}

func serveMetrics(addr string, collector *observability.Collector, log logging.Logger) *http.Server {
	if collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
