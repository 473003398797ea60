package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"elms-extractor/internal/components/chrono"
	"elms-extractor/internal/components/telemetry"
	"elms-extractor/internal/scrapers/elms"
	"elms-extractor/internal/service"
	"elms-extractor/internal/sessioncache"
	"elms-extractor/pkg/configutil"
	"elms-extractor/pkg/serviceutil"

	"connectrpc.com/connect"
)

func initTelemetry(ctx context.Context) telemetry.Telemetry {
	t, err := telemetry.SetupFromEnv(ctx, "elmsd")
	if errors.Is(err, os.ErrNotExist) {
		slog.Info("telemetry.json5 not found, traces and metrics will not be exported")
		return telemetry.Telemetry{}
	}
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	telemetry.InstrumentPerfStats(ctx, time.Second*30)
	return t
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging.")
	flag.Parse()

	ctx, stop := serviceutil.SignalContext()
	defer stop()

	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		serviceutil.Fatal("read config", err)
	}
	cfg = cfg.withDefaults()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	telemetry.InitSlog(cfg.LogJson, level)

	otlp := initTelemetry(ctx)
	defer otlp.Shutdown(context.Background())

	tel := telemetry.NewSlogAPI(nil)

	client, err := elms.NewClient(cfg.Scraper.Options(cfg.BaseUrl), tel)
	if err != nil {
		serviceutil.Fatal("create elms client", err)
	}

	cache := sessioncache.New[*elms.Session](cfg.ttl(), chrono.StandardImpl{}, tel)
	cron := chrono.NewStandardCron(tel)
	err = cache.ScheduleCleanup(cron, cfg.cleanupInterval())
	if err != nil {
		serviceutil.Fatal("schedule session cleanup", err)
	}

	otelInterceptor, err := serviceutil.OtelInterceptor()
	if err != nil {
		serviceutil.Fatal("create otel interceptor", err)
	}
	mux := service.NewMux(
		service.NewService(client, cache, tel),
		connect.WithInterceptors(otelInterceptor),
	)

	slog.Info("serving", "base_url", cfg.BaseUrl, "session_ttl", cfg.ttl().String())
	err = serviceutil.Serve(ctx, cfg.Port, mux)
	<-cron.Stop().Done()
	if err != nil {
		serviceutil.Fatal("serve", err)
	}
}
