package telemetry

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/lmittmann/tint"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// InitSlog installs the default logger: tinted text on stderr, or json
// lines when the logs are collected by something else.
func InitSlog(json bool, level slog.Level) {
	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	}
	slog.SetDefault(slog.New(handler))
}

// SlogAPI writes reports to a slog logger. Counts are also recorded on the
// global meter so they reach the metrics exporter when one is set up.
type SlogAPI struct {
	logger *slog.Logger
	counts metric.Int64Gauge
}

// NewSlogAPI logs to logger, or to the default logger when it is nil.
func NewSlogAPI(logger *slog.Logger) SlogAPI {
	if logger == nil {
		logger = slog.Default()
	}
	counts, err := otel.Meter("elms.telemetry").Int64Gauge("report_count")
	if err != nil {
		logger.Warn("create report_count gauge", "err", err)
	}
	return SlogAPI{logger: logger, counts: counts}
}

func paramAttrs(params []any) []any {
	attrs := make([]any, len(params))
	for i, p := range params {
		attrs[i] = slog.Any("p"+strconv.Itoa(i), p)
	}
	return attrs
}

func (s SlogAPI) ReportBroken(id string, params ...any) {
	s.logger.Error(id, slog.Group("params", paramAttrs(params)...))
}

func (s SlogAPI) ReportWarning(id string, params ...any) {
	s.logger.Warn(id, slog.Group("params", paramAttrs(params)...))
}

func (s SlogAPI) ReportDebug(msg string, params ...any) {
	s.logger.Debug(msg, paramAttrs(params)...)
}

func (s SlogAPI) ReportCount(id string, count int64) {
	s.logger.Info(id, "count", count)
	if s.counts != nil {
		s.counts.Record(context.Background(), count, metric.WithAttributes(attribute.String("id", id)))
	}
}
