package telemetry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_http_request  = "http.request"
	report_http_response = "http.response"
	report_http_failed   = "http.failed"
)

var httpTracer = otel.Tracer("elms.telemetry.http")

// exchange is attached to the context of every request the hooks see.
type exchange struct {
	seq     uint64
	started time.Time
	span    trace.Span
}

type exchangeKey struct{}

func exchangeOf(ctx context.Context) (exchange, bool) {
	ex, ok := ctx.Value(exchangeKey{}).(exchange)
	return ex, ok
}

// InstrumentResty gives every request made by client a client span and a
// sequence number, and reports the request, its outcome and its latency
// to tel.
func InstrumentResty(client *resty.Client, tel API) {
	var seq atomic.Uint64

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		ctx, span := httpTracer.Start(
			req.Context(),
			"HTTP "+req.Method,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(semconv.HTTPRequestMethodKey.String(req.Method)),
		)
		ex := exchange{seq: seq.Add(1), started: time.Now(), span: span}
		req.SetContext(context.WithValue(ctx, exchangeKey{}, ex))
		tel.ReportDebug(report_http_request, ex.seq, req.Method, req.URL)
		return nil
	})

	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		ex, ok := exchangeOf(res.Request.Context())
		if !ok {
			return nil
		}
		defer ex.span.End()

		ex.span.SetAttributes(semconv.HTTPResponseStatusCode(res.StatusCode()))
		if raw := res.RawResponse; raw != nil && raw.Request != nil {
			// the final url, after redirects
			ex.span.SetAttributes(semconv.URLFull(raw.Request.URL.String()))
		}
		if res.StatusCode() >= 500 {
			ex.span.SetStatus(codes.Error, res.Status())
		}
		tel.ReportDebug(report_http_response, ex.seq, res.Status(), time.Since(ex.started).String())
		return nil
	})

	client.OnError(func(req *resty.Request, err error) {
		elapsed := time.Duration(0)
		if ex, ok := exchangeOf(req.Context()); ok {
			elapsed = time.Since(ex.started)
			ex.span.RecordError(err)
			ex.span.SetStatus(codes.Error, err.Error())
			ex.span.End()
		}
		tel.ReportWarning(report_http_failed, req.Method, req.URL, elapsed.String(), err)
	})
}
