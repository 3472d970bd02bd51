package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"gridexport/internal/infrastructure"
)

// OTelMiddleware opens a server span per request, continuing any incoming
// W3C trace context, and records the http_requests_* instruments. Metrics
// are labelled with the chi route pattern so export and artifact paths
// do not explode cardinality.
type OTelMiddleware struct {
	tracer  trace.Tracer
	metrics *infrastructure.HTTPMetrics
	logger  *slog.Logger
}

func NewOTelMiddleware(providers *infrastructure.OTelProviders) (*OTelMiddleware, error) {
	metrics, err := infrastructure.CreateHTTPMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create http metrics: %w", err)
	}
	return &OTelMiddleware{tracer: providers.Tracer, metrics: metrics, logger: providers.Logger}, nil
}

func (m *OTelMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := m.startSpan(r)
		defer span.End()

		m.metrics.ActiveRequests.Add(ctx, 1)
		defer m.metrics.ActiveRequests.Add(ctx, -1)

		r = r.WithContext(ctx)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		m.finish(ctx, span, r, statusOf(ww), ww.BytesWritten(), time.Since(start))
	})
}

func (m *OTelMiddleware) startSpan(r *http.Request) (context.Context, trace.Span) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := m.tracer.Start(ctx, r.Method+" "+r.URL.Path,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(r.Method),
			semconv.URLPathKey.String(r.URL.Path),
			semconv.ServerAddressKey.String(r.Host),
			semconv.UserAgentOriginalKey.String(r.UserAgent()),
			semconv.HTTPRequestBodySizeKey.Int64(r.ContentLength),
			semconv.ClientAddressKey.String(GetRealIP(r)),
		))
	if sc := span.SpanContext(); sc.IsValid() {
		ctx = infrastructure.WithTraceID(ctx, sc.TraceID().String())
	}
	return ctx, span
}

// finish runs after routing, when the matched pattern is known
func (m *OTelMiddleware) finish(ctx context.Context, span trace.Span, r *http.Request, status, size int, elapsed time.Duration) {
	route := routePattern(r)

	labels := metric.WithAttributes(
		attribute.String("method", r.Method),
		attribute.String("route", route),
		attribute.Int("status_code", status),
	)
	m.metrics.RequestsTotal.Add(ctx, 1, labels)
	m.metrics.RequestDuration.Record(ctx, elapsed.Seconds(), labels)

	span.SetName(r.Method + " " + route)
	span.SetAttributes(
		semconv.HTTPRouteKey.String(route),
		semconv.HTTPResponseStatusCodeKey.Int(status),
		semconv.HTTPResponseBodySizeKey.Int(size),
	)
	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// WebSocket wraps the /ws upgrade in a child span. The connection outlives
// the span; only the handshake is traced.
func (m *OTelMiddleware) WebSocket(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		ctx, span := m.tracer.Start(r.Context(), "websocket_upgrade",
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRouteKey.String(r.URL.Path),
				attribute.String("connection.type", "websocket"),
				attribute.String("origin", origin),
			))
		defer span.End()

		m.logger.DebugContext(ctx, "WebSocket upgrade attempt",
			slog.String("origin", origin),
			slog.String("remote_addr", GetRealIP(r)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
