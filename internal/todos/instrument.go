package todos

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	gatewayOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_gateway_operations_total",
			Help: "Total number of todo store operations by outcome",
		},
		[]string{"op", "outcome"},
	)

	gatewayOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "todo_gateway_operation_duration_seconds",
			Help:    "Histogram of todo store operation durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(gatewayOpsTotal, gatewayOpDuration)
}

type instrumented struct {
	next   Gateway
	logger *slog.Logger
	tracer trace.Tracer
}

// Instrument wraps g so every call is traced, counted and logged at debug.
func Instrument(g Gateway, logger *slog.Logger) Gateway {
	return &instrumented{
		next:   g,
		logger: logger,
		tracer: otel.Tracer("todo-gateway"),
	}
}

func (i *instrumented) observe(ctx context.Context, op, id string, call func(context.Context) error) error {
	ctx, span := i.tracer.Start(ctx, "gateway."+op)
	defer span.End()
	if id != "" {
		span.SetAttributes(attribute.String("todo.id", id))
	}

	start := time.Now()
	err := call(ctx)
	dur := time.Since(start)

	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
	}
	span.SetAttributes(attribute.String("gateway.outcome", outcome))

	gatewayOpsTotal.WithLabelValues(op, outcome).Inc()
	gatewayOpDuration.WithLabelValues(op).Observe(dur.Seconds())

	i.logger.DebugContext(ctx, "gateway_call",
		slog.String("op", op),
		slog.String("id", id),
		slog.String("outcome", outcome),
		slog.Float64("duration_ms", float64(dur.Microseconds())/1000.0),
	)
	return err
}

func (i *instrumented) List(ctx context.Context) ([]Todo, error) {
	var out []Todo
	err := i.observe(ctx, "list", "", func(ctx context.Context) error {
		var err error
		out, err = i.next.List(ctx)
		return err
	})
	return out, err
}

func (i *instrumented) Create(ctx context.Context, t Todo) error {
	return i.observe(ctx, "create", t.ID, func(ctx context.Context) error {
		return i.next.Create(ctx, t)
	})
}

func (i *instrumented) Read(ctx context.Context, id string) (Todo, error) {
	var out Todo
	err := i.observe(ctx, "read", id, func(ctx context.Context) error {
		var err error
		out, err = i.next.Read(ctx, id)
		return err
	})
	return out, err
}

func (i *instrumented) Replace(ctx context.Context, t Todo) error {
	return i.observe(ctx, "replace", t.ID, func(ctx context.Context) error {
		return i.next.Replace(ctx, t)
	})
}

func (i *instrumented) Delete(ctx context.Context, id string) error {
	return i.observe(ctx, "delete", id, func(ctx context.Context) error {
		return i.next.Delete(ctx, id)
	})
}
