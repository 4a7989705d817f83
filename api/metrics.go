package api

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	moveRoute    = "/api/tasks/:id/move"
	moveSpanName = "tasks.move"
)

func tracer() trace.Tracer {
	return otel.Tracer("kanban-api/api")
}

// moveRequestMetrics accumulates per-request timings for the move route and
// emits them once, as a single log entry plus a span, when the request ends.
type moveRequestMetrics struct {
	logger         *log.Logger
	span           trace.Span
	start          time.Time
	authDuration   time.Duration
	engineDuration time.Duration
	sameColumn     bool
	errorStage     string
}

func newMoveRequestMetrics(ctx context.Context, logger *log.Logger) (*moveRequestMetrics, context.Context) {
	spanCtx, span := tracer().Start(ctx, moveSpanName)
	return &moveRequestMetrics{
		logger: logger,
		span:   span,
		start:  time.Now(),
	}, spanCtx
}

func (m *moveRequestMetrics) ObserveAuth(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.authDuration = duration
}

func (m *moveRequestMetrics) ObserveEngine(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.engineDuration = duration
}

func (m *moveRequestMetrics) SetSameColumn(same bool) {
	m.sameColumn = same
}

func (m *moveRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

func (m *moveRequestMetrics) Log(status int, err error) {
	if m == nil || m.logger == nil {
		return
	}

	total := time.Since(m.start)
	fields := log.Fields{
		"route":       moveRoute,
		"status":      status,
		"total_ms":    durationToMillis(total),
		"same_column": m.sameColumn,
	}
	if m.authDuration > 0 {
		fields["auth_ms"] = durationToMillis(m.authDuration)
	}
	if m.engineDuration > 0 {
		fields["engine_ms"] = durationToMillis(m.engineDuration)
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	if m.span != nil {
		m.span.SetAttributes(
			attribute.String("http.route", moveRoute),
			attribute.Int("http.status_code", status),
			attribute.Bool("kanban.move.same_column", m.sameColumn),
			attribute.Float64("kanban.move.total_ms", durationToMillis(total)),
		)
		if m.errorStage != "" {
			m.span.SetAttributes(attribute.String("kanban.move.error_stage", m.errorStage))
		}
		if err != nil {
			m.span.RecordError(err)
			m.span.SetStatus(codes.Error, err.Error())
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
		}
		m.span.End()
	}

	m.logger.WithFields(fields).Info("move.request.metrics")
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
