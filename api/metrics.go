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
	listEventName   = "items.list"
	listEventDomain = "contrack"
	listRoute       = "/items"
)

var tracer = otel.Tracer("contrack/api")

// listRequestMetrics accumulates timings for the item list path and emits a
// single structured event plus an otel span when the request finishes.
type listRequestMetrics struct {
	logger         *log.Logger
	span           trace.Span
	start          time.Time
	authDuration   time.Duration
	fetchDuration  time.Duration
	encodeDuration time.Duration
	filtered       bool
	itemsReturned  int
	errorStage     string
}

func newListRequestMetrics(ctx context.Context, logger *log.Logger) (*listRequestMetrics, context.Context) {
	spanCtx, span := tracer.Start(ctx, "GET "+listRoute)
	return &listRequestMetrics{
		logger: logger,
		span:   span,
		start:  time.Now(),
	}, spanCtx
}

func (m *listRequestMetrics) ObserveAuth(d time.Duration) {
	if d > 0 {
		m.authDuration = d
	}
}

func (m *listRequestMetrics) ObserveFetch(d time.Duration) {
	if d > 0 {
		m.fetchDuration = d
	}
}

func (m *listRequestMetrics) ObserveEncode(d time.Duration) {
	if d > 0 {
		m.encodeDuration = d
	}
}

func (m *listRequestMetrics) SetFiltered(filtered bool) {
	m.filtered = filtered
}

func (m *listRequestMetrics) SetItemsReturned(count int) {
	if count < 0 {
		count = 0
	}
	m.itemsReturned = count
}

func (m *listRequestMetrics) SetErrorStage(stage string) {
	if stage != "" {
		m.errorStage = stage
	}
}

// Log finishes the span and writes the observability event.
func (m *listRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	if m.span != nil {
		m.span.SetAttributes(
			attribute.String("http.route", listRoute),
			attribute.Int("http.status_code", status),
			attribute.Bool("contrack.items.filtered", m.filtered),
			attribute.Int("contrack.items.returned", m.itemsReturned),
		)
		if err != nil {
			m.span.SetStatus(codes.Error, err.Error())
		}
		m.span.End()
	}
	if m.logger == nil {
		return
	}

	fields := log.Fields{
		"event.name":     listEventName,
		"event.domain":   listEventDomain,
		"http.route":     listRoute,
		"http.status":    status,
		"total_ms":       durationToMillis(time.Since(m.start)),
		"filtered":       m.filtered,
		"items_returned": m.itemsReturned,
	}
	if m.authDuration > 0 {
		fields["auth_ms"] = durationToMillis(m.authDuration)
	}
	if m.fetchDuration > 0 {
		fields["fetch_ms"] = durationToMillis(m.fetchDuration)
	}
	if m.encodeDuration > 0 {
		fields["encode_ms"] = durationToMillis(m.encodeDuration)
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	m.logger.WithFields(fields).Info("observability.event")
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
