package ai

import (
	"context"
	"errors"
	"time"

	"character-chat/backend/internal/transcript"
	"character-chat/backend/pkg/resilience"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	outcomeSuccess  = "success"
	outcomeError    = "error"
	outcomeRejected = "rejected"
)

// InstrumentedCompleter records a span, a request counter and a latency histogram per call
type InstrumentedCompleter struct {
	next     Completer
	tracer   trace.Tracer
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func NewInstrumentedCompleter(next Completer, meter metric.Meter, tracer trace.Tracer) (*InstrumentedCompleter, error) {
	requests, err := meter.Int64Counter("completion.requests",
		metric.WithDescription("Completion calls by outcome"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("completion.duration",
		metric.WithDescription("Completion call latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedCompleter{
		next:     next,
		tracer:   tracer,
		requests: requests,
		duration: duration,
	}, nil
}

func (c *InstrumentedCompleter) Complete(ctx context.Context, turns []transcript.Turn) (string, error) {
	ctx, span := c.tracer.Start(ctx, "completion.complete",
		trace.WithAttributes(attribute.Int("completion.turns", len(turns))),
	)
	defer span.End()

	start := time.Now()
	reply, err := c.next.Complete(ctx, turns)

	outcome := outcomeSuccess
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		outcome = outcomeRejected
	case err != nil:
		outcome = outcomeError
	}

	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	c.requests.Add(ctx, 1, attrs)
	c.duration.Record(ctx, time.Since(start).Seconds(), attrs)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.Int("completion.reply_length", len(reply)))
	return reply, nil
}
