package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/felixgeelhaar/policykeeper/domain/fault"
)

// Metrics defines the interface for metrics recording.
type Metrics interface {
	RecordApprovalDecision(ctx context.Context, decision string)
	RecordVersionCreated(ctx context.Context, source string)
	RecordStatusTransition(ctx context.Context, from, to string)
	RecordOperation(ctx context.Context, operation string, duration time.Duration, err error)
}

// MetricsProvider records service metrics through OpenTelemetry instruments.
type MetricsProvider struct {
	decisions   metric.Int64Counter
	versions    metric.Int64Counter
	transitions metric.Int64Counter
	errors      metric.Int64Counter
	duration    metric.Float64Histogram
}

// NewMetricsProvider creates the instruments on a meter from mp.
func NewMetricsProvider(mp metric.MeterProvider, scope string) (*MetricsProvider, error) {
	meter := mp.Meter(scope)
	m := &MetricsProvider{}

	var err error
	m.decisions, err = meter.Int64Counter(
		"policy.approval.decisions",
		metric.WithDescription("Approval requests approved, rejected or revoked"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}

	m.versions, err = meter.Int64Counter(
		"policy.versions.created",
		metric.WithDescription("Policy versions appended to history"),
		metric.WithUnit("{version}"),
	)
	if err != nil {
		return nil, err
	}

	m.transitions, err = meter.Int64Counter(
		"policy.status.transitions",
		metric.WithDescription("Policy status transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	m.errors, err = meter.Int64Counter(
		"policy.operation.errors",
		metric.WithDescription("Failed service operations by error kind"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	m.duration, err = meter.Float64Histogram(
		"policy.operation.duration",
		metric.WithDescription("Duration of service operations"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordApprovalDecision counts an approval decision.
func (m *MetricsProvider) RecordApprovalDecision(ctx context.Context, decision string) {
	m.decisions.Add(ctx, 1, metric.WithAttributes(AttrDecision.String(decision)))
}

// RecordVersionCreated counts a new version. source is create, next or rollback.
func (m *MetricsProvider) RecordVersionCreated(ctx context.Context, source string) {
	m.versions.Add(ctx, 1, metric.WithAttributes(attribute.String("version.source", source)))
}

// RecordStatusTransition counts a policy status change.
func (m *MetricsProvider) RecordStatusTransition(ctx context.Context, from, to string) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status.from", from),
		attribute.String("status.to", to),
	))
}

// RecordOperation records the duration of an operation and counts failures.
func (m *MetricsProvider) RecordOperation(ctx context.Context, operation string, duration time.Duration, err error) {
	m.duration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(
		AttrOperation.String(operation),
		attribute.Bool("success", err == nil),
	))
	if err == nil {
		return
	}
	kind := "infrastructure"
	if k := fault.Kind(err); k != nil {
		kind = k.Error()
	}
	m.errors.Add(ctx, 1, metric.WithAttributes(
		AttrOperation.String(operation),
		AttrErrorKind.String(kind),
	))
}

// NoopMetricsProvider discards all measurements.
type NoopMetricsProvider struct{}

// RecordApprovalDecision is a no-op.
func (NoopMetricsProvider) RecordApprovalDecision(context.Context, string) {}

// RecordVersionCreated is a no-op.
func (NoopMetricsProvider) RecordVersionCreated(context.Context, string) {}

// RecordStatusTransition is a no-op.
func (NoopMetricsProvider) RecordStatusTransition(context.Context, string, string) {}

// RecordOperation is a no-op.
func (NoopMetricsProvider) RecordOperation(context.Context, string, time.Duration, error) {}

var (
	_ Metrics = (*MetricsProvider)(nil)
	_ Metrics = NoopMetricsProvider{}
)
