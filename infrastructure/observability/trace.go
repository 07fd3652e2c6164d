package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/policykeeper/domain/fault"
)

// Attribute keys used on spans and metrics.
const (
	AttrPolicyID   = attribute.Key("policy.id")
	AttrApprovalID = attribute.Key("approval.id")
	AttrVersionID  = attribute.Key("version.id")
	AttrDecision   = attribute.Key("approval.decision")
	AttrOperation  = attribute.Key("operation")
	AttrErrorKind  = attribute.Key("error.kind")
)

// StartSpan starts an internal span for a service operation.
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// EndSpan records err on span, if any, and ends it. Domain errors are tagged
// with their kind.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if kind := fault.Kind(err); kind != nil {
			span.SetAttributes(AttrErrorKind.String(kind.Error()))
		}
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
