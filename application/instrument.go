package application

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/felixgeelhaar/policykeeper/domain/event"
	"github.com/felixgeelhaar/policykeeper/domain/fault"
	"github.com/felixgeelhaar/policykeeper/infrastructure/logging"
	"github.com/felixgeelhaar/policykeeper/infrastructure/observability"
)

// instrument wraps every service operation in a span, an operation metric
// and a failure log line.
type instrument struct {
	Config
	component string
}

func newInstrument(component string, opts []Option) instrument {
	return instrument{Config: newConfig(opts), component: component}
}

// begin starts an operation. The returned func must be deferred with the
// address of the operation's named error.
func (in instrument) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	start := time.Now()
	name := in.component + "." + op
	attrs = append(attrs, observability.AttrOperation.String(name))
	ctx, span := observability.StartSpan(ctx, in.Tracer, name, attrs...)

	return ctx, func(errp *error) {
		err := *errp
		observability.EndSpan(span, err)
		in.Metrics.RecordOperation(ctx, name, time.Since(start), err)
		if err == nil {
			return
		}

		entry := logging.Error()
		if fault.Kind(err) != nil {
			entry = logging.Debug()
		}
		entry.
			Add(logging.Component(in.component)).
			Add(logging.Operation(op)).
			Add(logging.Duration(time.Since(start))).
			Add(logging.ErrorField(err)).
			Msg("operation failed")
	}
}

// emit publishes one audit event. Failures are logged; the mutation the
// event describes has already been committed.
func (in instrument) emit(ctx context.Context, policyID string, typ event.Type, actor string, payload any) {
	if in.Publisher == nil {
		return
	}

	e, err := event.NewEvent(policyID, typ, actor, payload)
	if err == nil {
		err = in.Publisher.Publish(ctx, e)
	}
	if err != nil {
		logging.Warn().
			Add(logging.Component(in.component)).
			Add(logging.PolicyID(policyID)).
			Add(logging.Str("event_type", string(typ))).
			Add(logging.ErrorField(err)).
			Msg("audit event not published")
	}
}
