// Package notification forwards recorded audit events to webhook endpoints.
//
// Deliveries are JSON arrays of events, signed with HMAC-SHA256 when the
// endpoint has a secret, retried on server errors and isolated per endpoint
// by a circuit breaker.
package notification

import (
	"errors"
	"strings"

	"github.com/felixgeelhaar/policykeeper/domain/event"
)

var (
	// ErrEndpointUnavailable indicates the webhook endpoint is not reachable.
	ErrEndpointUnavailable = errors.New("webhook endpoint unavailable")

	// ErrEndpointRejected indicates the endpoint answered with a 4xx status.
	ErrEndpointRejected = errors.New("webhook endpoint rejected delivery")

	// ErrNotifierClosed indicates the notifier has been closed.
	ErrNotifierClosed = errors.New("notifier is closed")

	// ErrInvalidEndpoint indicates the endpoint has no URL.
	ErrInvalidEndpoint = errors.New("invalid endpoint configuration")
)

// Endpoint is one webhook receiver.
type Endpoint struct {
	Name    string
	URL     string
	Secret  string
	Headers map[string]string

	// Types selects the events sent to this endpoint. An entry ending in
	// ".*" matches every type with that prefix. Empty selects everything.
	Types []string
}

// Accepts reports whether e should be sent to the endpoint.
func (ep *Endpoint) Accepts(e event.Event) bool {
	if len(ep.Types) == 0 {
		return true
	}
	typ := string(e.Type)
	for _, want := range ep.Types {
		if family, ok := strings.CutSuffix(want, ".*"); ok {
			if strings.HasPrefix(typ, family+".") {
				return true
			}
			continue
		}
		if typ == want {
			return true
		}
	}
	return false
}

func (ep *Endpoint) label() string {
	if ep.Name != "" {
		return ep.Name
	}
	return ep.URL
}
