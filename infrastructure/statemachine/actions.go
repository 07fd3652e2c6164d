package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/policykeeper/domain/policy"
)

// TriggerPayload carries the reason for a transition.
type TriggerPayload struct {
	Reason string
}

// recordTransition moves the context to the trigger's target and records it.
func recordTransition(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}

	c := *ctx
	trig := policy.Trigger(event.Type)
	to, ok := c.Status.Next(trig)
	if !ok {
		return
	}

	var reason string
	if payload, ok := event.Payload.(TriggerPayload); ok {
		reason = payload.Reason
	}

	c.Transitions = append(c.Transitions, Transition{From: c.Status, To: to, Trigger: trig, Reason: reason})
	c.Status = to
}
