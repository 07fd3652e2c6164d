package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/policykeeper/domain/policy"
)

func statekitEvent(trig policy.Trigger) statekit.Event {
	return statekit.Event{Type: EventForTrigger(trig)}
}
