// Package statemachine runs policy status transitions through a statekit machine.
package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/policykeeper/domain/policy"
)

// Context carries one policy's status through the machine.
type Context struct {
	PolicyID string
	Status   policy.Status

	// ApprovalsComplete is true when every approval is approved or revoked.
	ApprovalsComplete bool

	// Rejected is true when at least one approval was rejected.
	Rejected bool

	// Transitions records the transitions taken by this interpreter.
	Transitions []Transition
}

// Transition is one recorded status change.
type Transition struct {
	From    policy.Status
	To      policy.Status
	Trigger policy.Trigger
	Reason  string
}

// NewContext creates a machine context for a policy at its current status.
func NewContext(policyID string, status policy.Status) *Context {
	return &Context{PolicyID: policyID, Status: status}
}

const (
	stateDraft     statekit.StateID = statekit.StateID(policy.StatusDraft)
	stateInReview  statekit.StateID = statekit.StateID(policy.StatusInReview)
	stateApproved  statekit.StateID = statekit.StateID(policy.StatusApproved)
	statePublished statekit.StateID = statekit.StateID(policy.StatusPublished)
	stateArchived  statekit.StateID = statekit.StateID(policy.StatusArchived)
)

const (
	evSubmit  = statekit.EventType(policy.TriggerSubmit)
	evReject  = statekit.EventType(policy.TriggerReject)
	evApprove = statekit.EventType(policy.TriggerApprove)
	evPublish = statekit.EventType(policy.TriggerPublish)
	evArchive = statekit.EventType(policy.TriggerArchive)
)

// NewPolicyMachine creates the policy status statechart starting at initial.
// The edges mirror policy.EventTransitions.
func NewPolicyMachine(initial policy.Status) (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context]("policy").
		WithInitial(statekit.StateID(initial)).
		WithContext(&Context{}).
		WithAction("recordTransition", recordTransition).
		WithGuard("approvalsComplete", guardApprovalsComplete).
		State(stateDraft).
			On(evSubmit).Target(stateInReview).Do("recordTransition").
			On(evReject).Target(stateInReview).Do("recordTransition").
			On(evArchive).Target(stateArchived).Do("recordTransition").
			Done().
		State(stateInReview).
			On(evApprove).Target(stateApproved).Guard("approvalsComplete").Do("recordTransition").
			On(evPublish).Target(statePublished).Do("recordTransition").
			On(evReject).Target(stateInReview).Do("recordTransition").
			On(evArchive).Target(stateArchived).Do("recordTransition").
			Done().
		State(stateApproved).
			On(evPublish).Target(statePublished).Do("recordTransition").
			On(evReject).Target(stateInReview).Do("recordTransition").
			On(evArchive).Target(stateArchived).Do("recordTransition").
			Done().
		State(statePublished).
			On(evReject).Target(stateInReview).Do("recordTransition").
			On(evArchive).Target(stateArchived).Do("recordTransition").
			Done().
		State(stateArchived).
			On(evReject).Target(stateInReview).Do("recordTransition").
			Done().
		Build()
}

// EventForTrigger returns the machine event for a policy trigger.
func EventForTrigger(t policy.Trigger) statekit.EventType {
	return statekit.EventType(t)
}

// StatusFromMachine converts the machine state ID to a policy status.
func StatusFromMachine(stateID statekit.StateID) policy.Status {
	return policy.Status(stateID)
}
