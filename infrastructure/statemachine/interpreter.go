package statemachine

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/policykeeper/domain/policy"
)

// Interpreter wraps the statekit interpreter for one policy.
type Interpreter struct {
	interp *statekit.Interpreter[*Context]
	ctx    *Context
}

// NewInterpreter creates an interpreter over machine with ctx as its context.
func NewInterpreter(machine *statekit.MachineConfig[*Context], ctx *Context) *Interpreter {
	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **Context) {
		*c = ctx
	})
	return &Interpreter{interp: interp, ctx: ctx}
}

// Start enters the initial state.
func (i *Interpreter) Start() {
	i.interp.Start()
	i.ctx.Status = StatusFromMachine(i.interp.State().Value)
}

// Stop stops the interpreter.
func (i *Interpreter) Stop() {
	i.interp.Stop()
}

// State returns the current status.
func (i *Interpreter) State() policy.Status {
	return StatusFromMachine(i.interp.State().Value)
}

// Fire sends trig and returns the resulting status. Triggers the current
// status does not accept, and APPROVE while the chain is incomplete, fail
// with policy.ErrTransitionNotAllowed or policy.ErrApprovalsIncomplete.
func (i *Interpreter) Fire(trig policy.Trigger, reason string) (policy.Status, error) {
	from := i.State()
	want, ok := from.Next(trig)
	if !ok {
		return from, fmt.Errorf("%w: %s on %s", policy.ErrTransitionNotAllowed, trig, from)
	}

	i.interp.Send(statekit.Event{
		Type:    EventForTrigger(trig),
		Payload: TriggerPayload{Reason: reason},
	})

	got := i.State()
	if got != want {
		if trig == policy.TriggerApprove {
			return got, policy.ErrApprovalsIncomplete
		}
		return got, fmt.Errorf("%w: %s on %s", policy.ErrTransitionNotAllowed, trig, from)
	}
	i.ctx.Status = got
	return got, nil
}

// Matches checks if the current state matches the given status.
func (i *Interpreter) Matches(status policy.Status) bool {
	return i.interp.Matches(statekit.StateID(status))
}

// Context returns the interpreter context.
func (i *Interpreter) Context() *Context {
	return i.ctx
}

// Apply runs a single trigger against a policy currently at ctx.Status and
// returns the resulting status.
func Apply(ctx *Context, trig policy.Trigger, reason string) (policy.Status, error) {
	if !ctx.Status.IsValid() {
		return ctx.Status, policy.ErrInvalidStatus
	}
	machine, err := NewPolicyMachine(ctx.Status)
	if err != nil {
		return ctx.Status, fmt.Errorf("build policy machine: %w", err)
	}
	interp := NewInterpreter(machine, ctx)
	interp.Start()
	defer interp.Stop()
	return interp.Fire(trig, reason)
}
