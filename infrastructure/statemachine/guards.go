package statemachine

import "github.com/felixgeelhaar/statekit"

// guardApprovalsComplete allows APPROVE only once the chain is complete and
// nobody rejected.
func guardApprovalsComplete(ctx *Context, _ statekit.Event) bool {
	if ctx == nil {
		return false
	}
	return ctx.ApprovalsComplete && !ctx.Rejected
}
