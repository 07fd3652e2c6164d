package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

// newAuditCmd creates the audit command.
func (a *App) newAuditCmd() *cobra.Command {
	var from uint64
	cmd := &cobra.Command{
		Use:   "audit <policy-id>",
		Short: "Print a policy's audit trail",
		Long: `Print the audit events recorded for a policy in sequence order.

Examples:
  policyctl --db gov.db audit 7f3c...
  policyctl --db gov.db audit --from 10 --json 7f3c...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime(cmd.Context())
			if err != nil {
				return err
			}
			events, err := rt.events.LoadEventsFrom(cmd.Context(), args[0], from)
			if err != nil {
				return err
			}
			return a.render(events, func(w io.Writer) {
				if len(events) == 0 {
					_, _ = fmt.Fprintln(w, "No events.")
					return
				}
				a.table("SEQ\tTIME\tTYPE\tACTOR\tPAYLOAD", func(w io.Writer) {
					for _, e := range events {
						_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
							e.Sequence, e.Timestamp.Format(time.RFC3339), e.Type, e.Actor, e.Payload)
					}
				})
			})
		},
	}
	cmd.Flags().Uint64Var(&from, "from", 0, "First sequence number to print")
	return cmd
}
