package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/policykeeper/domain/approval"
)

const approvalHeader = "ID\tPOLICY\tAPPROVER\tSEQ\tSTATUS"

// newApprovalCmd creates the approval command group.
func (a *App) newApprovalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "approval",
		Aliases: []string{"approvals"},
		Short:   "Manage approval chains",
	}

	cmd.AddCommand(
		a.newApprovalRequestCmd(),
		a.newApprovalAddCmd(),
		a.newDecisionCmd("approve", "Approve a pending request", true, func(ctx context.Context, rt *runtime, id string, comments *string) (*approval.Request, error) {
			return rt.approvals.Approve(ctx, id, comments)
		}),
		a.newDecisionCmd("reject", "Reject a pending request and return the policy to review", true, func(ctx context.Context, rt *runtime, id string, comments *string) (*approval.Request, error) {
			return rt.approvals.Reject(ctx, id, comments)
		}),
		a.newDecisionCmd("revoke", "Withdraw an approval request", false, func(ctx context.Context, rt *runtime, id string, _ *string) (*approval.Request, error) {
			return rt.approvals.Revoke(ctx, id)
		}),
		a.newApprovalShowCmd(),
		a.newApprovalDeleteCmd(),
		a.newApprovalListCmd(),
		a.newApprovalPendingCmd(),
		a.newApprovalProgressCmd(),
	)
	return cmd
}

func (a *App) newApprovalRequestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "request <policy-id> <approver-id>...",
		Short: "Request approval from approvers in order",
		Long: `Create one pending request per approver. Approvers are numbered 1, 2, ...
in the order given. Requests created before a failure are kept.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime(cmd.Context())
			if err != nil {
				return err
			}
			requests, err := rt.approvals.RequestApprovals(cmd.Context(), args[0], args[1:])
			if len(requests) > 0 {
				if rerr := a.render(requests, func(w io.Writer) {
					a.table(approvalHeader, func(w io.Writer) {
						for _, r := range requests {
							approvalRow(w, r)
						}
					})
				}); rerr != nil {
					return rerr
				}
			}
			return err
		},
	}
}

func (a *App) newApprovalAddCmd() *cobra.Command {
	var seq int
	cmd := &cobra.Command{
		Use:   "add <policy-id> <approver-id>",
		Short: "Add one approver at a chosen sequence position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime(cmd.Context())
			if err != nil {
				return err
			}
			r, err := rt.approvals.CreateApproval(cmd.Context(), args[0], args[1], seq)
			if err != nil {
				return err
			}
			return a.render(r, func(w io.Writer) { printApproval(w, r) })
		},
	}
	cmd.Flags().IntVar(&seq, "seq", 1, "Sequence order")
	return cmd
}

// newDecisionCmd creates a command that changes one request's status.
func (a *App) newDecisionCmd(
	use, short string,
	withComment bool,
	decide func(context.Context, *runtime, string, *string) (*approval.Request, error),
) *cobra.Command {
	var comment string
	cmd := &cobra.Command{
		Use:   use + " <approval-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime(cmd.Context())
			if err != nil {
				return err
			}
			r, err := decide(cmd.Context(), rt, args[0], optionalString(comment))
			if err != nil {
				return err
			}
			return a.render(r, func(w io.Writer) {
				_, _ = fmt.Fprintf(w, "Approval %s is now %s\n", r.ID, r.Status)
			})
		},
	}
	if withComment {
		cmd.Flags().StringVarP(&comment, "comment", "m", "", "Comments recorded with the decision")
	}
	return cmd
}

func (a *App) newApprovalShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <approval-id>",
		Short: "Show an approval request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime(cmd.Context())
			if err != nil {
				return err
			}
			r, err := rt.approvals.GetApproval(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.render(r, func(w io.Writer) { printApproval(w, r) })
		},
	}
}

func (a *App) newApprovalDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <approval-id>",
		Short: "Delete an approval request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime(cmd.Context())
			if err != nil {
				return err
			}
			if err := rt.approvals.DeleteApproval(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(a.stdout, "Deleted approval %s\n", args[0])
			return nil
		},
	}
}

func (a *App) newApprovalListCmd() *cobra.Command {
	var policyID, approverID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a policy's chain or an approver's requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (policyID == "") == (approverID == "") {
				return fmt.Errorf("exactly one of --policy or --approver is required")
			}
			rt, err := a.runtime(cmd.Context())
			if err != nil {
				return err
			}

			var requests []*approval.Request
			if policyID != "" {
				requests, err = rt.approvals.ListByPolicy(cmd.Context(), policyID)
			} else {
				requests, err = rt.approvals.ListByApprover(cmd.Context(), approverID)
			}
			if err != nil {
				return err
			}
			return a.renderApprovals(requests)
		},
	}
	cmd.Flags().StringVar(&policyID, "policy", "", "List the chain of this policy, by sequence")
	cmd.Flags().StringVar(&approverID, "approver", "", "List this approver's requests, newest first")
	return cmd
}

func (a *App) newApprovalPendingCmd() *cobra.Command {
	var approverID string
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List pending requests, optionally for one approver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime(cmd.Context())
			if err != nil {
				return err
			}

			var requests []*approval.Request
			if approverID != "" {
				requests, err = rt.approvals.ListPendingForApprover(cmd.Context(), approverID)
			} else {
				requests, err = rt.approvals.ListPending(cmd.Context())
			}
			if err != nil {
				return err
			}
			return a.renderApprovals(requests)
		},
	}
	cmd.Flags().StringVar(&approverID, "approver", "", "Only this approver's requests")
	return cmd
}

func (a *App) renderApprovals(requests []*approval.Request) error {
	return a.render(requests, func(w io.Writer) {
		if len(requests) == 0 {
			_, _ = fmt.Fprintln(w, "No approval requests.")
			return
		}
		a.table(approvalHeader, func(w io.Writer) {
			for _, r := range requests {
				approvalRow(w, r)
			}
		})
	})
}

func (a *App) newApprovalProgressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "progress <policy-id>",
		Short: "Summarize a policy's approval chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime(cmd.Context())
			if err != nil {
				return err
			}
			p, err := rt.approvals.Progress(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.render(p, func(w io.Writer) {
				_, _ = fmt.Fprintf(w, "Total: %d  Approved: %d  Rejected: %d  Pending: %d\n",
					p.Total, p.Approved, p.Rejected, p.Pending)
			})
		},
	}
}
