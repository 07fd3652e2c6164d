package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/policykeeper/application"
	"github.com/felixgeelhaar/policykeeper/domain/policy"
)

// createPolicyOptions holds options for the policy create command.
type createPolicyOptions struct {
	title       string
	content     string
	contentFile string
	author      string
}

// newPolicyCmd creates the policy command group.
func (a *App) newPolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Create policies and move them through their lifecycle",
	}

	cmd.AddCommand(
		a.newPolicyCreateCmd(),
		a.newPolicyShowCmd(),
		a.newPolicyDeleteCmd(),
		a.newTransitionCmd("submit", "Send a draft policy to review", (*application.StatusCoordinator).Submit),
		a.newTransitionCmd("finalize", "Settle a policy in review from its approval chain", (*application.StatusCoordinator).Finalize),
		a.newTransitionCmd("publish", "Publish an approved policy", (*application.StatusCoordinator).Publish),
		a.newTransitionCmd("archive", "Archive a policy", (*application.StatusCoordinator).Archive),
	)
	return cmd
}

func (a *App) newPolicyCreateCmd() *cobra.Command {
	opts := &createPolicyOptions{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft policy with its first version",
		Long: `Create a draft policy. The content becomes version 1.0.

Examples:
  policyctl --db gov.db policy create --title "Travel" --content "Economy only"
  policyctl --db gov.db policy create --title "Travel" --file travel.md --author alice`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.createPolicy(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.title, "title", "t", "", "Policy title (required)")
	cmd.Flags().StringVar(&opts.content, "content", "", "Policy content")
	cmd.Flags().StringVarP(&opts.contentFile, "file", "f", "", "Read content from file (- for stdin)")
	cmd.Flags().StringVar(&opts.author, "author", "", "Authoring user ID")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func (a *App) createPolicy(ctx context.Context, opts *createPolicyOptions) error {
	content, err := readContent(opts.content, opts.contentFile)
	if err != nil {
		return err
	}
	rt, err := a.runtime(ctx)
	if err != nil {
		return err
	}

	p, err := rt.policies.CreatePolicy(ctx, opts.title, content, opts.author)
	if err != nil {
		return err
	}
	return a.render(p, func(w io.Writer) {
		_, _ = fmt.Fprintf(w, "Created policy %s (%s, version %s)\n", p.ID, p.Status, p.Version)
	})
}

func (a *App) newPolicyShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <policy-id>",
		Short: "Show a policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime(cmd.Context())
			if err != nil {
				return err
			}
			p, err := rt.policies.GetPolicy(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.render(p, func(w io.Writer) { printPolicy(w, p) })
		},
	}
}

func (a *App) newPolicyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <policy-id>",
		Short: "Soft-delete a policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime(cmd.Context())
			if err != nil {
				return err
			}
			if err := rt.policies.DeletePolicy(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(a.stdout, "Deleted policy %s\n", args[0])
			return nil
		},
	}
}

// newTransitionCmd creates a command that fires one lifecycle trigger.
func (a *App) newTransitionCmd(
	use, short string,
	fire func(*application.StatusCoordinator, context.Context, string, string) (policy.Status, error),
) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <policy-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime(cmd.Context())
			if err != nil {
				return err
			}
			status, err := fire(rt.status, cmd.Context(), args[0], a.opts.actor)
			if err != nil {
				return err
			}
			result := struct {
				PolicyID string        `json:"policy_id"`
				Status   policy.Status `json:"status"`
			}{args[0], status}
			return a.render(result, func(w io.Writer) {
				_, _ = fmt.Fprintf(w, "Policy %s is now %s\n", args[0], status)
			})
		},
	}
}
