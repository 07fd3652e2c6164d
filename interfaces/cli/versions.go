package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/policykeeper/domain/version"
)

// createVersionOptions holds options for the version create and next commands.
type createVersionOptions struct {
	content     string
	contentFile string
	label       string
	number      int
	summary     string
	author      string
}

func (o *createVersionOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.content, "content", "", "Version content")
	cmd.Flags().StringVarP(&o.contentFile, "file", "f", "", "Read content from file (- for stdin)")
	cmd.Flags().StringVarP(&o.summary, "summary", "m", "", "Change summary")
	cmd.Flags().StringVar(&o.author, "author", "", "Authoring user ID")
}

// newPolicyVersionCmd creates the policy-version command group.
func (a *App) newPolicyVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "policy-version",
		Aliases: []string{"pv"},
		Short:   "Inspect and extend a policy's version history",
	}

	cmd.AddCommand(
		a.newVersionCreateCmd(),
		a.newVersionNextCmd(),
		a.newVersionListCmd(),
		a.newVersionShowCmd(),
		a.newVersionCompareCmd(),
		a.newVersionHistoryCmd(),
		a.newVersionRollbackCmd(),
		a.newVersionDeleteCmd(),
	)
	return cmd
}

func (a *App) newVersionCreateCmd() *cobra.Command {
	opts := &createVersionOptions{}
	cmd := &cobra.Command{
		Use:   "create <policy-id>",
		Short: "Store a version under an explicit number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readContent(opts.content, opts.contentFile)
			if err != nil {
				return err
			}
			rt, err := a.runtime(cmd.Context())
			if err != nil {
				return err
			}
			v, err := rt.versions.CreateVersion(cmd.Context(), args[0], content, opts.label, opts.number, opts.summary, opts.author)
			if err != nil {
				return err
			}
			return a.renderCreated(v)
		},
	}
	opts.bind(cmd)
	cmd.Flags().IntVar(&opts.number, "number", 0, "Version number (required)")
	cmd.Flags().StringVar(&opts.label, "label", "", "Version label (derived from the number when empty)")
	_ = cmd.MarkFlagRequired("number")
	return cmd
}

func (a *App) newVersionNextCmd() *cobra.Command {
	opts := &createVersionOptions{}
	cmd := &cobra.Command{
		Use:   "next <policy-id>",
		Short: "Append a version under the next free number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readContent(opts.content, opts.contentFile)
			if err != nil {
				return err
			}
			rt, err := a.runtime(cmd.Context())
			if err != nil {
				return err
			}
			v, err := rt.versions.CreateNextVersion(cmd.Context(), args[0], content, opts.summary, opts.author)
			if err != nil {
				return err
			}
			return a.renderCreated(v)
		},
	}
	opts.bind(cmd)
	return cmd
}

func (a *App) renderCreated(v *version.PolicyVersion) error {
	return a.render(v, func(w io.Writer) {
		_, _ = fmt.Fprintf(w, "Created version %s (#%d) %s\n", v.Version, v.VersionNumber, v.ID)
	})
}

func (a *App) newVersionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <policy-id>",
		Short: "List versions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime(cmd.Context())
			if err != nil {
				return err
			}
			versions, err := rt.versions.GetVersionsByPolicy(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.render(versions, func(w io.Writer) {
				a.table("NUMBER\tVERSION\tID\tCREATED", func(w io.Writer) {
					for _, v := range versions {
						_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
							v.VersionNumber, v.Version, v.ID, v.CreatedAt.Format(time.RFC3339))
					}
				})
			})
		},
	}
}

func (a *App) newVersionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <version-id> | <policy-id> <number|latest>",
		Short: "Show a version by ID, by number or the latest",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime(cmd.Context())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			var v *version.PolicyVersion
			switch {
			case len(args) == 1:
				v, err = rt.versions.GetVersion(ctx, args[0])
			case args[1] == "latest":
				v, err = rt.versions.GetLatestVersion(ctx, args[0])
			default:
				n, perr := strconv.Atoi(args[1])
				if perr != nil {
					return fmt.Errorf("invalid version number %q", args[1])
				}
				v, err = rt.versions.GetVersionByNumber(ctx, args[0], n)
			}
			if err != nil {
				return err
			}
			return a.render(v, func(w io.Writer) { printVersion(w, v) })
		},
	}
}

func (a *App) newVersionCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare <version-id> <version-id>",
		Short: "Report which fields differ between two versions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime(cmd.Context())
			if err != nil {
				return err
			}
			cmp, err := rt.versions.CompareVersions(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return a.render(cmp, func(w io.Writer) {
				_, _ = fmt.Fprintf(w, "%s vs %s\n", cmp.Version1.Version, cmp.Version2.Version)
				if len(cmp.Differences) == 0 {
					_, _ = fmt.Fprintln(w, "  no differences")
				}
				for _, d := range cmp.Differences {
					_, _ = fmt.Fprintf(w, "  - %s\n", d)
				}
			})
		},
	}
}

func (a *App) newVersionHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <policy-id>",
		Short: "Show the version history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime(cmd.Context())
			if err != nil {
				return err
			}
			history, err := rt.versions.GetVersionHistory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.render(history, func(w io.Writer) {
				a.table("VERSION\tCREATED\tBY\tSUMMARY", func(w io.Writer) {
					for _, h := range history {
						_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
							h.Version, h.CreatedAt.Format(time.RFC3339), h.CreatedBy, h.ChangeSummary)
					}
				})
			})
		},
	}
}

func (a *App) newVersionRollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <policy-id> <number>",
		Short: "Append a new version carrying an earlier version's content",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid version number %q", args[1])
			}
			rt, err := a.runtime(cmd.Context())
			if err != nil {
				return err
			}
			v, err := rt.versions.RollbackToVersion(cmd.Context(), args[0], target, a.opts.actor)
			if err != nil {
				return err
			}
			return a.renderCreated(v)
		},
	}
}

func (a *App) newVersionDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <version-id>",
		Short: "Delete a version unless it is the policy's last",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime(cmd.Context())
			if err != nil {
				return err
			}
			if err := rt.versions.DeleteVersion(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(a.stdout, "Deleted version %s\n", args[0])
			return nil
		},
	}
}
