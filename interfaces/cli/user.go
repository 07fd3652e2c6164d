package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/policykeeper/domain/user"
)

// newUserCmd creates the user command group.
func (a *App) newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Register approvers and authors",
	}

	var name string
	add := &cobra.Command{
		Use:   "add <user-id>",
		Short: "Register a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime(cmd.Context())
			if err != nil {
				return err
			}
			u := &user.User{ID: args[0], Name: name}
			if err := rt.users.Save(cmd.Context(), u); err != nil {
				return err
			}
			return a.render(u, func(w io.Writer) {
				_, _ = fmt.Fprintf(w, "Added user %s\n", u.ID)
			})
		},
	}
	add.Flags().StringVar(&name, "name", "", "Display name")

	cmd.AddCommand(add)
	return cmd
}
