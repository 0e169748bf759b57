package cli

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/taskkeeper/internal/client/client"
	"github.com/dmitrijs2005/taskkeeper/internal/client/guard"
	"github.com/dmitrijs2005/taskkeeper/internal/client/models"
	"github.com/dmitrijs2005/taskkeeper/internal/client/services"
	"github.com/spf13/cobra"
)

func (a *App) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "tk",
		Short:             "TaskKeeper: manage your tasks",
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	}
	root.SetOut(a.out)
	root.SetErr(a.out)
	root.SetIn(a.reader)

	root.AddCommand(
		a.newSignupCmd(),
		a.newLoginCmd(),
		a.newLogoutCmd(),
		a.newWhoamiCmd(),
		a.newListCmd(),
		a.newShowCmd(),
		a.newAddCmd(),
		a.newEditCmd(),
		a.newStatusCmd(),
		a.newDeleteCmd(),
	)
	return root
}

// requireAuth is the PreRunE of protected commands.
func (a *App) requireAuth(cmd *cobra.Command, _ []string) error {
	return a.protect(cmd.Context())
}

// report prints a command failure. Authentication failures are left to the
// redirect notice shown before the next prompt.
func (a *App) report(err error) {
	switch {
	case errors.Is(err, guard.ErrNotAuthenticated):
		return
	case errors.Is(err, client.ErrUnauthorized):
		// A pending redirect prints its own notice before the next prompt.
		if !a.redirectPending() {
			fmt.Fprintln(a.out, "The server rejected the request. Please log in again.")
		}
	case errors.Is(err, services.ErrNoSession):
		fmt.Fprintln(a.out, "Please log in first.")
	case errors.Is(err, client.ErrUnavailable):
		fmt.Fprintln(a.out, "Server unavailable, please try again later.")
	case errors.Is(err, client.ErrNotFound):
		fmt.Fprintln(a.out, "Task not found.")
	case errors.Is(err, models.ErrInvalidStatus):
		fmt.Fprintf(a.out, "Error: %v (use one of: Pending, In Progress, Completed)\n", err)
	default:
		if detail := client.Detail(err); detail != "" {
			fmt.Fprintf(a.out, "Error: %s\n", detail)
			return
		}
		fmt.Fprintf(a.out, "Error: %v\n", err)
	}
}

func detailOr(err error, fallback string) string {
	if detail := client.Detail(err); detail != "" {
		return detail
	}
	return fallback
}
