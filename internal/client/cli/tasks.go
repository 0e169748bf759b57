package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/taskkeeper/internal/client/models"
	"github.com/dmitrijs2005/taskkeeper/internal/timex"
	"github.com/spf13/cobra"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return id, nil
}

// parseDueDate reads a YYYY-MM-DD date; "" means no date.
func parseDueDate(s string) (*timex.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := timex.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid due date %q, expected YYYY-MM-DD", s)
	}
	return &t, nil
}

func (a *App) newListCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List tasks",
		Args:    cobra.NoArgs,
		PreRunE: a.requireAuth,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter models.TaskStatus
			if status != "" {
				s, err := models.ParseStatus(status)
				if err != nil {
					return err
				}
				filter = s
			}

			tasks, err := a.tasks.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			printTaskList(a.out, tasks)
			return nil
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "only tasks with this status (pending, in-progress, completed)")
	return cmd
}

func (a *App) newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "show ID",
		Short:   "Show a task",
		Args:    cobra.ExactArgs(1),
		PreRunE: a.requireAuth,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			task, err := a.tasks.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			printTask(a.out, task)
			return nil
		},
	}
}

func (a *App) newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "add",
		Short:   "Create a task",
		Args:    cobra.NoArgs,
		PreRunE: a.requireAuth,
		RunE: func(cmd *cobra.Command, _ []string) error {
			title, err := GetSimpleText(a.reader, "Title", a.out)
			if err != nil {
				return err
			}
			payload := models.CreateTaskPayload{Title: title}
			if err := payload.Validate(); err != nil {
				return err
			}

			description, err := GetMultiline(a.reader, "Description (optional)", a.out)
			if err != nil {
				return err
			}
			if description != "" {
				payload.Description = &description
			}

			status, err := GetSimpleText(a.reader, "Status [Pending]", a.out)
			if err != nil {
				return err
			}
			if status != "" {
				if payload.Status, err = models.ParseStatus(status); err != nil {
					return err
				}
			}

			due, err := GetSimpleText(a.reader, "Due date (YYYY-MM-DD, optional)", a.out)
			if err != nil {
				return err
			}
			if payload.DueDate, err = parseDueDate(due); err != nil {
				return err
			}

			task, err := a.tasks.Create(cmd.Context(), payload)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created task #%d\n", task.ID)
			return nil
		},
	}
}

func (a *App) newEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "edit ID",
		Short:   "Edit a task; empty answers keep the current value",
		Args:    cobra.ExactArgs(1),
		PreRunE: a.requireAuth,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			task, err := a.tasks.Get(ctx, id)
			if err != nil {
				return err
			}

			var patch models.UpdateTaskPayload

			title, err := GetSimpleText(a.reader, fmt.Sprintf("Title [%s]", task.Title), a.out)
			if err != nil {
				return err
			}
			if title != "" && title != task.Title {
				patch.Title = &title
			}

			description, err := GetSimpleText(a.reader, fmt.Sprintf("Description [%s] ('-' to clear)", valueOr(task.Description, "")), a.out)
			if err != nil {
				return err
			}
			switch description {
			case "":
			case "-":
				empty := ""
				patch.Description = &empty
			default:
				patch.Description = &description
			}

			status, err := GetSimpleText(a.reader, fmt.Sprintf("Status [%s]", task.Status), a.out)
			if err != nil {
				return err
			}
			if status != "" {
				s, err := models.ParseStatus(status)
				if err != nil {
					return err
				}
				if s != task.Status {
					patch.Status = &s
				}
			}

			due, err := GetSimpleText(a.reader, fmt.Sprintf("Due date [%s] ('-' to clear)", formatDate(task.DueDate)), a.out)
			if err != nil {
				return err
			}
			switch due {
			case "":
			case "-":
				patch.ClearDueDate = task.DueDate != nil
			default:
				if patch.DueDate, err = parseDueDate(due); err != nil {
					return err
				}
			}

			if err := patch.Validate(); err != nil {
				fmt.Fprintln(a.out, "Nothing to change.")
				return nil
			}
			updated, err := a.tasks.Update(ctx, id, patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Updated task #%d\n", updated.ID)
			return nil
		},
	}
}

func (a *App) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "status ID STATUS",
		Short:   "Change the status of a task",
		Args:    cobra.MinimumNArgs(2),
		PreRunE: a.requireAuth,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			status, err := models.ParseStatus(strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			task, err := a.tasks.SetStatus(cmd.Context(), id, status)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Task #%d is now %s\n", task.ID, task.Status)
			return nil
		},
	}
}

func (a *App) newDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete ID",
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		PreRunE: a.requireAuth,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !yes {
				ok, err := Confirm(a.reader, "Are you sure you want to delete this task?", a.out)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(a.out, "Cancelled.")
					return nil
				}
			}
			task, err := a.tasks.Delete(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted task #%d\n", task.ID)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
