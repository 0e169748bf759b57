package cli

import (
	"fmt"
	"io"

	"github.com/dmitrijs2005/taskkeeper/internal/client/models"
	"github.com/dmitrijs2005/taskkeeper/internal/timex"
)

const dueDateLayout = "Jan 02, 2006"

func formatDate(t *timex.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.UTC().Format(dueDateLayout)
}

func valueOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

// printTaskList prints tasks in the order the server returned them.
func printTaskList(w io.Writer, tasks []models.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks found. Create a new task to get started!")
		return
	}

	fmt.Fprintf(w, "%-6s  %-12s  %-13s  %s\n", "ID", "STATUS", "DUE", "TITLE")
	fmt.Fprintf(w, "%-6s  %-12s  %-13s  %s\n", "--", "------", "---", "-----")
	for _, t := range tasks {
		fmt.Fprintf(w, "%-6d  %-12s  %-13s  %s\n", t.ID, t.Status, formatDate(t.DueDate), t.Title)
	}
}

func printTask(w io.Writer, t *models.Task) {
	fmt.Fprintf(w, "Task #%d: %s\n", t.ID, t.Title)
	fmt.Fprintf(w, "Status:      %s\n", t.Status)
	fmt.Fprintf(w, "Due:         %s\n", formatDate(t.DueDate))
	if d := valueOr(t.Description, ""); d != "" {
		fmt.Fprintf(w, "Description: %s\n", d)
	}
	fmt.Fprintf(w, "Created:     %s\n", t.CreatedAt.UTC().Format("2006-01-02 15:04"))
	if t.UpdatedAt != nil && !t.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "Updated:     %s\n", t.UpdatedAt.UTC().Format("2006-01-02 15:04"))
	}
}
