package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/taskkeeper/internal/client/guard"
)

// repl reads a line, dispatches it and repeats. It returns on EOF or when
// the user types "exit" or "quit". Command errors are reported and do not
// end the loop.
func (a *App) repl(ctx context.Context) {
	for {
		a.applyRedirect()

		fmt.Fprintf(a.out, "tk%s> ", a.status())
		line, err := a.reader.ReadString('\n')
		line = strings.TrimSpace(line)

		switch line {
		case "":
		case "exit", "quit":
			fmt.Fprintln(a.out, "Bye!")
			return
		default:
			a.execute(ctx, line)
		}

		if err != nil {
			if !errors.Is(err, io.EOF) {
				a.log.Error(ctx, "read input", "error", err)
			}
			fmt.Fprintln(a.out)
			return
		}
	}
}

// applyRedirect ends the protected area after a redirect to the login
// entry point and tells the user.
func (a *App) applyRedirect() {
	if a.takeRedirect() != guard.LoginPath {
		return
	}
	a.unmount()
	fmt.Fprintln(a.out, "You are not logged in or your session has expired. Please log in ('login' or 'signup').")
}

func (a *App) execute(ctx context.Context, line string) {
	root := a.newRootCmd()
	root.SetArgs(strings.Fields(line))
	if err := root.ExecuteContext(ctx); err != nil {
		a.report(err)
	}
}
